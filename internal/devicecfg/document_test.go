package devicecfg_test

import (
	"errors"
	"strings"
	"testing"

	"chemdrive/internal/devicecfg"
)

const sampleDoc = `
[device.pump_a]
type = "Elite11"
port = "/dev/ttyUSB0"
diameter = "14.567 mm"

[device.valve_b]
type = "KnauerValve"
ip_address = "192.168.1.10"
`

func TestParseExposesDevices(t *testing.T) {
	doc, err := devicecfg.Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	devices := doc.Devices()
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
	if devices[0].Name != "pump_a" || devices[0].Type != "Elite11" {
		t.Fatalf("unexpected first device: %+v", devices[0])
	}
	if devices[0].Address() != "/dev/ttyUSB0" {
		t.Fatalf("serial address = %q", devices[0].Address())
	}
	if devices[1].Address() != "192.168.1.10" {
		t.Fatalf("ethernet address = %q", devices[1].Address())
	}
}

func TestParseReportsSyntaxPosition(t *testing.T) {
	_, err := devicecfg.Parse([]byte("[device.pump\nport = \"/dev/ttyUSB0\"\n"))
	if err == nil {
		t.Fatal("expected syntax error")
	}
	if !errors.Is(err, devicecfg.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if !strings.Contains(err.Error(), "line") {
		t.Fatalf("expected position in error, got %q", err)
	}
}

func TestAppendDeviceIsIdempotentPerAddress(t *testing.T) {
	doc, err := devicecfg.Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	added := doc.AppendDevice("Azura Pump", "AzuraCompact", map[string]any{
		"ip_address": "192.168.1.20",
	})
	if !added {
		t.Fatal("expected first append to succeed")
	}
	again := doc.AppendDevice("Azura Pump Duplicate", "AzuraCompact", map[string]any{
		"ip_address": "192.168.1.20",
	})
	if again {
		t.Fatal("expected duplicate address append to be a no-op")
	}
	if len(doc.Devices()) != 3 {
		t.Fatalf("expected 3 devices after idempotent append, got %d", len(doc.Devices()))
	}
}

func TestAppendDeviceResolvesNameCollisions(t *testing.T) {
	doc := devicecfg.New()
	if !doc.AppendDevice("pump", "Elite11", map[string]any{"port": "/dev/ttyUSB0"}) {
		t.Fatal("first append failed")
	}
	if !doc.AppendDevice("pump", "Elite11", map[string]any{"port": "/dev/ttyUSB1"}) {
		t.Fatal("second append failed")
	}
	devices := doc.Devices()
	if len(devices) != 2 {
		t.Fatalf("expected 2 devices, got %d", len(devices))
	}
	if devices[0].Name == devices[1].Name {
		t.Fatalf("expected distinct names, got %q twice", devices[0].Name)
	}
}

func TestMarshalRoundTripPreservesUnknownKeys(t *testing.T) {
	doc, err := devicecfg.Parse([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	data, err := doc.Marshal()
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	round, err := devicecfg.Parse(data)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	devices := round.Devices()
	if len(devices) != 2 {
		t.Fatalf("round trip lost devices: %d", len(devices))
	}
	if devices[0].Settings["diameter"] != "14.567 mm" {
		t.Fatalf("round trip lost setting: %+v", devices[0].Settings)
	}
}

func TestValidateRejectsMalformedDocument(t *testing.T) {
	if err := devicecfg.Validate([]byte("device = [broken")); err == nil {
		t.Fatal("expected error")
	}
	if err := devicecfg.Validate([]byte(sampleDoc)); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}
}
