package discovery

import (
	"net"
	"os"
	"path/filepath"
	"testing"
)

func TestSerialFromGlobs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"ttyUSB0", "ttyUSB1", "ttyS0"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	descriptors, err := serialFromGlobs([]string{
		filepath.Join(dir, "ttyUSB*"),
		filepath.Join(dir, "ttyUSB*"), // duplicate pattern must not duplicate results
	})
	if err != nil {
		t.Fatalf("serialFromGlobs: %v", err)
	}
	if len(descriptors) != 2 {
		t.Fatalf("got %d descriptors, want 2: %+v", len(descriptors), descriptors)
	}
	for _, d := range descriptors {
		if d.Transport != TransportSerial {
			t.Fatalf("transport = %s, want serial", d.Transport)
		}
	}
	if descriptors[0].Address >= descriptors[1].Address {
		t.Fatalf("descriptors not sorted: %+v", descriptors)
	}
}

func TestSerialFromGlobsBadPattern(t *testing.T) {
	if _, err := serialFromGlobs([]string{"[unclosed"}); err == nil {
		t.Fatal("expected error for malformed glob")
	}
}

func TestDescriptorSettings(t *testing.T) {
	serial := Descriptor{Transport: TransportSerial, Address: "/dev/ttyUSB0"}
	if got := serial.Settings()["port"]; got != "/dev/ttyUSB0" {
		t.Fatalf("serial settings = %v", serial.Settings())
	}
	eth := Descriptor{Transport: TransportEthernet, Address: "192.168.1.5"}
	if got := eth.Settings()["ip_address"]; got != "192.168.1.5" {
		t.Fatalf("ethernet settings = %v", eth.Settings())
	}
}

func TestDescriptorLabel(t *testing.T) {
	cases := []struct {
		desc Descriptor
		want string
	}{
		{Descriptor{Vendor: "Harvard Apparatus", Model: "Pump 11 Elite"}, "Harvard Apparatus Pump 11 Elite"},
		{Descriptor{Model: "EL-Flow"}, "EL-Flow"},
		{Descriptor{}, "unknown device"},
	}
	for _, tc := range cases {
		if got := tc.desc.Label(); got != tc.want {
			t.Fatalf("Label() = %q, want %q", got, tc.want)
		}
	}
}

func TestBroadcastAddr(t *testing.T) {
	_, ipnet, err := net.ParseCIDR("192.168.1.20/24")
	if err != nil {
		t.Fatalf("parse cidr: %v", err)
	}
	ipnet.IP = net.ParseIP("192.168.1.20")
	if got := broadcastAddr(ipnet).String(); got != "192.168.1.255" {
		t.Fatalf("broadcastAddr = %s, want 192.168.1.255", got)
	}
}

func TestDedupeByAddress(t *testing.T) {
	list := []Descriptor{
		{Transport: TransportSerial, Address: "/dev/ttyUSB0"},
		{Transport: TransportSerial, Address: "/dev/ttyUSB0", Vendor: "dup"},
		{Transport: TransportEthernet, Address: "/dev/ttyUSB0"},
	}
	out := dedupeByAddress(list)
	if len(out) != 2 {
		t.Fatalf("got %d descriptors, want 2: %+v", len(out), out)
	}
}
