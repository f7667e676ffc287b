package devicecfg

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// ErrInvalid wraps syntax errors so callers can distinguish malformed
// documents from IO failures.
var ErrInvalid = errors.New("invalid device configuration")

// Keys inspected when deciding whether two device tables refer to the same
// physical endpoint.
var addressKeys = []string{"port", "ip_address", "ip", "address", "url"}

// Device is one [device.<name>] table.
type Device struct {
	Name     string
	Type     string
	Settings map[string]any
}

// Address returns the first address-like setting value, empty when none.
func (d Device) Address() string {
	for _, key := range addressKeys {
		if value, ok := d.Settings[key]; ok {
			if s, ok := value.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// Document is a parsed device configuration tree.
type Document struct {
	root map[string]any
}

// New returns an empty document.
func New() *Document {
	return &Document{root: map[string]any{}}
}

// Parse decodes a TOML document, reporting syntax position on failure.
func Parse(data []byte) (*Document, error) {
	root := map[string]any{}
	if err := toml.Unmarshal(data, &root); err != nil {
		var decodeErr *toml.DecodeError
		if errors.As(err, &decodeErr) {
			row, col := decodeErr.Position()
			return nil, fmt.Errorf("%w: %s (line %d, column %d)", ErrInvalid, decodeErr.Error(), row, col)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return &Document{root: root}, nil
}

// ParseFile reads and decodes a TOML document from disk.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read device configuration: %w", err)
	}
	return Parse(data)
}

// Validate reports whether data is a syntactically valid document.
func Validate(data []byte) error {
	_, err := Parse(data)
	return err
}

// Devices lists the configured device tables sorted by name.
func (d *Document) Devices() []Device {
	table, ok := d.root["device"].(map[string]any)
	if !ok {
		return nil
	}
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	devices := make([]Device, 0, len(names))
	for _, name := range names {
		settings, ok := table[name].(map[string]any)
		if !ok {
			settings = map[string]any{}
		}
		dev := Device{Name: name, Settings: settings}
		if typ, ok := settings["type"].(string); ok {
			dev.Type = typ
		}
		devices = append(devices, dev)
	}
	return devices
}

// HasAddress reports whether any device table already references addr.
func (d *Document) HasAddress(addr string) bool {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return false
	}
	for _, dev := range d.Devices() {
		if dev.Address() == addr {
			return true
		}
	}
	return false
}

// AppendDevice adds a [device.<name>] table. The append is idempotent per
// address: when another table already references the same address the
// document is left untouched and false is returned. Name collisions get a
// numeric suffix.
func (d *Document) AppendDevice(name, typ string, settings map[string]any) bool {
	merged := make(map[string]any, len(settings)+1)
	for k, v := range settings {
		merged[k] = v
	}
	if typ != "" {
		merged["type"] = typ
	}

	if addr := (Device{Settings: merged}).Address(); addr != "" && d.HasAddress(addr) {
		return false
	}

	table, ok := d.root["device"].(map[string]any)
	if !ok {
		table = map[string]any{}
		d.root["device"] = table
	}

	key := sanitizeName(name)
	if key == "" {
		key = "device"
	}
	if _, exists := table[key]; exists {
		base := key
		for i := 2; ; i++ {
			key = fmt.Sprintf("%s_%d", base, i)
			if _, exists := table[key]; !exists {
				break
			}
		}
	}
	table[key] = merged
	return true
}

// Marshal serializes the document back to TOML.
func (d *Document) Marshal() ([]byte, error) {
	data, err := toml.Marshal(d.root)
	if err != nil {
		return nil, fmt.Errorf("serialize device configuration: %w", err)
	}
	return data, nil
}

// WriteFile serializes the document to path.
func (d *Document) WriteFile(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write device configuration: %w", err)
	}
	return nil
}

func sanitizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == ' ' || r == '.':
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
