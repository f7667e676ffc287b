// Package discovery locates laboratory instruments reachable over
// serial adapters or the local Ethernet segment, producing descriptors
// that can be appended to a device configuration document.
package discovery

import (
	"sort"
	"strings"
)

// Transport names the bus a device was found on.
type Transport string

const (
	TransportSerial   Transport = "serial"
	TransportEthernet Transport = "ethernet"
)

// Descriptor describes one discovered device candidate.
type Descriptor struct {
	Transport Transport
	// Address is the serial device path or the instrument's IP address.
	Address string
	Vendor  string
	Model   string
	Serial  string
}

// Label returns a short human-readable identity for table output.
func (d Descriptor) Label() string {
	parts := make([]string, 0, 2)
	if d.Vendor != "" {
		parts = append(parts, d.Vendor)
	}
	if d.Model != "" {
		parts = append(parts, d.Model)
	}
	if len(parts) == 0 {
		return "unknown device"
	}
	return strings.Join(parts, " ")
}

// Settings returns the key/value pairs to record for this device in a
// configuration document.
func (d Descriptor) Settings() map[string]any {
	switch d.Transport {
	case TransportEthernet:
		return map[string]any{"ip_address": d.Address}
	default:
		return map[string]any{"port": d.Address}
	}
}

func sortDescriptors(list []Descriptor) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Transport != list[j].Transport {
			return list[i].Transport < list[j].Transport
		}
		return list[i].Address < list[j].Address
	})
}

func dedupeByAddress(list []Descriptor) []Descriptor {
	seen := make(map[string]struct{}, len(list))
	out := list[:0]
	for _, d := range list {
		key := string(d.Transport) + "|" + d.Address
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, d)
	}
	return out
}
