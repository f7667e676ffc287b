package discovery

import "strings"

// knownDrivers maps USB identification strings to the device type
// names the device server understands. Matching is substring-based on
// the lowercased vendor and model because adapters report inconsistent
// capitalization and padding.
var knownDrivers = []struct {
	match  string
	driver string
}{
	{"harvard", "Elite11"},
	{"hamilton", "ML600"},
	{"knauer", "AzuraCompact"},
	{"vacuubrand", "CVC3000"},
	{"huber", "HuberChiller"},
	{"vici", "ViciValve"},
	{"manson", "MansonPowerSupply"},
}

// Driver returns the device-server driver name for a recognized
// instrument, empty when the hardware identity is unknown.
func (d Descriptor) Driver() string {
	identity := strings.ToLower(d.Vendor + " " + d.Model)
	for _, entry := range knownDrivers {
		if strings.Contains(identity, entry.match) {
			return entry.driver
		}
	}
	return ""
}
