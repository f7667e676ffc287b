// Package devicecfg models the TOML device configuration document handed
// to the external device server.
//
// The document is a nested table tree with one [device.<name>] table per
// configured instrument. The package preserves unknown keys across a
// parse/serialize round trip and keeps descriptor appends idempotent per
// device address, so repeated discovery runs never duplicate sections.
package devicecfg
