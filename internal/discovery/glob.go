package discovery

import (
	"fmt"
	"path/filepath"
)

// serialFromGlobs lists serial device paths matching the configured
// patterns. No vendor metadata is available on this path.
func serialFromGlobs(globs []string) ([]Descriptor, error) {
	var descriptors []Descriptor
	for _, pattern := range globs {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("bad serial glob %q: %w", pattern, err)
		}
		for _, match := range matches {
			descriptors = append(descriptors, Descriptor{
				Transport: TransportSerial,
				Address:   match,
			})
		}
	}
	sortDescriptors(descriptors)
	return dedupeByAddress(descriptors), nil
}
