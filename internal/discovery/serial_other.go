//go:build !linux

package discovery

import (
	"context"
	"log/slog"
)

// SerialPorts enumerates serial adapters by path globbing on platforms
// without a sysfs device tree.
func SerialPorts(ctx context.Context, globs []string, logger *slog.Logger) ([]Descriptor, error) {
	return serialFromGlobs(globs)
}
