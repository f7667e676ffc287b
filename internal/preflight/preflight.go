package preflight

import (
	"context"

	"chemdrive/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Run executes all applicable preflight checks for the given config.
func Run(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckServerBinary(cfg.Server.Binary),
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
	}

	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfyTopic(ctx, cfg))
	}

	return results
}

// HasFailure reports whether any check did not pass.
func HasFailure(results []Result) bool {
	for _, res := range results {
		if !res.Passed {
			return true
		}
	}
	return false
}
