package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"chemdrive/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Notifications.NtfyTopic = ""

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	return builder.cfg
}

// WithServerBinary points the config at a specific device-server executable.
func WithServerBinary(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.Binary = path
	}
}

// WithStopGrace overrides the shutdown grace periods, in seconds.
func WithStopGrace(stop, kill int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.StopGrace = stop
		b.cfg.Server.KillGrace = kill
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}

// WriteScript drops an executable shell script into a test temp dir and
// returns its path. Used to stand in for the real device server.
func WriteScript(t testing.TB, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return path
}

// ServerScript returns a stub device server that prints banner after
// reading its config argument, then sleeps until interrupted.
func ServerScript(t testing.TB, banner string) string {
	t.Helper()
	body := fmt.Sprintf(`[ -f "$1" ] || { echo "config not found: $1" >&2; exit 2; }
echo "booting device server"
echo %q >&2
trap 'exit 0' INT TERM
while :; do sleep 0.1; done
`, banner)
	return WriteScript(t, "deviceserver", body)
}

// StubbornServerScript returns a stub server that emits banner and then
// ignores polite shutdown signals, forcing escalation.
func StubbornServerScript(t testing.TB, banner string) string {
	t.Helper()
	body := fmt.Sprintf(`echo %q >&2
trap '' INT TERM
while :; do sleep 0.1; done
`, banner)
	return WriteScript(t, "stubborn-server", body)
}

// CrashingServerScript returns a stub server that exits immediately with
// the given code, before any readiness output.
func CrashingServerScript(t testing.TB, code int) string {
	t.Helper()
	body := fmt.Sprintf("echo \"boot failure\" >&2\nexit %d\n", code)
	return WriteScript(t, "crashing-server", body)
}

// DeviceConfig writes a minimal device configuration document and
// returns its path.
func DeviceConfig(t testing.TB, contents string) string {
	t.Helper()
	if contents == "" {
		contents = "[device.pump]\ntype = \"Elite11\"\nport = \"/dev/ttyUSB0\"\n"
	}
	path := filepath.Join(t.TempDir(), "devices.toml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write device config: %v", err)
	}
	return path
}
