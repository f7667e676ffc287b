package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chemdrive/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, exists, err := config.Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatalf("expected exists=false for %s", path)
	}
	if cfg.Server.Binary != "flowchem" {
		t.Fatalf("unexpected default binary %q", cfg.Server.Binary)
	}
	if cfg.Server.StopGrace != 3 || cfg.Server.KillGrace != 1 {
		t.Fatalf("unexpected shutdown grace defaults: %+v", cfg.Server)
	}
	if !strings.HasPrefix(cfg.Server.ReadyMarker, "Uvicorn running on") {
		t.Fatalf("unexpected ready marker %q", cfg.Server.ReadyMarker)
	}
}

func TestLoadParsesAndExpandsPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
data_dir = "` + dir + `/data"
log_dir = "` + dir + `/logs"

[server]
binary = "/opt/flowchem/bin/flowchem"
ready_marker = "listening on "
stop_grace = 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be detected")
	}
	if cfg.Server.Binary != "/opt/flowchem/bin/flowchem" {
		t.Fatalf("binary = %q", cfg.Server.Binary)
	}
	if cfg.Server.ReadyMarker != "listening on " {
		t.Fatalf("ready marker = %q", cfg.Server.ReadyMarker)
	}
	if cfg.Server.StopGrace != 5 {
		t.Fatalf("stop grace = %d", cfg.Server.StopGrace)
	}
	if !filepath.IsAbs(cfg.Paths.DataDir) {
		t.Fatalf("data dir not absolute: %q", cfg.Paths.DataDir)
	}
	if cfg.SocketPath() != filepath.Join(cfg.Paths.DataDir, "chemdrive.sock") {
		t.Fatalf("socket path = %q", cfg.SocketPath())
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "bad log format",
			content: `
[logging]
format = "xml"
`,
		},
		{
			name: "bad ethernet port",
			content: `
[discovery]
ethernet_port = 700000
`,
		},
		{
			name: "negative start timeout",
			content: `
[server]
start_timeout = -1
`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, _, _, err := config.Load(path); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
}

func TestEnsureDirectoriesCreatesDataTree(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, p := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.SnapshotDir()} {
		info, err := os.Stat(p)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s, err=%v", p, err)
		}
	}
}
