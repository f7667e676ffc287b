package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"chemdrive/internal/testsupport"
)

func TestCLIRunStatusAndProjects(t *testing.T) {
	env := setupCLITestEnv(t)
	devicePath := testsupport.DeviceConfig(t, "")

	out, _, err := runCLI(t, []string{"run", devicePath, "--wait", "10"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	requireContains(t, out, "Device server ready at 127.0.0.1:8000")

	out, _, err = runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "running")
	requireContains(t, out, "127.0.0.1:8000")
	requireContains(t, out, "devices")

	out, _, err = runCLI(t, []string{"projects"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("projects: %v", err)
	}
	requireContains(t, out, "devices")
	requireContains(t, out, devicePath)

	out, _, err = runCLI(t, []string{"projects", "remove", devicePath}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("projects remove: %v", err)
	}
	requireContains(t, out, "Removed")

	out, _, err = runCLI(t, []string{"projects"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("projects after remove: %v", err)
	}
	requireContains(t, out, "No recent projects")
}

func TestCLIRunRejectsInvalidDocument(t *testing.T) {
	env := setupCLITestEnv(t)
	devicePath := testsupport.DeviceConfig(t, "[device.pump\ntype = \"Elite11\"\n")

	_, _, err := runCLI(t, []string{"run", devicePath, "--wait", "5"}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected run to fail for malformed document")
	}
	if !strings.Contains(err.Error(), "device configuration rejected") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCLIStopWithoutDaemon(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	socket := filepath.Join(t.TempDir(), "absent.sock")

	out, _, err := runCLI(t, []string{"stop"}, socket, "")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestCLILogsShowsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t)

	logPath := env.cfg.LogPath()
	content := "first line\nsecond line\nthird line\n"
	if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
		t.Fatalf("seed log file: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "first line") {
		t.Fatalf("expected only trailing lines, got:\n%s", out)
	}
	requireContains(t, out, "second line")
	requireContains(t, out, "third line")
}

func TestCLIStatusOfflineRunsPreflight(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	cfg := testsupport.NewConfig(t,
		testsupport.WithServerBinary(testsupport.ServerScript(t, testBanner)),
	)
	configPath := filepath.Join(homeDir, ".config", "chemdrive", "config.toml")
	writeTestConfig(t, configPath, cfg)

	socket := filepath.Join(t.TempDir(), "absent.sock")
	out, _, err := runCLI(t, []string{"status"}, socket, configPath)
	if err != nil {
		t.Fatalf("status offline: %v", err)
	}
	requireContains(t, out, "Preflight")
	requireContains(t, out, "Device server binary")
}
