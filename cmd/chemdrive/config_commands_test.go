package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigInitAndValidate(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	out, _, err := runCLI(t, []string{"config", "validate"}, filepath.Join(t.TempDir(), "unused.sock"), "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	tmp := t.TempDir()
	target := filepath.Join(tmp, "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected init to refuse overwriting existing file")
	}
}

func TestConfigShowPrintsEffectiveValues(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)

	out, _, err := runCLI(t, []string{"config", "show"}, "", "")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "ready_marker")
	requireContains(t, out, "Uvicorn running on")
}
