package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"chemdrive/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	res := CheckDirectoryAccess("Data directory", dir)
	if !res.Passed {
		t.Fatalf("expected pass, got %+v", res)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	res := CheckDirectoryAccess("Data directory", filepath.Join(t.TempDir(), "missing"))
	if res.Passed {
		t.Fatalf("expected failure, got %+v", res)
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	res := CheckDirectoryAccess("Data directory", file)
	if res.Passed {
		t.Fatalf("expected failure, got %+v", res)
	}
}

func TestCheckServerBinary_Missing(t *testing.T) {
	res := CheckServerBinary("definitely-not-a-real-binary-name")
	if res.Passed {
		t.Fatalf("expected failure, got %+v", res)
	}
}

func TestCheckServerBinary_Found(t *testing.T) {
	res := CheckServerBinary("sh")
	if !res.Passed {
		t.Fatalf("expected pass, got %+v", res)
	}
}

func TestCheckNtfyTopic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	res := CheckNtfyTopic(context.Background(), &cfg)
	if !res.Passed {
		t.Fatalf("expected pass, got %+v", res)
	}

	cfg.Notifications.NtfyTopic = "not a url"
	res = CheckNtfyTopic(context.Background(), &cfg)
	if res.Passed {
		t.Fatalf("expected failure, got %+v", res)
	}
}

func TestRun_NilConfig(t *testing.T) {
	if results := Run(context.Background(), nil); results != nil {
		t.Fatalf("expected nil results, got %+v", results)
	}
}

func TestHasFailure(t *testing.T) {
	if HasFailure([]Result{{Passed: true}}) {
		t.Fatal("unexpected failure flag")
	}
	if !HasFailure([]Result{{Passed: true}, {Passed: false}}) {
		t.Fatal("expected failure flag")
	}
}
