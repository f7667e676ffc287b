package testsupport

import (
	"context"
	"testing"

	"chemdrive/internal/config"
	"chemdrive/internal/projects"
)

// MustOpenProjects opens a projects.Store for tests and registers cleanup.
func MustOpenProjects(t testing.TB, cfg *config.Config) *projects.Store {
	t.Helper()

	store, err := projects.Open(cfg)
	if err != nil {
		t.Fatalf("projects.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// TouchProject records a project use for tests.
func TouchProject(t testing.TB, store *projects.Store, path, name string) {
	t.Helper()

	if err := store.Touch(context.Background(), path, name); err != nil {
		t.Fatalf("store.Touch: %v", err)
	}
}
