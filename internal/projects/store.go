// Package projects persists the recent-projects list, the device
// configuration files a user has opened, ordered by last use.
package projects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"chemdrive/internal/config"
)

// Record is one remembered device configuration file.
type Record struct {
	Path     string
	Name     string
	LastUsed time.Time
}

// Store manages recent-project persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

// Open initializes or connects to the recent-projects database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.ProjectsDBPath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS projects (
	path TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	last_used TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_projects_last_used ON projects(last_used DESC);
`
	if _, err := s.execWithRetry(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Touch records a use of the project at path, inserting it if new and
// bumping its last-used timestamp otherwise.
func (s *Store) Touch(ctx context.Context, path, name string) error {
	if path == "" {
		return errors.New("project path required")
	}
	const query = `
INSERT INTO projects (path, name, last_used) VALUES (?, ?, ?)
ON CONFLICT(path) DO UPDATE SET name = excluded.name, last_used = excluded.last_used
`
	if _, err := s.execWithRetry(ctx, query, path, name, time.Now().UTC()); err != nil {
		return fmt.Errorf("touch project %q: %w", path, err)
	}
	return nil
}

// List returns all remembered projects, most recently used first,
// limited to limit entries when limit is positive.
func (s *Store) List(ctx context.Context, limit int) ([]Record, error) {
	ctx = ensureContext(ctx)
	query := "SELECT path, name, last_used FROM projects ORDER BY last_used DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Path, &rec.Name, &rec.LastUsed); err != nil {
			return nil, fmt.Errorf("scan project row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return records, nil
}

// Remove forgets the project at path. Removing an unknown path is not
// an error.
func (s *Store) Remove(ctx context.Context, path string) error {
	if _, err := s.execWithRetry(ctx, "DELETE FROM projects WHERE path = ?", path); err != nil {
		return fmt.Errorf("remove project %q: %w", path, err)
	}
	return nil
}

// Clear forgets every remembered project.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.execWithRetry(ctx, "DELETE FROM projects"); err != nil {
		return fmt.Errorf("clear projects: %w", err)
	}
	return nil
}

// Prune drops entries whose files no longer exist on disk, using the
// supplied existence check. Returns the pruned paths.
func (s *Store) Prune(ctx context.Context, exists func(string) bool) ([]string, error) {
	records, err := s.List(ctx, 0)
	if err != nil {
		return nil, err
	}
	var pruned []string
	for _, rec := range records {
		if exists(rec.Path) {
			continue
		}
		if err := s.Remove(ctx, rec.Path); err != nil {
			return pruned, err
		}
		pruned = append(pruned, rec.Path)
	}
	return pruned, nil
}
