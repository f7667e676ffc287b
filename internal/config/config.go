package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Server describes how the external device server is launched and watched.
type Server struct {
	// Binary is the device-server entry point, resolved via PATH when relative.
	Binary string `toml:"binary"`
	// Args are inserted before the configuration file path argument.
	Args []string `toml:"args"`
	// ReadyMarker is the stdout/stderr substring that signals the listener is bound.
	ReadyMarker string `toml:"ready_marker"`
	// StartTimeout is the number of seconds to wait for the ready marker before
	// logging a warning. Zero waits indefinitely.
	StartTimeout int `toml:"start_timeout"`
	// StopGrace is the number of seconds granted after the graceful interrupt.
	StopGrace int `toml:"stop_grace"`
	// KillGrace is the number of seconds granted after terminate, before kill.
	KillGrace int `toml:"kill_grace"`
	// DisplayHost replaces wildcard listen hosts (0.0.0.0, ::) in presented URLs.
	DisplayHost string `toml:"display_host"`
}

// Discovery contains settings for serial and Ethernet device scans.
type Discovery struct {
	// SerialGlobs are fallback device path patterns when udev is unavailable.
	SerialGlobs []string `toml:"serial_globs"`
	// EthernetPort is the UDP port probed during broadcast discovery.
	EthernetPort int `toml:"ethernet_port"`
	// EthernetTimeout is the reply collection window in seconds.
	EthernetTimeout int `toml:"ethernet_timeout"`
}

// Notifications contains ntfy push notification settings.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	ServerEvents   bool   `toml:"server_events"`
	Errors         bool   `toml:"errors"`
}

// Logging contains log output configuration.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for chemdrive.
//
// Sections by subsystem:
//   - Paths: per-user data and log directories
//   - Server: device-server launch command, readiness marker, shutdown grace
//   - Discovery: serial/Ethernet scan settings
//   - Notifications: ntfy push settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Server        Server        `toml:"server"`
	Discovery     Discovery     `toml:"discovery"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/chemdrive/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded. The second return is the resolved
// path, the third reports whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("chemdrive.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.SnapshotDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SnapshotDir returns the directory holding temporary configuration snapshots.
func (c *Config) SnapshotDir() string {
	return filepath.Join(c.Paths.DataDir, "snapshots")
}

// ProjectsDBPath returns the recent-projects database location.
func (c *Config) ProjectsDBPath() string {
	return filepath.Join(c.Paths.DataDir, "projects.db")
}

// SocketPath returns the host control socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "chemdrive.sock")
}

// PIDPath returns the host pid file location.
func (c *Config) PIDPath() string {
	return filepath.Join(c.Paths.DataDir, "chemdrive.pid")
}

// LockPath returns the host single-instance lock location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "chemdrive.lock")
}

// LogPath returns the host log file location.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "chemdrive.log")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
