package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeDiscovery()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeServer() {
	c.Server.Binary = strings.TrimSpace(c.Server.Binary)
	if c.Server.Binary == "" {
		c.Server.Binary = defaultServerBinary
	}
	if c.Server.ReadyMarker == "" {
		c.Server.ReadyMarker = defaultReadyMarker
	}
	if c.Server.StopGrace <= 0 {
		c.Server.StopGrace = defaultStopGrace
	}
	if c.Server.KillGrace <= 0 {
		c.Server.KillGrace = defaultKillGrace
	}
	if strings.TrimSpace(c.Server.DisplayHost) == "" {
		c.Server.DisplayHost = defaultDisplayHost
	}
	args := c.Server.Args[:0]
	for _, arg := range c.Server.Args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Server.Args = args
}

func (c *Config) normalizeDiscovery() {
	if len(c.Discovery.SerialGlobs) == 0 {
		c.Discovery.SerialGlobs = defaultSerialGlobs()
	}
	if c.Discovery.EthernetPort <= 0 {
		c.Discovery.EthernetPort = defaultEthernetPort
	}
	if c.Discovery.EthernetTimeout <= 0 {
		c.Discovery.EthernetTimeout = defaultEthernetTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}
