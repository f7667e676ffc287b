package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDiscovery(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServer() error {
	if strings.TrimSpace(c.Server.Binary) == "" {
		return errors.New("server.binary must be set")
	}
	if strings.TrimSpace(c.Server.ReadyMarker) == "" {
		return errors.New("server.ready_marker must be set")
	}
	if c.Server.StartTimeout < 0 {
		return errors.New("server.start_timeout must not be negative")
	}
	if c.Server.StopGrace <= 0 {
		return errors.New("server.stop_grace must be positive")
	}
	if c.Server.KillGrace <= 0 {
		return errors.New("server.kill_grace must be positive")
	}
	return nil
}

func (c *Config) validateDiscovery() error {
	if c.Discovery.EthernetPort < 1 || c.Discovery.EthernetPort > 65535 {
		return fmt.Errorf("discovery.ethernet_port %d out of range", c.Discovery.EthernetPort)
	}
	if c.Discovery.EthernetTimeout <= 0 {
		return errors.New("discovery.ethernet_timeout must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
