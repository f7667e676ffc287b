package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"chemdrive/internal/config"
)

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigValidateCommand())
	configCmd.AddCommand(newConfigShowCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to point server.binary at your device-server launcher.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Validate configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "Config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func newConfigShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "show",
		Short:       "Print the effective configuration",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load("")
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s (exists: %s)\n\n", path, yesNo(exists))
			fmt.Fprintf(out, "data_dir         = %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "log_dir          = %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "server.binary    = %s\n", cfg.Server.Binary)
			if len(cfg.Server.Args) > 0 {
				fmt.Fprintf(out, "server.args      = %s\n", strings.Join(cfg.Server.Args, " "))
			}
			fmt.Fprintf(out, "ready_marker     = %q\n", cfg.Server.ReadyMarker)
			fmt.Fprintf(out, "start_timeout    = %ds\n", cfg.Server.StartTimeout)
			fmt.Fprintf(out, "stop_grace       = %ds\n", cfg.Server.StopGrace)
			fmt.Fprintf(out, "kill_grace       = %ds\n", cfg.Server.KillGrace)
			fmt.Fprintf(out, "display_host     = %s\n", cfg.Server.DisplayHost)
			fmt.Fprintf(out, "serial_globs     = %s\n", strings.Join(cfg.Discovery.SerialGlobs, " "))
			fmt.Fprintf(out, "ethernet_port    = %d\n", cfg.Discovery.EthernetPort)
			fmt.Fprintf(out, "ethernet_timeout = %ds\n", cfg.Discovery.EthernetTimeout)
			fmt.Fprintf(out, "ntfy_topic       = %s\n", cfg.Notifications.NtfyTopic)
			fmt.Fprintf(out, "log_format       = %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "log_level        = %s\n", cfg.Logging.Level)
			return nil
		},
	}
}
