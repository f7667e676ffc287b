package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"chemdrive/internal/daemonctl"
	"chemdrive/internal/ipc"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var takeOver bool
	var waitSeconds int

	cmd := &cobra.Command{
		Use:   "run <device-config>",
		Short: "Launch the device server for a configuration file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()

			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("resolve executable: %w", err)
			}
			launched, err := daemonctl.EnsureStarted(
				ctx.socketPath(),
				exe,
				daemonctl.LaunchOptions{
					SocketPath: ctx.socketPath(),
					ConfigPath: ctx.configPath(),
				},
				10*time.Second,
			)
			if err != nil {
				return err
			}
			if launched {
				fmt.Fprintln(stdout, "Daemon not running, launching...")
			}

			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.Run(ipc.RunRequest{
					ConfigPath: args[0],
					TakeOver:   takeOver,
					WaitMillis: waitSeconds * 1000,
				})
				if err != nil {
					return err
				}
				if resp == nil {
					return errors.New("missing run response")
				}
				if !resp.Started {
					if resp.Message != "" {
						return errors.New(resp.Message)
					}
					return errors.New("device server did not start")
				}
				switch {
				case resp.Status.Address != "":
					fmt.Fprintf(stdout, "Device server ready at %s\n", resp.Status.Address)
				case resp.Message != "":
					fmt.Fprintln(stdout, resp.Message)
				default:
					fmt.Fprintln(stdout, "Device server starting")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&takeOver, "take-over", false, "Terminate stray device-server processes before launching")
	cmd.Flags().IntVar(&waitSeconds, "wait", 30, "Seconds to wait for the server to report ready")
	return cmd
}
