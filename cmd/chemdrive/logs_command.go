package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"chemdrive/internal/ipc"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show daemon and device-server log output",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				stdout := cmd.OutOrStdout()

				resp, err := client.LogTail(ipc.LogTailRequest{Offset: -1, Limit: lines})
				if err != nil {
					return err
				}
				for _, line := range resp.Lines {
					fmt.Fprintln(stdout, line)
				}
				if !follow {
					return nil
				}

				offset := resp.Offset
				for {
					select {
					case <-cmd.Context().Done():
						return cmd.Context().Err()
					default:
					}
					resp, err = client.LogTail(ipc.LogTailRequest{
						Offset:     offset,
						Follow:     true,
						WaitMillis: 2000,
					})
					if err != nil {
						return err
					}
					for _, line := range resp.Lines {
						fmt.Fprintln(stdout, line)
					}
					offset = resp.Offset
				}
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep streaming new log lines")
	return cmd
}
