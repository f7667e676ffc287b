package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"chemdrive/internal/ipc"
	"chemdrive/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and device-server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)

			client, err := ctx.dialClient()
			if err != nil {
				return renderOfflineStatus(cmd, ctx, colorize)
			}
			defer client.Close()

			resp, err := client.Status()
			if err != nil {
				return fmt.Errorf("query daemon status: %w", err)
			}
			renderDaemonStatus(stdout, ctx, resp.Status, colorize)
			return nil
		},
	}
}

func renderDaemonStatus(out io.Writer, ctx *commandContext, status ipc.Status, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Running", statusOK, yesNo(status.Running), colorize))
	fmt.Fprintln(out, renderStatusLine("Socket", statusInfo, ctx.socketPath(), colorize))
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Device Server", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("State", serverStateKind(status.State), status.State, colorize))
	if status.Address != "" {
		fmt.Fprintln(out, renderStatusLine("Address", statusOK, status.Address, colorize))
	}
	if status.PID > 0 {
		fmt.Fprintln(out, renderStatusLine("PID", statusInfo, strconv.Itoa(status.PID), colorize))
	}
	if status.ConfigName != "" {
		fmt.Fprintln(out, renderStatusLine("Project", statusInfo, status.ConfigName, colorize))
	}
	if status.ConfigPath != "" {
		fmt.Fprintln(out, renderStatusLine("Config", statusInfo, status.ConfigPath, colorize))
	}
	if status.LastError != "" {
		fmt.Fprintln(out, renderStatusLine("Last error", statusError, status.LastError, colorize))
	}
	fmt.Fprintln(out)

	for _, line := range renderSectionHeader("Paths", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Log file", statusInfo, status.LogPath, colorize))
	fmt.Fprintln(out, renderStatusLine("Projects DB", statusInfo, status.ProjectsDBPath, colorize))
}

func renderOfflineStatus(cmd *cobra.Command, ctx *commandContext, colorize bool) error {
	out := cmd.OutOrStdout()

	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintln(out, renderStatusLine("Running", statusWarn, "no", colorize))
	fmt.Fprintln(out, renderStatusLine("Socket", statusInfo, ctx.socketPath(), colorize))
	fmt.Fprintln(out)

	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	for _, line := range renderSectionHeader("Preflight", colorize) {
		fmt.Fprintln(out, line)
	}
	for _, result := range preflight.Run(cmd.Context(), cfg) {
		kind := statusOK
		if !result.Passed {
			kind = statusError
		}
		fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
	}
	return nil
}

func serverStateKind(state string) statusKind {
	switch state {
	case "running":
		return statusOK
	case "starting", "stopping":
		return statusWarn
	case "error":
		return statusError
	default:
		return statusInfo
	}
}
