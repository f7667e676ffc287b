package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"chemdrive/internal/ipc"
)

func newProjectsCommand(ctx *commandContext) *cobra.Command {
	projectsCmd := &cobra.Command{
		Use:   "projects",
		Short: "Manage recent device configuration projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listProjects(cmd, ctx, 0)
		},
	}

	var listLimit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent projects, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listProjects(cmd, ctx, listLimit)
		},
	}
	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Maximum number of projects to list (0 for all)")

	removeCmd := &cobra.Command{
		Use:   "remove <path>",
		Short: "Forget one recent project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ProjectsRemove(args[0])
				if err != nil {
					return err
				}
				if resp != nil && resp.Removed {
					fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "No record for %s\n", args[0])
				}
				return nil
			})
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Forget all recent projects",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				if _, err := client.ProjectsClear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Recent projects cleared")
				return nil
			})
		},
	}

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Drop records whose configuration files no longer exist",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *ipc.Client) error {
				resp, err := client.ProjectsPrune()
				if err != nil {
					return err
				}
				if resp == nil || len(resp.Pruned) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to prune")
					return nil
				}
				for _, path := range resp.Pruned {
					fmt.Fprintf(cmd.OutOrStdout(), "Pruned %s\n", path)
				}
				return nil
			})
		},
	}

	projectsCmd.AddCommand(listCmd, removeCmd, clearCmd, pruneCmd)
	return projectsCmd
}

func listProjects(cmd *cobra.Command, ctx *commandContext, limit int) error {
	return ctx.withClient(func(client *ipc.Client) error {
		resp, err := client.ProjectsList(limit)
		if err != nil {
			return err
		}
		if resp == nil {
			return errors.New("missing projects response")
		}
		stdout := cmd.OutOrStdout()
		if len(resp.Projects) == 0 {
			fmt.Fprintln(stdout, "No recent projects")
			return nil
		}

		rows := make([][]string, 0, len(resp.Projects))
		for i, project := range resp.Projects {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				project.Name,
				project.Path,
				project.LastUsed.Local().Format("2006-01-02 15:04"),
			})
		}
		fmt.Fprintln(stdout, renderTable(
			[]string{"#", "Name", "Path", "Last Used"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
		))
		return nil
	})
}
