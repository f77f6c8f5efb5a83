package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"vidtrack/internal/api"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool
	var jobID string

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Display daemon logs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				out := cmd.OutOrStdout()
				q := api.LogQuery{Offset: -1, Lines: lines, JobID: jobID}
				for {
					page, err := client.Logs(cmd.Context(), q)
					if err != nil {
						if errors.Is(err, context.Canceled) {
							return nil
						}
						return err
					}
					for _, line := range page.Lines {
						fmt.Fprintln(out, line)
					}
					if !follow {
						return nil
					}
					q.Offset = page.Offset
					q.Lines = 0
					q.Follow = true
				}
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of trailing lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines until interrupted")
	cmd.Flags().StringVar(&jobID, "job", "", "Only show lines logged for this job")
	return cmd
}
