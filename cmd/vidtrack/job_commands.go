package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vidtrack/internal/api"
	"vidtrack/internal/textutil"
)

const (
	shortIDLength    = 8
	errorColumnWidth = 60
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var pollInterval time.Duration
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "submit FILE",
		Short: "Upload a video and create an analysis job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}
			if info.IsDir() {
				return fmt.Errorf("%s is a directory", path)
			}
			return ctx.withClient(func(client *api.Client) error {
				id, err := client.Submit(cmd.Context(), path)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !wait {
					fmt.Fprintln(out, id)
					return nil
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Submitted job %s; waiting for result\n", id)
				waitCtx := cmd.Context()
				if timeout > 0 {
					var cancel context.CancelFunc
					waitCtx, cancel = context.WithTimeout(waitCtx, timeout)
					defer cancel()
				}
				res, err := client.WaitForResult(waitCtx, id, pollInterval)
				if err != nil {
					return err
				}
				return printResult(cmd, id, res)
			})
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the job to finish and print its result")
	cmd.Flags().DurationVar(&pollInterval, "poll", 2*time.Second, "Polling interval while waiting")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up waiting after this long (0 waits forever)")
	return cmd
}

func newResultCommand(ctx *commandContext) *cobra.Command {
	var wait bool
	var pollInterval time.Duration

	cmd := &cobra.Command{
		Use:   "result JOB_ID",
		Short: "Print a job's result, or its status while pending",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := strings.TrimSpace(args[0])
			return ctx.withClient(func(client *api.Client) error {
				var (
					res api.ResultResponse
					err error
				)
				if wait {
					res, err = client.WaitForResult(cmd.Context(), id, pollInterval)
				} else {
					res, err = client.Result(cmd.Context(), id)
				}
				if err != nil {
					return err
				}
				return printResult(cmd, id, res)
			})
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait while the job is pending")
	cmd.Flags().DurationVar(&pollInterval, "poll", 2*time.Second, "Polling interval while waiting")
	return cmd
}

func printResult(cmd *cobra.Command, id string, res api.ResultResponse) error {
	switch res.Status {
	case "completed":
		return writeRawJSON(cmd, res.Result)
	case "failed":
		return fmt.Errorf("job %s failed: %s", id, res.Error)
	default:
		fmt.Fprintf(cmd.OutOrStdout(), "Job %s is %s\n", id, res.Status)
		return nil
	}
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "jobs",
		Aliases: []string{"ls"},
		Short:   "List jobs known to the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				list, err := client.Jobs(cmd.Context(), statuses...)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, list)
				}
				out := cmd.OutOrStdout()
				if len(list) == 0 {
					fmt.Fprintln(out, "No jobs")
					return nil
				}
				colorize := shouldColorize(out)
				rows := make([][]string, 0, len(list))
				for _, job := range list {
					rows = append(rows, []string{
						shortID(job.ID),
						job.SourceFile,
						colorStatus(job.Status, colorize),
						displayTime(job.CreatedAt),
						displayTime(job.FinishedAt),
						textutil.Truncate(job.ErrorMessage, errorColumnWidth),
					})
				}
				fmt.Fprintln(out, renderTable([]column{
					{header: "ID"},
					{header: "File", maxWidth: 40},
					{header: "Status"},
					{header: "Created"},
					{header: "Finished"},
					{header: "Error"},
				}, rows))
				return nil
			})
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (pending, completed, failed)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show JOB_ID",
		Short: "Show job details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				job, err := client.Job(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					var statusErr *api.StatusError
					if errors.As(err, &statusErr) && statusErr.StatusCode == 404 {
						return fmt.Errorf("job %s not found", args[0])
					}
					return err
				}
				if asJSON {
					return writeJSON(cmd, job)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "ID:          %s\n", job.ID)
				fmt.Fprintf(out, "File:        %s\n", job.SourceFile)
				fmt.Fprintf(out, "Status:      %s\n", job.Status)
				fmt.Fprintf(out, "Running:     %s\n", yesNo(job.Claimed))
				fmt.Fprintf(out, "Attempts:    %d\n", job.Attempts)
				fmt.Fprintf(out, "Created:     %s\n", displayTime(job.CreatedAt))
				if job.FinishedAt != "" {
					fmt.Fprintf(out, "Finished:    %s\n", displayTime(job.FinishedAt))
				}
				if job.LastHeartbeat != "" {
					fmt.Fprintf(out, "Heartbeat:   %s\n", displayTime(job.LastHeartbeat))
				}
				if job.ResultBytes > 0 {
					fmt.Fprintf(out, "Result size: %d bytes\n", job.ResultBytes)
				}
				if job.ErrorMessage != "" {
					fmt.Fprintf(out, "Error:       %s\n", job.ErrorMessage)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func shortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

// displayTime renders an API timestamp in local time.
func displayTime(value string) string {
	if value == "" {
		return "-"
	}
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return value
	}
	return parsed.Local().Format("2006-01-02 15:04:05")
}
