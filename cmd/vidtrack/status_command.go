package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"vidtrack/internal/api"
	"vidtrack/internal/deps"
)

var queueStatusOrder = []string{"pending", "completed", "failed"}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, dependency, and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil && !api.IsUnavailable(err) {
				return err
			}
			running := err == nil
			if !running {
				status = api.DaemonStatus{Dependencies: localDependencies(ctx)}
			}
			if asJSON {
				return writeJSON(cmd, status)
			}
			renderStatus(cmd.OutOrStdout(), ctx.address(), running, status)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}

func localDependencies(ctx *commandContext) []api.DependencyStatus {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil
	}
	results := deps.CheckBinaries(deps.ForConfig(cfg))
	out := make([]api.DependencyStatus, 0, len(results))
	for _, dep := range results {
		out = append(out, api.DependencyStatus{
			Name:        dep.Name,
			Command:     dep.Command,
			Description: dep.Description,
			Optional:    dep.Optional,
			Available:   dep.Available,
			Detail:      dep.Detail,
		})
	}
	return out
}

func renderStatus(out io.Writer, addr string, running bool, status api.DaemonStatus) {
	colorize := shouldColorize(out)
	section := func(title string) {
		for _, line := range renderSectionHeader(title, colorize) {
			fmt.Fprintln(out, line)
		}
	}

	section("System Status")
	if running {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d, %s)", status.PID, addr), colorize))
		fmt.Fprintln(out, renderStatusLine("Job store", statusInfo, status.StoreBackend, colorize))
		wf := status.Workflow
		fmt.Fprintln(out, renderStatusLine("Workers", statusInfo, fmt.Sprintf("%d busy of %d", wf.Busy, wf.Workers), colorize))
		if wf.LastError != "" {
			fmt.Fprintln(out, renderStatusLine("Last error", statusWarn, wf.LastError, colorize))
		}
	} else {
		fmt.Fprintln(out, renderStatusLine("Daemon", statusError, "Not reachable at "+addr, colorize))
	}
	fmt.Fprintln(out)

	section("Dependencies")
	if len(status.Dependencies) == 0 {
		fmt.Fprintln(out, renderStatusLine("Summary", statusInfo, "No dependencies reported", colorize))
	}
	for _, dep := range status.Dependencies {
		if dep.Available {
			fmt.Fprintln(out, renderStatusLine(dep.Name, statusOK, "Ready (command: "+dep.Command+")", colorize))
			continue
		}
		kind := statusError
		if dep.Optional {
			kind = statusWarn
		}
		fmt.Fprintln(out, renderStatusLine(dep.Name, kind, dep.Detail, colorize))
	}

	if !running {
		return
	}

	if len(status.Workflow.StageHealth) > 0 {
		fmt.Fprintln(out)
		section("Stages")
		for _, health := range status.Workflow.StageHealth {
			message := "Ready"
			if !health.Ready {
				message = health.Detail
			}
			fmt.Fprintln(out, renderStatusLine(health.Name, passFail(health.Ready, statusWarn), message, colorize))
		}
	}

	fmt.Fprintln(out)
	section("Queue Status")
	rows := queueRows(status.Workflow.QueueStats)
	if len(rows) == 0 {
		fmt.Fprintln(out, "Queue is empty")
		return
	}
	fmt.Fprintln(out, renderTable([]column{
		{header: "Status"},
		{header: "Count", align: alignRight},
	}, rows))
}

func queueRows(stats map[string]int) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, name := range queueStatusOrder {
		if count := stats[name]; count > 0 {
			rows = append(rows, []string{name, strconv.Itoa(count)})
		}
	}
	var extra []string
	for name, count := range stats {
		if count > 0 && !slices.Contains(queueStatusOrder, name) {
			extra = append(extra, name)
		}
	}
	slices.Sort(extra)
	for _, name := range extra {
		rows = append(rows, []string{name, strconv.Itoa(stats[name])})
	}
	return rows
}
