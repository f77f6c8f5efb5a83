package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vidtrack/internal/jobs"
	"vidtrack/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check directories, binaries, detectors, and API credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)

			store, err := jobs.Open(cfg)
			if err != nil {
				results = append(results, preflight.Result{Name: "Job store", Detail: err.Error()})
			} else {
				results = append(results, preflight.CheckStore(cmd.Context(), store.Backend(), store))
				_ = store.Close()
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Preflight", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, result := range results {
				message := result.Detail
				if message == "" && result.Passed {
					message = "OK"
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, passFail(result.Passed, statusError), message, colorize))
			}

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d of %d preflight checks failed", len(failed), len(results))
			}
			return nil
		},
	}
}
