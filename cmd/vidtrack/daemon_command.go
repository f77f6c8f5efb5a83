package main

import (
	"github.com/spf13/cobra"

	"vidtrack/internal/daemonrun"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	var logLevel string
	var development bool
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the vidtrack daemon in the foreground",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if addr := flagValue(ctx.addrFlag); addr != "" {
				cfg.API.Bind = addr
			}
			return daemonrun.Run(cmd.Context(), cfg, daemonrun.Options{
				LogLevel:      logLevel,
				Development:   development,
				SkipPreflight: skipPreflight,
			})
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&development, "dev", false, "Use development logging (console format, debug level)")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip readiness probes at startup")
	return cmd
}
