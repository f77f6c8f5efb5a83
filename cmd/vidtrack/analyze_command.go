package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"vidtrack/internal/config"
	"vidtrack/internal/jobs"
	"vidtrack/internal/logging"
	"vidtrack/internal/pipeline"
	"vidtrack/internal/workflow"
)

// buildPipeline is swapped in tests to run analysis against fakes.
var buildPipeline = func(cfg *config.Config, logger *slog.Logger) (workflow.Runner, error) {
	return pipeline.FromConfig(cfg, logger, nil)
}

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var outPath string
	var keepWorkDir bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "analyze FILE",
		Short: "Analyze a video locally without the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			source, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve input path: %w", err)
			}
			if _, err := os.Stat(source); err != nil {
				return fmt.Errorf("stat %s: %w", args[0], err)
			}

			level := cfg.Logging.Level
			if verbose {
				level = "debug"
			}
			logger, err := logging.New(logging.Options{
				Level:  level,
				Format: "console",
				Writer: cmd.ErrOrStderr(),
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			runner, err := buildPipeline(cfg, logger)
			if err != nil {
				return err
			}

			now := time.Now().UTC()
			job := &jobs.Job{
				ID:         uuid.NewString(),
				SourcePath: source,
				Status:     jobs.StatusPending,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			workDir := pipeline.JobDir(cfg.Paths.WorkDir, job.ID)
			if !keepWorkDir {
				defer func() {
					if err := os.RemoveAll(workDir); err != nil {
						logger.Warn("work dir cleanup failed", logging.String("path", workDir), logging.Error(err))
					}
				}()
			}

			result, err := runner.Run(cmd.Context(), job, workDir)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", filepath.Base(source), err)
			}

			if outPath == "" {
				return writeRawJSON(cmd, result)
			}
			if err := os.WriteFile(outPath, result, 0o644); err != nil {
				return fmt.Errorf("write result: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote result to %s\n", outPath)
			if keepWorkDir {
				fmt.Fprintf(cmd.OutOrStdout(), "Intermediate files kept in %s\n", workDir)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the result document to this file")
	cmd.Flags().BoolVar(&keepWorkDir, "keep", false, "Keep extracted frames and audio")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")
	return cmd
}
