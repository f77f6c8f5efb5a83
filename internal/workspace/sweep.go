// Package workspace reclaims per-job working directories that outlived their
// job, for example after the daemon was killed mid-analysis.
package workspace

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"vidtrack/internal/logging"
)

// SweepResult lists what a sweep removed and what it failed to remove.
type SweepResult struct {
	Removed []string
	Errors  []SweepError
}

// SweepError pairs a directory with the error that kept it on disk.
type SweepError struct {
	Path string
	Err  error
}

// SweepOptions controls which job directories survive a sweep.
type SweepOptions struct {
	// Active names job directories that belong to running jobs.
	Active map[string]struct{}
	// MinAge spares directories modified more recently than this.
	MinAge time.Duration
}

// Sweep removes job directories directly under root that are not active and
// are older than opts.MinAge. Plain files are left alone.
func Sweep(ctx context.Context, root string, opts SweepOptions, logger *slog.Logger) SweepResult {
	var result SweepResult
	root = strings.TrimSpace(root)
	if root == "" {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			result.Errors = append(result.Errors, SweepError{Path: root, Err: err})
		}
		return result
	}

	cutoff := time.Now().Add(-opts.MinAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			return result
		}
		if !entry.IsDir() {
			continue
		}
		if _, active := opts.Active[entry.Name()]; active {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, SweepError{Path: dir, Err: err})
			continue
		}
		if opts.MinAge > 0 && !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			result.Errors = append(result.Errors, SweepError{Path: dir, Err: err})
			logging.WarnWithContext(logger, "failed to remove stale work directory", "workspace_sweep_failed",
				logging.String("path", dir),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check work_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, dir)
		logger.Info("removed stale work directory",
			logging.String(logging.FieldJobID, entry.Name()),
			logging.Duration("age", time.Since(info.ModTime())),
			logging.String(logging.FieldEventType, "workspace_sweep"),
		)
	}
	return result
}
