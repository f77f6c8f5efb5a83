package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DaemonLogPattern matches vidtrackd.log and its rotated siblings.
const DaemonLogPattern = "*.log*"

// PruneOptions selects the log files PruneLogs may remove.
type PruneOptions struct {
	Dir string
	// Pattern defaults to DaemonLogPattern.
	Pattern string
	// MaxAge of zero or less disables pruning.
	MaxAge time.Duration
	// Active paths are never removed, even when stale.
	Active []string
	// Now defaults to time.Now.
	Now time.Time
}

// PruneLogs removes regular files in opts.Dir that match opts.Pattern and
// were last modified before Now-MaxAge. It returns the number removed.
// Removal failures are logged and skipped.
func PruneLogs(logger *slog.Logger, opts PruneOptions) int {
	dir := strings.TrimSpace(opts.Dir)
	if opts.MaxAge <= 0 || dir == "" {
		return 0
	}
	pattern := strings.TrimSpace(opts.Pattern)
	if pattern == "" {
		pattern = DaemonLogPattern
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	cutoff := now.Add(-opts.MaxAge)

	active := make(map[string]struct{}, len(opts.Active))
	for _, path := range opts.Active {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			active[absPath(trimmed)] = struct{}{}
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if matched, err := filepath.Match(pattern, entry.Name()); err != nil || !matched {
			continue
		}
		path := absPath(filepath.Join(dir, entry.Name()))
		if _, ok := active[path]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "daemon log prune failed", "log_prune_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check ownership of paths.log_dir"),
				String(FieldImpact, "stale daemon log stays on disk"),
			)
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Info("daemon logs pruned",
			Int("removed", removed),
			Duration("max_age", opts.MaxAge),
			String(FieldEventType, "logs_pruned"),
		)
	}
	return removed
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
