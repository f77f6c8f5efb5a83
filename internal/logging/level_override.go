package logging

import (
	"context"
	"log/slog"
	"strings"
)

// levelOverrideHandler raises the minimum level of a derived logger. The
// wrapped handler still applies its own level first.
type levelOverrideHandler struct {
	next  slog.Handler
	level slog.Level
}

func newLevelOverrideHandler(next slog.Handler, level slog.Level) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	return &levelOverrideHandler{next: next, level: level}
}

func (h *levelOverrideHandler) Enabled(ctx context.Context, level slog.Level) bool {
	if level < h.level {
		return false
	}
	return h.next.Enabled(ctx, level)
}

func (h *levelOverrideHandler) Handle(ctx context.Context, record slog.Record) error {
	if record.Level < h.level {
		return nil
	}
	return h.next.Handle(ctx, record)
}

func (h *levelOverrideHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelOverrideHandler{
		next:  h.next.WithAttrs(attrs),
		level: h.level,
	}
}

func (h *levelOverrideHandler) WithGroup(name string) slog.Handler {
	return &levelOverrideHandler{
		next:  h.next.WithGroup(name),
		level: h.level,
	}
}

func (h *levelOverrideHandler) cloneWithLevel(level slog.Level) slog.Handler {
	return &levelOverrideHandler{next: h.next, level: level}
}

// WithLevelOverride returns a logger that enforces the provided minimum level
// while preserving existing attributes and handler wiring.
func WithLevelOverride(logger *slog.Logger, level slog.Level) *slog.Logger {
	if logger == nil {
		return slog.New(newLevelOverrideHandler(nil, level))
	}
	if existing, ok := logger.Handler().(*levelOverrideHandler); ok {
		return slog.New(existing.cloneWithLevel(level))
	}
	return slog.New(newLevelOverrideHandler(logger.Handler(), level))
}

// ForStage tags logger with the stage name and applies the matching entry of
// overrides (keyed by lowercase stage name) when one is configured.
func ForStage(logger *slog.Logger, stage string, overrides map[string]string) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	logger = logger.With(String(FieldStage, stage))
	raw, ok := overrides[strings.ToLower(strings.TrimSpace(stage))]
	if !ok || strings.TrimSpace(raw) == "" {
		return logger
	}
	return WithLevelOverride(logger, ParseLevel(raw))
}
