package analysis

import (
	"context"
	"log/slog"
	"strings"

	"vidtrack/internal/logging"
	"vidtrack/internal/tracking"
)

// genericLabel is excluded from primary label selection.
const genericLabel = "person"

// Translator converts text into a target language.
type Translator interface {
	Translate(ctx context.Context, text, targetLang string) (string, error)
}

// SelectPrimaryLabel returns the most frequent non-person label. Ties go to
// the label seen first in objects. ok is false when nothing qualifies.
func SelectPrimaryLabel(objects []tracking.Observation) (label string, count int, ok bool) {
	counts := make(map[string]int)
	var order []string
	for _, obs := range objects {
		if strings.EqualFold(strings.TrimSpace(obs.Label), genericLabel) {
			continue
		}
		if _, seen := counts[obs.Label]; !seen {
			order = append(order, obs.Label)
		}
		counts[obs.Label]++
	}
	for _, candidate := range order {
		if counts[candidate] > count {
			label, count, ok = candidate, counts[candidate], true
		}
	}
	return label, count, ok
}

// FallbackHook observes translation fallbacks.
type FallbackHook func(label string, err error)

// Aggregator assembles Results and translates the primary label.
type Aggregator struct {
	translator Translator
	targetLang string
	logger     *slog.Logger
	onFallback FallbackHook
}

// NewAggregator returns an aggregator. A nil translator always falls back to
// the source label.
func NewAggregator(translator Translator, targetLang string, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		translator: translator,
		targetLang: targetLang,
		logger:     logging.NewComponentLogger(logger, "aggregator"),
	}
}

// OnFallback registers a hook invoked whenever translation falls back.
func (a *Aggregator) OnFallback(hook FallbackHook) {
	a.onFallback = hook
}

// Aggregate builds the Result for one job. Translation problems never fail
// the job.
func (a *Aggregator) Aggregate(ctx context.Context, faces []FaceObservation, objects []tracking.Observation, transcript string) Result {
	result := Result{
		Faces:      faces,
		Objects:    objects,
		Transcript: transcript,
	}
	logger := logging.WithContext(ctx, a.logger)

	label, count, ok := SelectPrimaryLabel(objects)
	if !ok {
		logger.Info("no primary label",
			logging.Int("objects", len(objects)),
			logging.String(logging.FieldEventType, "primary_label_absent"),
		)
		return result
	}

	source := label
	translated := a.translate(ctx, logger, label)
	result.LabelSource = &source
	result.LabelTranslated = &translated

	logger.Info("primary label selected",
		logging.String("label", label),
		logging.Int("count", count),
		logging.String("translated", translated),
		logging.String(logging.FieldEventType, "primary_label_selected"),
	)
	return result
}

func (a *Aggregator) translate(ctx context.Context, logger *slog.Logger, label string) string {
	if a.translator == nil {
		a.fallback(logger, label, nil)
		return label
	}
	translated, err := a.translator.Translate(ctx, label, a.targetLang)
	if err == nil && strings.TrimSpace(translated) != "" {
		return strings.TrimSpace(translated)
	}
	a.fallback(logger, label, err)
	return label
}

func (a *Aggregator) fallback(logger *slog.Logger, label string, err error) {
	if a.onFallback != nil {
		a.onFallback(label, err)
	}
	if a.translator == nil {
		logger.Debug("translation disabled; using source label", logging.String("label", label))
		return
	}
	attrs := []logging.Attr{
		logging.String("label", label),
		logging.String("target_language", a.targetLang),
		logging.String(logging.FieldImpact, "translated label equals source label"),
		logging.String(logging.FieldErrorHint, "check translation.api_key and translation.base_url"),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
	}
	logging.WarnWithContext(logger, "label translation failed", "translation_fallback", attrs...)
}
