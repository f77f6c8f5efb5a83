package preflight

import (
	"context"

	"vidtrack/internal/config"
	"vidtrack/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir),
		CheckDirectoryAccess("Upload directory", cfg.Paths.UploadDir),
	}

	for _, status := range deps.CheckBinaries(deps.ForConfig(cfg)) {
		results = append(results, FromDependency(status))
	}

	results = append(results,
		CheckDetector(ctx, "Face detector", cfg.Detection.FaceURL),
		CheckDetector(ctx, "Object detector", cfg.Detection.ObjectURL),
	)

	if cfg.Transcription.Provider == config.TranscriptionOpenAI {
		results = append(results, CheckOpenAI(ctx, "Transcription API", cfg.Transcription.APIKey, cfg.Transcription.BaseURL))
	}

	// Translation shares the transcription credentials in the common setup;
	// one check covers both.
	if cfg.Translation.Enabled && translationUsesDistinctAPI(cfg) {
		results = append(results, CheckOpenAI(ctx, "Translation API", cfg.Translation.APIKey, cfg.Translation.BaseURL))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}

func translationUsesDistinctAPI(cfg *config.Config) bool {
	if cfg.Transcription.Provider != config.TranscriptionOpenAI {
		return true
	}
	return cfg.Translation.APIKey != cfg.Transcription.APIKey || cfg.Translation.BaseURL != cfg.Transcription.BaseURL
}
