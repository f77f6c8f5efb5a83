package pipeline

import (
	"log/slog"
	"strings"
	"time"

	"vidtrack/internal/analysis"
	"vidtrack/internal/config"
	"vidtrack/internal/detection"
	"vidtrack/internal/media"
	"vidtrack/internal/metrics"
	"vidtrack/internal/services"
	"vidtrack/internal/tracking"
	"vidtrack/internal/transcribe"
	"vidtrack/internal/translate"
)

// FromConfig builds the production pipeline: ffmpeg preparation, HTTP
// detectors, the configured transcription provider, and the OpenAI
// translator when translation is enabled.
func FromConfig(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) (*Pipeline, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "pipeline", "init", "config is nil", nil)
	}
	c, err := CollaboratorsFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}
	return New(c, OptionsFromConfig(cfg), logger, m)
}

// OptionsFromConfig maps configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Detection: detection.DriverOptions{
			MinConfidence: cfg.Detection.MinConfidence,
			Tracking: tracking.Options{
				MaxAge:       cfg.Tracking.MaxAge,
				IoUThreshold: cfg.Tracking.IoUThreshold,
			},
		},
		TranscriptLanguage: cfg.Transcription.Language,
		TargetLanguage:     cfg.Translation.TargetLanguage,
		StageOverrides:     cfg.Logging.StageOverrides,
	}
}

// CollaboratorsFromConfig constructs the production adapters.
func CollaboratorsFromConfig(cfg *config.Config, logger *slog.Logger) (Collaborators, error) {
	preparer := media.NewFFmpegPreparer(media.Options{
		FFmpegBinary:    cfg.Media.FFmpegBinary,
		FFprobeBinary:   cfg.Media.FFprobeBinary,
		FrameInterval:   cfg.Media.FrameInterval,
		AudioSampleRate: cfg.Media.AudioSampleRate,
		Timeout:         seconds(cfg.Media.TimeoutSeconds),
	}, logger)

	detectTimeout := seconds(cfg.Detection.TimeoutSeconds)
	faces := detection.NewClient(cfg.Detection.FaceURL, detectTimeout,
		detection.WithMaxImageSide(cfg.Detection.MaxImageSide),
		detection.WithBoxFormat(cfg.Detection.FaceBoxFormat),
	)
	objects := detection.NewClient(cfg.Detection.ObjectURL, detectTimeout,
		detection.WithMaxImageSide(cfg.Detection.MaxImageSide),
	)

	var transcriber transcribe.Transcriber
	switch strings.ToLower(strings.TrimSpace(cfg.Transcription.Provider)) {
	case config.TranscriptionWhisperX:
		transcriber = transcribe.NewWhisperX(transcribe.WhisperXConfig{
			Model:       cfg.Transcription.WhisperXModel,
			CUDAEnabled: cfg.Transcription.WhisperXCUDA,
		})
	case config.TranscriptionOpenAI, "":
		transcriber = transcribe.NewOpenAI(transcribe.OpenAIConfig{
			APIKey:  cfg.Transcription.APIKey,
			BaseURL: cfg.Transcription.BaseURL,
			Model:   cfg.Transcription.Model,
			Timeout: seconds(cfg.Transcription.TimeoutSeconds),
		})
	default:
		return Collaborators{}, services.Wrap(services.ErrConfiguration, "pipeline", "init",
			"unknown transcription.provider "+cfg.Transcription.Provider, nil)
	}

	var translator analysis.Translator
	if cfg.Translation.Enabled {
		translator = translate.NewClient(translate.Config{
			APIKey:  cfg.Translation.APIKey,
			BaseURL: cfg.Translation.BaseURL,
			Model:   cfg.Translation.Model,
			Timeout: seconds(cfg.Translation.TimeoutSeconds),
		})
	}

	return Collaborators{
		Preparer:    preparer,
		Faces:       faces,
		Objects:     objects,
		Transcriber: transcriber,
		Translator:  translator,
	}, nil
}

func seconds(v int) time.Duration {
	return time.Duration(v) * time.Second
}
