package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"

	"vidtrack/internal/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAPI(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateMedia(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateTracking(); err != nil {
		return err
	}
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateAPI() error {
	if _, _, err := net.SplitHostPort(c.API.Bind); err != nil {
		return fmt.Errorf("api.bind must be host:port: %w", err)
	}
	if c.API.MaxUploadMB <= 0 {
		return errors.New("api.max_upload_mb must be positive")
	}
	if c.API.RateLimitRPS < 0 {
		return errors.New("api.rate_limit_rps must be >= 0")
	}
	if c.API.RateLimitRPS > 0 && c.API.RateLimitBurst < 1 {
		return errors.New("api.rate_limit_burst must be >= 1 when api.rate_limit_rps is set")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Backend {
	case StoreBackendSQLite:
	case StoreBackendPostgres:
		if c.Store.DSN == "" {
			return errors.New("store.dsn must be set when store.backend is postgres (or set VIDTRACK_DATABASE_DSN)")
		}
	default:
		return fmt.Errorf("store.backend must be %q or %q, got %q", StoreBackendSQLite, StoreBackendPostgres, c.Store.Backend)
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.workers":              c.Workflow.Workers,
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.JobRetentionDays < 0 {
		return errors.New("workflow.job_retention_days must be >= 0")
	}
	if c.Workflow.MaxAttempts < 0 {
		return errors.New("workflow.max_attempts must be >= 0")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateMedia() error {
	if c.Media.FrameInterval <= 0 {
		return errors.New("media.frame_interval must be positive")
	}
	if c.Media.TimeoutSeconds <= 0 {
		return errors.New("media.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateDetection() error {
	for key, raw := range map[string]string{
		"detection.face_url":   c.Detection.FaceURL,
		"detection.object_url": c.Detection.ObjectURL,
	} {
		if raw == "" {
			return fmt.Errorf("%s must be set", key)
		}
		parsed, err := url.Parse(raw)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("%s must be an absolute http(s) URL", key)
		}
	}
	if c.Detection.TimeoutSeconds <= 0 {
		return errors.New("detection.timeout_seconds must be positive")
	}
	if c.Detection.MinConfidence < 0 || c.Detection.MinConfidence > 1 {
		return errors.New("detection.min_confidence must be between 0 and 1")
	}
	if c.Detection.MaxImageSide < 0 {
		return errors.New("detection.max_image_side must be >= 0")
	}
	switch c.Detection.FaceBoxFormat {
	case BoxFormatXYXY, BoxFormatXYWH:
	default:
		return fmt.Errorf("detection.face_box_format must be %q or %q", BoxFormatXYXY, BoxFormatXYWH)
	}
	return nil
}

func (c *Config) validateTracking() error {
	if c.Tracking.MaxAge < 1 {
		return errors.New("tracking.max_age must be >= 1")
	}
	if c.Tracking.IoUThreshold < 0 || c.Tracking.IoUThreshold >= 1 {
		return errors.New("tracking.iou_threshold must be in [0, 1)")
	}
	return nil
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Provider {
	case TranscriptionOpenAI, TranscriptionWhisperX:
	default:
		return fmt.Errorf("transcription.provider must be %q or %q", TranscriptionOpenAI, TranscriptionWhisperX)
	}
	if c.Transcription.TimeoutSeconds <= 0 {
		return errors.New("transcription.timeout_seconds must be positive")
	}
	if c.Transcription.Language != "" && !language.Valid(c.Transcription.Language) {
		return fmt.Errorf("transcription.language %q is not a recognized language", c.Transcription.Language)
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if !c.Translation.Enabled {
		return nil
	}
	if c.Translation.TimeoutSeconds <= 0 {
		return errors.New("translation.timeout_seconds must be positive")
	}
	if !language.Valid(c.Translation.TargetLanguage) {
		return fmt.Errorf("translation.target_language %q is not a recognized language", c.Translation.TargetLanguage)
	}
	return nil
}

func (c *Config) validateLogging() error {
	levels := map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "warning": {}, "error": {}}
	if _, ok := levels[c.Logging.Level]; !ok {
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	for stage, level := range c.Logging.StageOverrides {
		if _, ok := levels[level]; !ok {
			return fmt.Errorf("logging.stage_overrides.%s has unsupported level %q", stage, level)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
