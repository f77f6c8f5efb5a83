package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeAPI()
	c.normalizeStore()
	c.normalizeMedia()
	c.normalizeDetection()
	c.normalizeTranscription()
	c.normalizeTranslation()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.data_dir", &c.Paths.DataDir, defaultDataDir},
		{"paths.work_dir", &c.Paths.WorkDir, defaultWorkDir},
		{"paths.upload_dir", &c.Paths.UploadDir, defaultUploadDir},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := expandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		c.API.Token = envValue("VIDTRACK_API_TOKEN")
	}
}

func (c *Config) normalizeStore() {
	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	switch c.Store.Backend {
	case "", "sqlite3":
		c.Store.Backend = StoreBackendSQLite
	case "postgresql", "pg":
		c.Store.Backend = StoreBackendPostgres
	}
	c.Store.DSN = strings.TrimSpace(c.Store.DSN)
	if c.Store.DSN == "" {
		c.Store.DSN = envValue("VIDTRACK_DATABASE_DSN")
	}
	if c.Store.MaxOpenConns <= 0 {
		c.Store.MaxOpenConns = defaultStoreMaxOpenConns
	}
}

func (c *Config) normalizeMedia() {
	c.Media.FFmpegBinary = strings.TrimSpace(c.Media.FFmpegBinary)
	if c.Media.FFmpegBinary == "" {
		c.Media.FFmpegBinary = defaultFFmpegBinary
	}
	c.Media.FFprobeBinary = strings.TrimSpace(c.Media.FFprobeBinary)
	if c.Media.FFprobeBinary == "" {
		c.Media.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Media.AudioSampleRate <= 0 {
		c.Media.AudioSampleRate = defaultAudioSampleRate
	}
}

func (c *Config) normalizeDetection() {
	c.Detection.FaceURL = strings.TrimSpace(c.Detection.FaceURL)
	c.Detection.ObjectURL = strings.TrimSpace(c.Detection.ObjectURL)
	c.Detection.FaceBoxFormat = strings.ToLower(strings.TrimSpace(c.Detection.FaceBoxFormat))
	if c.Detection.FaceBoxFormat == "" {
		c.Detection.FaceBoxFormat = BoxFormatXYXY
	}
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Provider = strings.ToLower(strings.TrimSpace(c.Transcription.Provider))
	if c.Transcription.Provider == "" {
		c.Transcription.Provider = TranscriptionOpenAI
	}
	c.Transcription.Language = strings.ToLower(strings.TrimSpace(c.Transcription.Language))
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if c.Transcription.Model == "" {
		c.Transcription.Model = defaultTranscriptionModel
	}
	c.Transcription.BaseURL = strings.TrimSpace(c.Transcription.BaseURL)
	c.Transcription.APIKey = strings.TrimSpace(c.Transcription.APIKey)
	if c.Transcription.APIKey == "" {
		c.Transcription.APIKey = envValue("OPENAI_API_KEY")
	}
	c.Transcription.WhisperXModel = strings.TrimSpace(c.Transcription.WhisperXModel)
	if c.Transcription.WhisperXModel == "" {
		c.Transcription.WhisperXModel = defaultWhisperXModel
	}
}

func (c *Config) normalizeTranslation() {
	c.Translation.TargetLanguage = strings.ToLower(strings.TrimSpace(c.Translation.TargetLanguage))
	if c.Translation.TargetLanguage == "" {
		c.Translation.TargetLanguage = defaultTranslationLanguage
	}
	c.Translation.Model = strings.TrimSpace(c.Translation.Model)
	if c.Translation.Model == "" {
		c.Translation.Model = defaultTranslationModel
	}
	c.Translation.BaseURL = strings.TrimSpace(c.Translation.BaseURL)
	if c.Translation.BaseURL == "" {
		c.Translation.BaseURL = c.Transcription.BaseURL
	}
	c.Translation.APIKey = strings.TrimSpace(c.Translation.APIKey)
	if c.Translation.APIKey == "" {
		c.Translation.APIKey = envValue("OPENAI_API_KEY")
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
	if len(c.Logging.StageOverrides) > 0 {
		overrides := make(map[string]string, len(c.Logging.StageOverrides))
		for stage, level := range c.Logging.StageOverrides {
			overrides[strings.ToLower(strings.TrimSpace(stage))] = strings.ToLower(strings.TrimSpace(level))
		}
		c.Logging.StageOverrides = overrides
	}
}

func envValue(key string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return ""
}
