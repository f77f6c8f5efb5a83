package config

const (
	defaultConfigPath              = "~/.config/vidtrack/config.toml"
	defaultDataDir                 = "~/.local/share/vidtrack"
	defaultWorkDir                 = "~/.local/share/vidtrack/work"
	defaultUploadDir               = "~/.local/share/vidtrack/uploads"
	defaultLogDir                  = "~/.local/share/vidtrack/logs"
	defaultLogRetentionDays        = 30
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultAPIBind                 = "127.0.0.1:7489"
	defaultMaxUploadMB             = 2048
	defaultRateLimitRPS            = 5
	defaultRateLimitBurst          = 10
	defaultStoreMaxOpenConns       = 10
	defaultWorkers                 = 2
	defaultQueuePollInterval       = 2
	defaultErrorRetryInterval      = 10
	defaultHeartbeatInterval       = 15
	defaultHeartbeatTimeout        = 120
	defaultMaxAttempts             = 3
	defaultFFmpegBinary            = "ffmpeg"
	defaultFFprobeBinary           = "ffprobe"
	defaultFrameInterval           = 1.0
	defaultAudioSampleRate         = 16000
	defaultMediaTimeoutSeconds     = 1800
	defaultFaceURL                 = "http://127.0.0.1:8501/detect"
	defaultObjectURL               = "http://127.0.0.1:8502/detect"
	defaultDetectionTimeoutSeconds = 30
	defaultMinConfidence           = 0.25
	defaultMaxImageSide            = 1280
	defaultTrackingMaxAge          = 5
	defaultIoUThreshold            = 0.3
	defaultTranscriptionLanguage   = "de"
	defaultTranscriptionModel      = "whisper-1"
	defaultTranscriptionTimeout    = 600
	defaultWhisperXModel           = "large-v3"
	defaultTranslationLanguage     = "de"
	defaultTranslationModel        = "gpt-4o-mini"
	defaultTranslationTimeout      = 30
	defaultNotifyRequestTimeout    = 10
)

// Store backends.
const (
	StoreBackendSQLite   = "sqlite"
	StoreBackendPostgres = "postgres"
)

// Transcription providers.
const (
	TranscriptionOpenAI   = "openai"
	TranscriptionWhisperX = "whisperx"
)

// Face detector box encodings.
const (
	BoxFormatXYXY = "xyxy"
	BoxFormatXYWH = "xywh"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:   defaultDataDir,
			WorkDir:   defaultWorkDir,
			UploadDir: defaultUploadDir,
			LogDir:    defaultLogDir,
		},
		API: API{
			Bind:           defaultAPIBind,
			MaxUploadMB:    defaultMaxUploadMB,
			RateLimitRPS:   defaultRateLimitRPS,
			RateLimitBurst: defaultRateLimitBurst,
			MetricsEnabled: true,
		},
		Store: Store{
			Backend:      StoreBackendSQLite,
			MaxOpenConns: defaultStoreMaxOpenConns,
		},
		Workflow: Workflow{
			Workers:            defaultWorkers,
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			HeartbeatTimeout:   defaultHeartbeatTimeout,
			MaxAttempts:        defaultMaxAttempts,
		},
		Media: Media{
			FFmpegBinary:    defaultFFmpegBinary,
			FFprobeBinary:   defaultFFprobeBinary,
			FrameInterval:   defaultFrameInterval,
			AudioSampleRate: defaultAudioSampleRate,
			TimeoutSeconds:  defaultMediaTimeoutSeconds,
		},
		Detection: Detection{
			FaceURL:        defaultFaceURL,
			ObjectURL:      defaultObjectURL,
			TimeoutSeconds: defaultDetectionTimeoutSeconds,
			MinConfidence:  defaultMinConfidence,
			MaxImageSide:   defaultMaxImageSide,
			FaceBoxFormat:  BoxFormatXYXY,
		},
		Tracking: Tracking{
			MaxAge:       defaultTrackingMaxAge,
			IoUThreshold: defaultIoUThreshold,
		},
		Transcription: Transcription{
			Provider:       TranscriptionOpenAI,
			Language:       defaultTranscriptionLanguage,
			Model:          defaultTranscriptionModel,
			TimeoutSeconds: defaultTranscriptionTimeout,
			WhisperXModel:  defaultWhisperXModel,
		},
		Translation: Translation{
			Enabled:        true,
			TargetLanguage: defaultTranslationLanguage,
			Model:          defaultTranslationModel,
			TimeoutSeconds: defaultTranslationTimeout,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			JobCompleted:   true,
			JobFailed:      true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
