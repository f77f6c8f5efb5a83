package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the directories the daemon reads and writes.
type Paths struct {
	DataDir   string `toml:"data_dir"`
	WorkDir   string `toml:"work_dir"`
	UploadDir string `toml:"upload_dir"`
	LogDir    string `toml:"log_dir"`
}

// API contains HTTP listener settings.
type API struct {
	Bind           string  `toml:"bind"`
	Token          string  `toml:"token"`
	MaxUploadMB    int     `toml:"max_upload_mb"`
	RateLimitRPS   float64 `toml:"rate_limit_rps"`
	RateLimitBurst int     `toml:"rate_limit_burst"`
	MetricsEnabled bool    `toml:"metrics_enabled"`
}

// Store selects the job store backend.
type Store struct {
	Backend      string `toml:"backend"`
	DSN          string `toml:"dsn"`
	MaxOpenConns int    `toml:"max_open_conns"`
}

// Workflow contains worker pool sizing and timing, in seconds.
type Workflow struct {
	Workers            int  `toml:"workers"`
	QueuePollInterval  int  `toml:"queue_poll_interval"`
	ErrorRetryInterval int  `toml:"error_retry_interval"`
	HeartbeatInterval  int  `toml:"heartbeat_interval"`
	HeartbeatTimeout   int  `toml:"heartbeat_timeout"`
	KeepWorkDirs       bool `toml:"keep_work_dirs"`
	JobRetentionDays   int  `toml:"job_retention_days"`
	MaxAttempts        int  `toml:"max_attempts"`
}

// Media contains ffmpeg extraction settings.
type Media struct {
	FFmpegBinary    string  `toml:"ffmpeg_binary"`
	FFprobeBinary   string  `toml:"ffprobe_binary"`
	FrameInterval   float64 `toml:"frame_interval"`
	AudioSampleRate int     `toml:"audio_sample_rate"`
	TimeoutSeconds  int     `toml:"timeout_seconds"`
}

// Detection contains the HTTP detector endpoints.
type Detection struct {
	FaceURL        string  `toml:"face_url"`
	ObjectURL      string  `toml:"object_url"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	MinConfidence  float64 `toml:"min_confidence"`
	MaxImageSide   int     `toml:"max_image_side"`
	FaceBoxFormat  string  `toml:"face_box_format"`
}

// Tracking contains the IoU tracker parameters.
type Tracking struct {
	MaxAge       int     `toml:"max_age"`
	IoUThreshold float64 `toml:"iou_threshold"`
}

// Transcription selects and configures the speech-to-text provider.
type Transcription struct {
	Provider       string `toml:"provider"`
	Language       string `toml:"language"`
	Model          string `toml:"model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	WhisperXModel  string `toml:"whisperx_model"`
	WhisperXCUDA   bool   `toml:"whisperx_cuda"`
}

// Translation configures the label translator.
type Translation struct {
	Enabled        bool   `toml:"enabled"`
	TargetLanguage string `toml:"target_language"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	JobCompleted   bool   `toml:"job_completed"`
	JobFailed      bool   `toml:"job_failed"`
	QueueEvents    bool   `toml:"queue_events"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string            `toml:"format"`
	Level          string            `toml:"level"`
	RetentionDays  int               `toml:"retention_days"`
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// Config encapsulates all configuration values for vidtrack.
//
// Configuration sections by subsystem:
//   - Paths: data, work, upload, and log directories
//   - API: HTTP bind address, auth token, upload and rate limits
//   - Store: job store backend (sqlite or postgres)
//   - Workflow: worker count, polling, and lease heartbeats
//   - Media: ffmpeg frame and audio extraction
//   - Detection: face and object detector endpoints
//   - Tracking: IoU tracker parameters
//   - Transcription: Whisper provider settings
//   - Translation: label translation settings
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	API           API           `toml:"api"`
	Store         Store         `toml:"store"`
	Workflow      Workflow      `toml:"workflow"`
	Media         Media         `toml:"media"`
	Detection     Detection     `toml:"detection"`
	Tracking      Tracking      `toml:"tracking"`
	Transcription Transcription `toml:"transcription"`
	Translation   Translation   `toml:"translation"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory is
// loaded first so its values participate in environment overrides.
func Load(path string) (*Config, string, bool, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", false, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("vidtrack.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.WorkDir, c.Paths.UploadDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StoreDSN returns the connection string for the configured backend. The
// sqlite backend defaults to jobs.db inside the data directory.
func (c *Config) StoreDSN() string {
	if dsn := strings.TrimSpace(c.Store.DSN); dsn != "" {
		return dsn
	}
	if c.Store.Backend == StoreBackendSQLite {
		return filepath.Join(c.Paths.DataDir, "jobs.db")
	}
	return ""
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "vidtrackd.lock")
}

// QueuePollInterval returns the idle worker poll interval.
func (c *Config) QueuePollInterval() time.Duration {
	return seconds(c.Workflow.QueuePollInterval)
}

// ErrorRetryInterval returns the back-off after a store error.
func (c *Config) ErrorRetryInterval() time.Duration {
	return seconds(c.Workflow.ErrorRetryInterval)
}

// HeartbeatInterval returns how often a running job refreshes its lease.
func (c *Config) HeartbeatInterval() time.Duration {
	return seconds(c.Workflow.HeartbeatInterval)
}

// HeartbeatTimeout returns the lease age after which a job is reclaimed.
func (c *Config) HeartbeatTimeout() time.Duration {
	return seconds(c.Workflow.HeartbeatTimeout)
}

// MaxUploadBytes converts api.max_upload_mb to bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.API.MaxUploadMB) << 20
}

// JobRetention returns how long finished jobs are kept. Zero keeps them forever.
func (c *Config) JobRetention() time.Duration {
	return time.Duration(c.Workflow.JobRetentionDays) * 24 * time.Hour
}

// LogRetention returns how long daemon logs are kept. Zero keeps them forever.
func (c *Config) LogRetention() time.Duration {
	return time.Duration(c.Logging.RetentionDays) * 24 * time.Hour
}

func seconds(v int) time.Duration {
	return time.Duration(v) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
