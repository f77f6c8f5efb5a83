package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"vidtrack/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("OPENAI_API_KEY", "env-openai")
	t.Setenv("VIDTRACK_API_TOKEN", "")
	t.Setenv("VIDTRACK_DATABASE_DSN", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "vidtrack")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.API.Bind != "127.0.0.1:7489" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
	if cfg.Store.Backend != config.StoreBackendSQLite {
		t.Fatalf("unexpected store backend: %q", cfg.Store.Backend)
	}
	if got, want := cfg.StoreDSN(), filepath.Join(wantData, "jobs.db"); got != want {
		t.Fatalf("StoreDSN = %q, want %q", got, want)
	}
	if cfg.Tracking.MaxAge != 5 || cfg.Tracking.IoUThreshold != 0.3 {
		t.Fatalf("unexpected tracking defaults: %+v", cfg.Tracking)
	}
	if cfg.Detection.MinConfidence != 0.25 {
		t.Fatalf("unexpected min confidence: %v", cfg.Detection.MinConfidence)
	}
	if cfg.Workflow.MaxAttempts != 3 {
		t.Fatalf("unexpected max attempts: %d", cfg.Workflow.MaxAttempts)
	}
	if cfg.Media.FrameInterval != 1.0 {
		t.Fatalf("unexpected frame interval: %v", cfg.Media.FrameInterval)
	}
	if cfg.Transcription.Language != "de" || cfg.Translation.TargetLanguage != "de" {
		t.Fatalf("unexpected language defaults: %q %q", cfg.Transcription.Language, cfg.Translation.TargetLanguage)
	}
	if cfg.Transcription.APIKey != "env-openai" || cfg.Translation.APIKey != "env-openai" {
		t.Fatalf("expected OpenAI key from env, got %q / %q", cfg.Transcription.APIKey, cfg.Translation.APIKey)
	}
	if cfg.HeartbeatTimeout() != 120*time.Second {
		t.Fatalf("unexpected heartbeat timeout: %s", cfg.HeartbeatTimeout())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}

	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.WorkDir, cfg.Paths.UploadDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "env-openai")
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "vidtrack.toml")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
		} `toml:"paths"`
		Tracking struct {
			MaxAge       int     `toml:"max_age"`
			IoUThreshold float64 `toml:"iou_threshold"`
		} `toml:"tracking"`
		Transcription struct {
			APIKey string `toml:"api_key"`
		} `toml:"transcription"`
		Workflow struct {
			Workers           int `toml:"workers"`
			HeartbeatInterval int `toml:"heartbeat_interval"`
			HeartbeatTimeout  int `toml:"heartbeat_timeout"`
		} `toml:"workflow"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Tracking.MaxAge = 8
	custom.Tracking.IoUThreshold = 0.5
	custom.Transcription.APIKey = "file-key"
	custom.Workflow.Workers = 4
	custom.Workflow.HeartbeatInterval = 20
	custom.Workflow.HeartbeatTimeout = 200
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.DataDir != filepath.Join(tempDir, "data") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Tracking.MaxAge != 8 || cfg.Tracking.IoUThreshold != 0.5 {
		t.Fatalf("unexpected tracking: %+v", cfg.Tracking)
	}
	if cfg.Transcription.APIKey != "file-key" {
		t.Fatalf("expected file key to win over env, got %q", cfg.Transcription.APIKey)
	}
	if cfg.Workflow.Workers != 4 {
		t.Fatalf("expected 4 workers, got %d", cfg.Workflow.Workers)
	}
	if cfg.Workflow.HeartbeatInterval != 20 || cfg.Workflow.HeartbeatTimeout != 200 {
		t.Fatalf("unexpected heartbeat settings: %+v", cfg.Workflow)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "vidtrack.toml")
	if err := os.WriteFile(configPath, []byte("[tracking]\nmax_agee = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected parse error for unknown key")
	}
}

func TestEnvFillsEmptyCredentials(t *testing.T) {
	t.Setenv("VIDTRACK_DATABASE_DSN", "postgres://u:p@localhost/db?sslmode=disable")
	t.Setenv("VIDTRACK_API_TOKEN", "env-token")
	configPath := filepath.Join(t.TempDir(), "vidtrack.toml")
	if err := os.WriteFile(configPath, []byte("[store]\nbackend = \"postgresql\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Store.Backend != config.StoreBackendPostgres {
		t.Fatalf("expected backend alias to normalize, got %q", cfg.Store.Backend)
	}
	if cfg.StoreDSN() != "postgres://u:p@localhost/db?sslmode=disable" {
		t.Fatalf("unexpected dsn: %q", cfg.StoreDSN())
	}
	if cfg.API.Token != "env-token" {
		t.Fatalf("expected token from env, got %q", cfg.API.Token)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.DataDir, "vidtrack") {
		t.Fatalf("expected data dir to contain vidtrack, got %q", cfg.Paths.DataDir)
	}

	loaded, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if !exists || loaded.Detection.FaceBoxFormat != config.BoxFormatXYXY {
		t.Fatalf("unexpected sample load: exists=%v format=%q", exists, loaded.Detection.FaceBoxFormat)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"workers", func(c *config.Config) { c.Workflow.Workers = 0 }},
		{"heartbeat interval", func(c *config.Config) { c.Workflow.HeartbeatInterval = 0 }},
		{"max attempts", func(c *config.Config) { c.Workflow.MaxAttempts = -1 }},
		{"heartbeat ordering", func(c *config.Config) { c.Workflow.HeartbeatTimeout = c.Workflow.HeartbeatInterval }},
		{"bind", func(c *config.Config) { c.API.Bind = "localhost" }},
		{"upload limit", func(c *config.Config) { c.API.MaxUploadMB = 0 }},
		{"backend", func(c *config.Config) { c.Store.Backend = "mysql" }},
		{"postgres dsn", func(c *config.Config) { c.Store.Backend = config.StoreBackendPostgres; c.Store.DSN = "" }},
		{"frame interval", func(c *config.Config) { c.Media.FrameInterval = 0 }},
		{"detector url", func(c *config.Config) { c.Detection.ObjectURL = "not a url" }},
		{"confidence", func(c *config.Config) { c.Detection.MinConfidence = 1.5 }},
		{"box format", func(c *config.Config) { c.Detection.FaceBoxFormat = "cxcywh" }},
		{"max age", func(c *config.Config) { c.Tracking.MaxAge = -1 }},
		{"zero max age", func(c *config.Config) { c.Tracking.MaxAge = 0 }},
		{"iou threshold", func(c *config.Config) { c.Tracking.IoUThreshold = 1 }},
		{"provider", func(c *config.Config) { c.Transcription.Provider = "vosk" }},
		{"language", func(c *config.Config) { c.Translation.TargetLanguage = "klingon!" }},
		{"log level", func(c *config.Config) { c.Logging.Level = "loud" }},
		{"stage override", func(c *config.Config) { c.Logging.StageOverrides = map[string]string{"detect": "loud"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for %s", tc.name)
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
