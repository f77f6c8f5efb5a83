package transcribe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"vidtrack/internal/language"
)

// WhisperX invocation constants.
const (
	UVXCommand         = "uvx"
	DefaultWhisperX    = "large-v3"
	whisperXCUDAIndex  = "https://download.pytorch.org/whl/cu128"
	whisperXPypiIndex  = "https://pypi.org/simple"
	whisperXBatchSize  = "4"
	whisperXBeamSize   = "5"
	whisperXCPUCompute = "float32"
)

// WhisperXConfig configures the local WhisperX adapter.
type WhisperXConfig struct {
	Model       string
	CUDAEnabled bool
}

// WhisperX shells out to the whisperx CLI.
type WhisperX struct {
	cfg           WhisperXConfig
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewWhisperX creates the adapter.
func NewWhisperX(cfg WhisperXConfig) *WhisperX {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultWhisperX
	}
	return &WhisperX{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *WhisperX) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	w.commandRunner = runner
}

// Transcribe implements Transcriber. Output files land next to the audio.
func (w *WhisperX) Transcribe(ctx context.Context, audioPath, lang string) (string, error) {
	if strings.TrimSpace(audioPath) == "" {
		return "", errors.New("whisperx: audio path required")
	}
	outputDir := filepath.Join(filepath.Dir(audioPath), "whisperx")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("whisperx: ensure output dir: %w", err)
	}
	if err := w.run(ctx, UVXCommand, w.buildArgs(audioPath, outputDir, lang)...); err != nil {
		return "", fmt.Errorf("whisperx: %w", err)
	}
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	return loadTranscriptText(filepath.Join(outputDir, base+".json"))
}

func (w *WhisperX) run(ctx context.Context, name string, args ...string) error {
	if w.commandRunner != nil {
		return w.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	// Torch 2.6 changed torch.load to weights_only=true, which breaks pyannote checkpoints.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		cmd.Env = append(os.Environ(), "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

func (w *WhisperX) buildArgs(source, outputDir, lang string) []string {
	args := make([]string, 0, 24)
	if w.cfg.CUDAEnabled {
		args = append(args, "--index-url", whisperXCUDAIndex, "--extra-index-url", whisperXPypiIndex)
	} else {
		args = append(args, "--index-url", whisperXPypiIndex)
	}
	args = append(args,
		"whisperx",
		source,
		"--model", w.cfg.Model,
		"--batch_size", whisperXBatchSize,
		"--beam_size", whisperXBeamSize,
		"--output_dir", outputDir,
		"--output_format", "json",
	)
	if iso := language.ToISO2(lang); iso != "" {
		args = append(args, "--language", iso)
	}
	if w.cfg.CUDAEnabled {
		args = append(args, "--device", "cuda")
	} else {
		args = append(args, "--device", "cpu", "--compute_type", whisperXCPUCompute)
	}
	return args
}

type segment struct {
	Text string `json:"text"`
}

func loadTranscriptText(jsonPath string) (string, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return "", fmt.Errorf("whisperx: read output: %w", err)
	}
	var payload struct {
		Segments []segment `json:"segments"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", fmt.Errorf("whisperx: parse output: %w", err)
	}
	parts := make([]string, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}
