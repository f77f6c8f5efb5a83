package media

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"vidtrack/internal/logging"
	"vidtrack/internal/services"
)

const (
	// FramePattern is the ffmpeg output pattern for sampled frames.
	FramePattern = "frame_%04d.jpg"
	// AudioFileName is the extracted mono track inside the output directory.
	AudioFileName = "audio.wav"
	framesDir     = "frames"
	stageName     = "prepare"
)

// Frame is one sampled still image. Index is 0-based and ascending.
type Frame struct {
	Index int
	Path  string
	Name  string
}

// Prepared is the output of media preparation.
type Prepared struct {
	Frames    []Frame
	AudioPath string // empty when the input has no audio stream
	Duration  float64
}

// Preparer decodes a video into frames and audio under outDir. Running it
// again for the same outDir replaces prior output.
type Preparer interface {
	Prepare(ctx context.Context, videoPath, outDir string) (Prepared, error)
}

// Options configures an FFmpegPreparer.
type Options struct {
	FFmpegBinary    string
	FFprobeBinary   string
	FrameInterval   float64 // seconds between frames
	AudioSampleRate int
	Timeout         time.Duration
}

// FFmpegPreparer implements Preparer with ffprobe and ffmpeg.
type FFmpegPreparer struct {
	opts   Options
	run    CommandRunner
	logger *slog.Logger
}

// NewFFmpegPreparer returns a preparer that shells out to ffmpeg.
func NewFFmpegPreparer(opts Options, logger *slog.Logger) *FFmpegPreparer {
	if opts.FFmpegBinary == "" {
		opts.FFmpegBinary = "ffmpeg"
	}
	if opts.FFprobeBinary == "" {
		opts.FFprobeBinary = "ffprobe"
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = 1
	}
	if opts.AudioSampleRate <= 0 {
		opts.AudioSampleRate = 16000
	}
	return &FFmpegPreparer{
		opts:   opts,
		run:    ExecRunner,
		logger: logging.NewComponentLogger(logger, "media"),
	}
}

// WithCommandRunner swaps the command runner (for testing).
func (p *FFmpegPreparer) WithCommandRunner(run CommandRunner) {
	if run != nil {
		p.run = run
	}
}

// Prepare implements Preparer.
func (p *FFmpegPreparer) Prepare(ctx context.Context, videoPath, outDir string) (Prepared, error) {
	var prepared Prepared
	if strings.TrimSpace(outDir) == "" {
		return prepared, services.Wrap(services.ErrValidation, stageName, "prepare", "output directory required", nil)
	}
	if info, err := os.Stat(videoPath); err != nil {
		return prepared, services.Wrap(services.ErrValidation, stageName, "stat input", "input video not readable", err)
	} else if info.IsDir() {
		return prepared, services.Wrap(services.ErrValidation, stageName, "stat input", "input video is a directory", nil)
	}

	if p.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.opts.Timeout)
		defer cancel()
	}
	logger := logging.WithContext(ctx, p.logger)

	if err := os.RemoveAll(outDir); err != nil {
		return prepared, fmt.Errorf("clear output dir: %w", err)
	}
	frameDir := filepath.Join(outDir, framesDir)
	if err := os.MkdirAll(frameDir, 0o755); err != nil {
		return prepared, fmt.Errorf("create frame dir: %w", err)
	}

	probe, err := Inspect(ctx, p.run, p.opts.FFprobeBinary, videoPath)
	if err != nil {
		return prepared, p.toolError(ctx, "ffprobe", "probe input failed", err)
	}
	if probe.VideoStreamCount() == 0 {
		return prepared, services.WithHint(
			services.Wrap(services.ErrValidation, stageName, "ffprobe", "input has no video stream", nil),
			"upload a video file",
		)
	}
	prepared.Duration = probe.DurationSeconds()

	if _, err := p.run(ctx, p.opts.FFmpegBinary, p.frameArgs(videoPath, frameDir)...); err != nil {
		return prepared, p.toolError(ctx, "extract frames", "ffmpeg frame sampling failed", err)
	}

	if probe.AudioStreamCount() > 0 {
		audioPath := filepath.Join(outDir, AudioFileName)
		if _, err := p.run(ctx, p.opts.FFmpegBinary, p.audioArgs(videoPath, audioPath)...); err != nil {
			return prepared, p.toolError(ctx, "extract audio", "ffmpeg audio extraction failed", err)
		}
		prepared.AudioPath = audioPath
	} else {
		logging.WarnWithContext(logger, "input has no audio stream", "audio_missing",
			logging.String("video", videoPath),
			logging.String(logging.FieldImpact, "transcript will be empty"),
			logging.String(logging.FieldErrorHint, "upload a video with an audio track to get a transcript"),
		)
	}

	frames, err := ListFrames(frameDir)
	if err != nil {
		return prepared, err
	}
	prepared.Frames = frames

	logger.Info("media prepared",
		logging.Int("frames", len(frames)),
		logging.Float64("duration_seconds", prepared.Duration),
		logging.Bool("audio", prepared.AudioPath != ""),
		logging.String(logging.FieldEventType, "media_prepared"),
	)
	return prepared, nil
}

func (p *FFmpegPreparer) toolError(ctx context.Context, op, msg string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, stageName, op, msg, err)
	}
	return services.Wrap(services.ErrExternalTool, stageName, op, msg, err)
}

func (p *FFmpegPreparer) frameArgs(source, frameDir string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vf", "fps=1/" + strconv.FormatFloat(p.opts.FrameInterval, 'f', -1, 64),
		"-q:v", "2",
		filepath.Join(frameDir, FramePattern),
	}
}

func (p *FFmpegPreparer) audioArgs(source, dest string) []string {
	return []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", strconv.Itoa(p.opts.AudioSampleRate),
		"-c:a", "pcm_s16le",
		dest,
	}
}

// ListFrames returns the frame images in dir ordered by frame number.
// Numbering past the zero padding width still sorts after shorter numbers.
func ListFrames(dir string) ([]Frame, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "frame_*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("list frames: %w", err)
	}
	slices.SortFunc(matches, func(a, b string) int {
		na, okA := frameNumber(a)
		nb, okB := frameNumber(b)
		switch {
		case okA && okB && na != nb:
			return cmp.Compare(na, nb)
		case okA != okB:
			// Unnumbered names sort after numbered frames.
			if okA {
				return -1
			}
			return 1
		}
		return strings.Compare(a, b)
	})
	frames := make([]Frame, 0, len(matches))
	for i, path := range matches {
		frames = append(frames, Frame{Index: i, Path: path, Name: filepath.Base(path)})
	}
	return frames, nil
}

func frameNumber(path string) (int, bool) {
	digits := strings.TrimSuffix(strings.TrimPrefix(filepath.Base(path), "frame_"), ".jpg")
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
