package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Probe is the subset of ffprobe output the preparer needs.
type Probe struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index     int    `json:"index"`
	CodecName string `json:"codec_name"`
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// Format captures container-level metadata.
type Format struct {
	Filename   string `json:"filename"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	FormatName string `json:"format_name"`
}

// Inspect runs ffprobe against path and decodes its JSON report.
func Inspect(ctx context.Context, run CommandRunner, binary, path string) (Probe, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return Probe{}, errors.New("ffprobe inspect: empty path")
	}
	if run == nil {
		run = ExecRunner
	}

	output, err := run(ctx, binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return Probe{}, fmt.Errorf("ffprobe inspect: %w", err)
	}

	var probe Probe
	if err := json.Unmarshal(output, &probe); err != nil {
		return Probe{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return probe, nil
}

// VideoStreamCount returns the number of video streams discovered.
func (p Probe) VideoStreamCount() int {
	return p.countType("video")
}

// AudioStreamCount returns the number of audio streams discovered.
func (p Probe) AudioStreamCount() int {
	return p.countType("audio")
}

func (p Probe) countType(kind string) int {
	count := 0
	for _, stream := range p.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			count++
		}
	}
	return count
}

// DurationSeconds returns the container duration, 0 when unreported and NaN
// when malformed.
func (p Probe) DurationSeconds() float64 {
	cleaned := strings.TrimSpace(p.Format.Duration)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}
