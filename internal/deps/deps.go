package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"vidtrack/internal/config"
)

// Requirement defines an external binary the analysis pipeline shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Path        string
	Detail      string
}

// ForConfig lists the binaries cfg needs. uvx is only required when
// transcription runs through WhisperX.
func ForConfig(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	reqs := []Requirement{
		{
			Name:        "FFmpeg",
			Command:     orDefault(cfg.Media.FFmpegBinary, "ffmpeg"),
			Description: "Required for frame sampling and audio extraction",
		},
		{
			Name:        "FFprobe",
			Command:     orDefault(cfg.Media.FFprobeBinary, "ffprobe"),
			Description: "Required for stream inspection",
		},
	}
	if cfg.Transcription.Provider == config.TranscriptionWhisperX {
		reqs = append(reqs, Requirement{
			Name:        "uvx",
			Command:     "uvx",
			Description: "Required for WhisperX transcription",
		})
	}
	return reqs
}

// CheckBinaries resolves each requirement on PATH.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		switch path, err := exec.LookPath(cmd); {
		case cmd == "":
			status.Detail = "command not configured"
		case err != nil:
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
		default:
			status.Available = true
			status.Path = path
		}
		results = append(results, status)
	}
	return results
}

// Missing returns the required dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var out []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			out = append(out, s)
		}
	}
	return out
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
