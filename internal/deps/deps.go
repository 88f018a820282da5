package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"subburn/internal/config"
	"subburn/internal/whisper"
)

// Requirement defines an external dependency subburn relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// File, when set, is checked for existence instead of resolving Command on PATH.
	File string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the tools a batch run needs under the given configuration.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	reqs := []Requirement{
		{Name: "FFmpeg", Command: cfg.Transcoder.FFmpegCommand, Description: "Audio extraction and subtitle burn-in"},
		{Name: "FFprobe", Command: cfg.Transcoder.FFprobeCommand, Description: "Output verification", Optional: !cfg.Transcoder.VerifyOutputs},
	}
	switch cfg.Transcription.Engine {
	case config.EngineWhisperX:
		reqs = append(reqs, Requirement{Name: "uvx", Command: "uvx", Description: "Runs WhisperX"})
	default:
		reqs = append(reqs,
			Requirement{Name: "whisper.cpp", Command: cfg.Transcription.WhisperCommand, Description: "Speech recognition"},
			Requirement{
				Name:        "Model " + cfg.Transcription.Model,
				Description: "whisper.cpp weights",
				File:        filepath.Join(cfg.Paths.ModelsDir, whisper.GGMLFileName(cfg.Transcription.Model)),
			},
		)
	}
	return reqs
}

// CheckBinaries evaluates the provided requirements and reports availability.
// File requirements report the file path in place of a command.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		status := Status{
			Name:        req.Name,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		status.Command, status.Available, status.Detail = probe(req)
		results = append(results, status)
	}
	return results
}

func probe(req Requirement) (target string, ok bool, detail string) {
	if file := strings.TrimSpace(req.File); file != "" {
		if info, err := os.Stat(file); err != nil || info.IsDir() {
			return file, false, fmt.Sprintf("file %q not found", file)
		}
		return file, true, ""
	}
	cmd := strings.TrimSpace(req.Command)
	if cmd == "" {
		return "", false, "command not configured"
	}
	if _, err := exec.LookPath(cmd); err != nil {
		return cmd, false, fmt.Sprintf("binary %q not found", cmd)
	}
	return cmd, true, ""
}

// MissingRequired returns the names of unavailable, non-optional dependencies.
func MissingRequired(statuses []Status) []string {
	var missing []string
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s.Name)
		}
	}
	return missing
}
