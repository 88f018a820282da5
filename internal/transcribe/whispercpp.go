package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"subburn/internal/language"
	"subburn/internal/logging"
	"subburn/internal/services"
	"subburn/internal/whisper"
)

// WhisperCPPConfig captures settings for the whisper.cpp CLI.
type WhisperCPPConfig struct {
	Binary    string
	ModelsDir string
	Threads   int
}

// WhisperCPP runs whisper.cpp locally and parses its JSON output.
type WhisperCPP struct {
	cfg    WhisperCPPConfig
	run    Runner
	logger *slog.Logger
}

// NewWhisperCPP constructs a whisper.cpp engine.
func NewWhisperCPP(cfg WhisperCPPConfig, logger *slog.Logger) *WhisperCPP {
	if strings.TrimSpace(cfg.Binary) == "" {
		cfg.Binary = "whisper-cli"
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &WhisperCPP{cfg: cfg, run: execRunner(nil), logger: logging.NewComponentLogger(logger, "whispercpp")}
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *WhisperCPP) WithCommandRunner(runner Runner) *WhisperCPP {
	if runner != nil {
		w.run = runner
	}
	return w
}

// ModelPath returns the weights file used for model.
func (w *WhisperCPP) ModelPath(model string) string {
	return filepath.Join(w.cfg.ModelsDir, whisper.GGMLFileName(model))
}

// Transcribe runs whisper.cpp on audioPath.
func (w *WhisperCPP) Transcribe(ctx context.Context, audioPath string, req Request) ([]Segment, error) {
	r, err := validateRequest(req)
	if err != nil {
		return nil, fail(audioPath, err)
	}
	if err := requireAudio(audioPath); err != nil {
		return nil, fail(audioPath, err)
	}
	modelPath := w.ModelPath(r.model)
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fail(audioPath, services.Wrap(services.ErrConfiguration, "", "model", "weights not found at "+modelPath, err))
	}

	outputBase := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	jsonPath := outputBase + ".json"
	defer os.Remove(jsonPath)

	args := w.buildArgs(modelPath, audioPath, outputBase, r)
	w.logger.Debug("running whisper.cpp",
		logging.String("command", w.cfg.Binary),
		logging.String("args", strings.Join(args, " ")),
	)
	if err := w.run(ctx, w.cfg.Binary, args...); err != nil {
		return nil, fail(audioPath, engineFailure(ctx, "whisper.cpp", err))
	}

	segments, err := LoadWhisperCPPSegments(jsonPath)
	if err != nil {
		return nil, fail(audioPath, services.Wrap(services.ErrExternalTool, "", "whisper.cpp", "unreadable output", err))
	}
	return normalizeSegments(segments), nil
}

func (w *WhisperCPP) buildArgs(modelPath, audioPath, outputBase string, r resolved) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-oj",
		"-of", outputBase,
		"-np",
	}
	if r.language != language.Auto {
		args = append(args, "-l", r.language)
	}
	if r.task == whisper.TaskTranslate {
		args = append(args, "-tr")
	}
	if w.cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(w.cfg.Threads))
	}
	return args
}

type whisperCPPPayload struct {
	Transcription []struct {
		Timestamps struct {
			From string `json:"from"`
			To   string `json:"to"`
		} `json:"timestamps"`
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// LoadWhisperCPPSegments reads a whisper.cpp -oj output file. Offsets are in
// milliseconds; the textual timestamps are kept verbatim.
func LoadWhisperCPPSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperCPPPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisper.cpp json: %w", err)
	}
	segments := make([]Segment, 0, len(payload.Transcription))
	for _, entry := range payload.Transcription {
		segments = append(segments, Segment{
			Start: Timestamp{Seconds: float64(entry.Offsets.From) / 1000, Raw: entry.Timestamps.From},
			End:   Timestamp{Seconds: float64(entry.Offsets.To) / 1000, Raw: entry.Timestamps.To},
			Text:  entry.Text,
		})
	}
	return segments, nil
}
