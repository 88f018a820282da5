package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"subburn/internal/language"
	"subburn/internal/logging"
	"subburn/internal/services"
)

// WhisperX configuration constants.
const (
	UVXCommand        = "uvx"
	CUDAIndexURL      = "https://download.pytorch.org/whl/cu128"
	PypiIndexURL      = "https://pypi.org/simple"
	BatchSize         = "4"
	ChunkSize         = "15"
	VADOnset          = "0.08"
	VADOffset         = "0.07"
	BeamSize          = "5"
	SegmentResolution = "sentence"
	CPUDevice         = "cpu"
	CUDADevice        = "cuda"
	CPUComputeType    = "float32"
	VADMethodPyannote = "pyannote"
	VADMethodSilero   = "silero"
)

// WhisperXConfig captures runtime settings for WhisperX.
type WhisperXConfig struct {
	// CUDAEnabled enables GPU acceleration.
	CUDAEnabled bool
	// VADMethod selects the voice activity detection method ("silero" or "pyannote").
	VADMethod string
	// HFToken is the Hugging Face token for pyannote VAD.
	HFToken string
}

// WhisperX runs WhisperX through uvx.
type WhisperX struct {
	cfg    WhisperXConfig
	run    Runner
	logger *slog.Logger
}

// NewWhisperX creates a WhisperX engine with the given configuration.
func NewWhisperX(cfg WhisperXConfig, logger *slog.Logger) *WhisperX {
	if logger == nil {
		logger = logging.NewNop()
	}
	var env []string
	// Torch 2.6 changed torch.load default to weights_only=true, breaking WhisperX/pyannote.
	if os.Getenv("TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD") == "" {
		env = append(env, "TORCH_FORCE_NO_WEIGHTS_ONLY_LOAD=1")
	}
	return &WhisperX{cfg: cfg, run: execRunner(env), logger: logging.NewComponentLogger(logger, "whisperx")}
}

// WithCommandRunner sets a custom command runner (for testing).
func (w *WhisperX) WithCommandRunner(runner Runner) *WhisperX {
	if runner != nil {
		w.run = runner
	}
	return w
}

// Transcribe runs WhisperX on audioPath. Output is written next to the audio
// file and removed once parsed.
func (w *WhisperX) Transcribe(ctx context.Context, audioPath string, req Request) ([]Segment, error) {
	r, err := validateRequest(req)
	if err != nil {
		return nil, fail(audioPath, err)
	}
	if err := requireAudio(audioPath); err != nil {
		return nil, fail(audioPath, err)
	}

	outputDir := filepath.Dir(audioPath)
	baseName := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	jsonPath := filepath.Join(outputDir, baseName+".json")
	defer os.Remove(jsonPath)

	args := w.buildArgs(audioPath, outputDir, r)
	w.logger.Debug("running whisperx",
		logging.String("command", UVXCommand),
		logging.String("model", r.model),
		logging.Bool("cuda", w.cfg.CUDAEnabled),
	)
	if err := w.run(ctx, UVXCommand, args...); err != nil {
		return nil, fail(audioPath, engineFailure(ctx, "whisperx", err))
	}

	segments, err := LoadWhisperXSegments(jsonPath)
	if err != nil {
		return nil, fail(audioPath, services.Wrap(services.ErrExternalTool, "", "whisperx", "unreadable output", err))
	}
	return normalizeSegments(segments), nil
}

// buildArgs constructs the uvx command arguments for WhisperX.
func (w *WhisperX) buildArgs(source, outputDir string, r resolved) []string {
	args := make([]string, 0, 40)

	if w.cfg.CUDAEnabled {
		args = append(args,
			"--index-url", CUDAIndexURL,
			"--extra-index-url", PypiIndexURL,
		)
	} else {
		args = append(args, "--index-url", PypiIndexURL)
	}

	args = append(args,
		"whisperx",
		source,
		"--model", r.model,
		"--task", string(r.task),
		"--batch_size", BatchSize,
		"--output_dir", outputDir,
		"--output_format", "json",
		"--segment_resolution", SegmentResolution,
		"--chunk_size", ChunkSize,
		"--vad_onset", VADOnset,
		"--vad_offset", VADOffset,
		"--beam_size", BeamSize,
	)

	vadMethod := w.cfg.VADMethod
	if vadMethod == "" {
		vadMethod = VADMethodSilero
	}
	args = append(args, "--vad_method", vadMethod)
	if vadMethod == VADMethodPyannote && w.cfg.HFToken != "" {
		args = append(args, "--hf_token", w.cfg.HFToken)
	}

	if r.language != language.Auto {
		args = append(args, "--language", r.language)
	}

	if w.cfg.CUDAEnabled {
		args = append(args, "--device", CUDADevice)
	} else {
		args = append(args, "--device", CPUDevice, "--compute_type", CPUComputeType)
	}
	return args
}

type whisperXPayload struct {
	Segments []struct {
		Text  string  `json:"text"`
		Start float64 `json:"start"`
		End   float64 `json:"end"`
	} `json:"segments"`
}

// LoadWhisperXSegments loads segments from a WhisperX JSON file.
func LoadWhisperXSegments(jsonPath string) ([]Segment, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, err
	}
	var payload whisperXPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("parse whisperx json: %w", err)
	}
	segments := make([]Segment, 0, len(payload.Segments))
	for _, seg := range payload.Segments {
		segments = append(segments, Segment{Start: At(seg.Start), End: At(seg.End), Text: seg.Text})
	}
	return segments, nil
}
