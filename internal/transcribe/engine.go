package transcribe

import (
	"fmt"
	"log/slog"

	"subburn/internal/config"
)

// NewFromConfig builds the engine selected by cfg.Transcription.Engine.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (Transcriber, error) {
	if cfg == nil {
		return nil, fmt.Errorf("transcriber: config required")
	}
	switch cfg.Transcription.Engine {
	case config.EngineWhisperCPP, "":
		return NewWhisperCPP(WhisperCPPConfig{
			Binary:    cfg.Transcription.WhisperCommand,
			ModelsDir: cfg.Paths.ModelsDir,
			Threads:   cfg.Transcription.Threads,
		}, logger), nil
	case config.EngineWhisperX:
		return NewWhisperX(WhisperXConfig{
			CUDAEnabled: cfg.Transcription.WhisperXCUDAEnabled,
			VADMethod:   cfg.Transcription.WhisperXVADMethod,
			HFToken:     cfg.Transcription.WhisperXHuggingFace,
		}, logger), nil
	default:
		return nil, fmt.Errorf("transcriber: unsupported engine %q", cfg.Transcription.Engine)
	}
}
