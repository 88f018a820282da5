package config

import (
	"errors"
	"fmt"

	"subburn/internal/language"
	"subburn/internal/whisper"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscription(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTranscription() error {
	switch c.Transcription.Engine {
	case EngineWhisperCPP, EngineWhisperX:
	default:
		return fmt.Errorf("transcription.engine: unsupported value %q (expected %s or %s)", c.Transcription.Engine, EngineWhisperCPP, EngineWhisperX)
	}
	if err := whisper.ValidateModel(c.Transcription.Model); err != nil {
		return fmt.Errorf("transcription.model: %w", err)
	}
	lang, err := language.Normalize(c.Transcription.Language)
	if err != nil {
		return fmt.Errorf("transcription.language: %w", err)
	}
	task, err := whisper.ParseTask(c.Transcription.Task)
	if err != nil {
		return fmt.Errorf("transcription.task: %w", err)
	}
	if whisper.IsEnglishOnly(c.Transcription.Model) {
		if task == whisper.TaskTranslate {
			return errors.New("transcription.task: translate is not supported by English-only models")
		}
		if lang != language.Auto && !language.IsEnglish(lang) {
			return fmt.Errorf("transcription.language: %s model only recognizes English, got %q", c.Transcription.Model, lang)
		}
	}
	switch c.Transcription.WhisperXVADMethod {
	case "silero", "pyannote":
	default:
		return fmt.Errorf("transcription.whisperx_vad_method: unsupported value %q", c.Transcription.WhisperXVADMethod)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Concurrency < 1 || c.Pipeline.Concurrency > maxConcurrency {
		return fmt.Errorf("pipeline.concurrency must be between 1 and %d", maxConcurrency)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
