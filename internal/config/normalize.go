package config

import (
	"fmt"
	"os"
	"strings"

	"subburn/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTranscription()
	c.normalizeTranscoder()
	c.normalizePipeline()
	c.normalizeLogging()
	if err := c.normalizeMetrics(); err != nil {
		return err
	}
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = ExpandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ScratchDir) == "" {
		c.Paths.ScratchDir = defaultScratchDir()
	}
	if c.Paths.ScratchDir, err = ExpandPath(c.Paths.ScratchDir); err != nil {
		return fmt.Errorf("paths.scratch_dir: %w", err)
	}
	if c.Paths.LogDir, err = ExpandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if value, ok := os.LookupEnv("SUBBURN_MODELS_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.ModelsDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.ModelsDir) == "" {
		c.Paths.ModelsDir = defaultModelsDir
	}
	if c.Paths.ModelsDir, err = ExpandPath(c.Paths.ModelsDir); err != nil {
		return fmt.Errorf("paths.models_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.HistoryDB) == "" {
		c.Paths.HistoryDB = defaultHistoryDB
	}
	if c.Paths.HistoryDB, err = ExpandPath(c.Paths.HistoryDB); err != nil {
		return fmt.Errorf("paths.history_db: %w", err)
	}
	return nil
}

func (c *Config) normalizeTranscription() {
	c.Transcription.Engine = strings.ToLower(strings.TrimSpace(c.Transcription.Engine))
	if c.Transcription.Engine == "" {
		c.Transcription.Engine = defaultEngine
	}
	c.Transcription.Model = strings.TrimSpace(c.Transcription.Model)
	if normalized, err := language.Normalize(c.Transcription.Language); err == nil {
		c.Transcription.Language = normalized
	}
	c.Transcription.Task = strings.ToLower(strings.TrimSpace(c.Transcription.Task))
	c.Transcription.WhisperCommand = strings.TrimSpace(c.Transcription.WhisperCommand)
	if c.Transcription.WhisperCommand == "" {
		c.Transcription.WhisperCommand = defaultWhisperCommand
	}
	if c.Transcription.Threads < 0 {
		c.Transcription.Threads = 0
	}
	c.Transcription.WhisperXVADMethod = strings.ToLower(strings.TrimSpace(c.Transcription.WhisperXVADMethod))
	if c.Transcription.WhisperXVADMethod == "" {
		c.Transcription.WhisperXVADMethod = defaultVADMethod
	}
	c.Transcription.WhisperXHuggingFace = strings.TrimSpace(c.Transcription.WhisperXHuggingFace)
	if c.Transcription.WhisperXHuggingFace == "" {
		if value, ok := os.LookupEnv("HUGGING_FACE_HUB_TOKEN"); ok {
			c.Transcription.WhisperXHuggingFace = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("HF_TOKEN"); ok {
			c.Transcription.WhisperXHuggingFace = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeTranscoder() {
	c.Transcoder.FFmpegCommand = strings.TrimSpace(c.Transcoder.FFmpegCommand)
	if c.Transcoder.FFmpegCommand == "" {
		c.Transcoder.FFmpegCommand = defaultFFmpegCommand
	}
	c.Transcoder.FFprobeCommand = strings.TrimSpace(c.Transcoder.FFprobeCommand)
	if c.Transcoder.FFprobeCommand == "" {
		c.Transcoder.FFprobeCommand = defaultFFprobeCommand
	}
	c.Transcoder.SubtitleStyle = strings.TrimSpace(c.Transcoder.SubtitleStyle)
	if c.Transcoder.SubtitleStyle == "" {
		c.Transcoder.SubtitleStyle = DefaultSubtitleStyle
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.Concurrency <= 0 {
		c.Pipeline.Concurrency = defaultConcurrency
	}
	if c.Pipeline.StaleScratchHours < 0 {
		c.Pipeline.StaleScratchHours = 0
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeMetrics() error {
	var err error
	if c.Metrics.Textfile, err = ExpandPath(strings.TrimSpace(c.Metrics.Textfile)); err != nil {
		return fmt.Errorf("metrics.textfile: %w", err)
	}
	return nil
}
