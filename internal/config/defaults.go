package config

import (
	"os"
	"path/filepath"

	"subburn/internal/whisper"
)

const (
	defaultOutputDir         = "."
	defaultLogDir            = "~/.local/share/subburn/logs"
	defaultModelsDir         = "~/.local/share/subburn/models"
	defaultHistoryDB         = "~/.local/share/subburn/history.db"
	defaultEngine            = EngineWhisperCPP
	defaultLanguage          = "auto"
	defaultWhisperCommand    = "whisper-cli"
	defaultVADMethod         = "silero"
	defaultFFmpegCommand     = "ffmpeg"
	defaultFFprobeCommand    = "ffprobe"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultConcurrency       = 1
	defaultStaleScratchHours = 24
	maxConcurrency           = 16

	// DefaultSubtitleStyle draws an opaque black outline with no background box.
	DefaultSubtitleStyle = "BorderStyle=1,OutlineColour=&H00000000,Outline=2,Shadow=0"
)

// Recognizer engine identifiers.
const (
	EngineWhisperCPP = "whispercpp"
	EngineWhisperX   = "whisperx"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			ScratchDir: defaultScratchDir(),
			LogDir:     defaultLogDir,
			ModelsDir:  defaultModelsDir,
			HistoryDB:  defaultHistoryDB,
		},
		Transcription: Transcription{
			Engine:            defaultEngine,
			Model:             whisper.DefaultModel,
			Language:          defaultLanguage,
			Task:              string(whisper.TaskTranscribe),
			WhisperCommand:    defaultWhisperCommand,
			WhisperXVADMethod: defaultVADMethod,
		},
		Transcoder: Transcoder{
			FFmpegCommand:  defaultFFmpegCommand,
			FFprobeCommand: defaultFFprobeCommand,
			SubtitleStyle:  DefaultSubtitleStyle,
			VerifyOutputs:  true,
		},
		Pipeline: Pipeline{
			Concurrency:       defaultConcurrency,
			StaleScratchHours: defaultStaleScratchHours,
			HistoryEnabled:    true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}

func defaultScratchDir() string {
	return filepath.Join(os.TempDir(), "subburn")
}
