package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"subburn/internal/config"
	"subburn/internal/whisper"
)

// ConfigOption customizes a config produced by NewConfig.
type ConfigOption func(testing.TB, *config.Config)

// NewConfig returns the default config with every writable location moved
// under a fresh temp directory, then applies opts in order.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths = config.Paths{
		OutputDir:  filepath.Join(base, "output"),
		ScratchDir: filepath.Join(base, "scratch"),
		LogDir:     filepath.Join(base, "logs"),
		ModelsDir:  filepath.Join(base, "models"),
		HistoryDB:  filepath.Join(base, "state", "history.db"),
	}
	for _, opt := range opts {
		opt(t, &cfg)
	}
	return &cfg
}

// BaseDir returns the temp directory backing a config from NewConfig.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.ScratchDir)
}

// WithModel selects a whisper.cpp model and installs a placeholder weights
// file so model checks pass.
func WithModel(name string) ConfigOption {
	return func(t testing.TB, cfg *config.Config) {
		cfg.Transcription.Model = name
		path := filepath.Join(cfg.Paths.ModelsDir, whisper.GGMLFileName(name))
		writeFixture(t, path, []byte("ggml"), 0o644)
	}
}

// WithStubbedBinaries installs no-op executables for names under the config's
// base directory and prepends it to PATH for the duration of the test. With no
// names, ffmpeg, ffprobe, and whisper-cli are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(t testing.TB, cfg *config.Config) {
		if len(names) == 0 {
			names = []string{cfg.Transcoder.FFmpegCommand, cfg.Transcoder.FFprobeCommand, cfg.Transcription.WhisperCommand}
		}
		binDir := filepath.Join(BaseDir(cfg), "bin")
		for _, name := range names {
			WriteScript(t, filepath.Join(binDir, name), "#!/bin/sh\nexit 0\n")
		}
		t.Setenv("PATH", binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	}
}
