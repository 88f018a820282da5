package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	OutputDir  string `toml:"output_dir"`
	ScratchDir string `toml:"scratch_dir"`
	LogDir     string `toml:"log_dir"`
	ModelsDir  string `toml:"models_dir"`
	HistoryDB  string `toml:"history_db"`
}

// Transcription contains speech recognition settings.
type Transcription struct {
	// Engine selects the recognizer backend ("whispercpp" or "whisperx").
	Engine   string `toml:"engine"`
	Model    string `toml:"model"`
	Language string `toml:"language"`
	Task     string `toml:"task"`
	// WhisperCommand is the whisper.cpp CLI binary.
	WhisperCommand string `toml:"whisper_command"`
	Threads        int    `toml:"threads"`
	// WhisperX settings are only read when Engine is "whisperx".
	WhisperXCUDAEnabled bool   `toml:"whisperx_cuda"`
	WhisperXVADMethod   string `toml:"whisperx_vad_method"`
	WhisperXHuggingFace string `toml:"whisperx_hf_token"`
}

// Transcoder contains ffmpeg settings for audio extraction and subtitle burn-in.
type Transcoder struct {
	FFmpegCommand  string `toml:"ffmpeg_command"`
	FFprobeCommand string `toml:"ffprobe_command"`
	SubtitleStyle  string `toml:"subtitle_style"`
	VerifyOutputs  bool   `toml:"verify_outputs"`
}

// Pipeline contains batch scheduling and failure policy settings.
type Pipeline struct {
	Concurrency           int  `toml:"concurrency"`
	FailOnEmptyTranscript bool `toml:"fail_on_empty_transcript"`
	StaleScratchHours     int  `toml:"stale_scratch_hours"`
	HistoryEnabled        bool `toml:"history_enabled"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Metrics contains configuration for the Prometheus textfile export.
type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Config encapsulates all configuration values for subburn.
//
// Configuration sections by subsystem:
//   - Paths: output, scratch, log, model, and history locations
//   - Transcription: recognizer engine, model, language, and task
//   - Transcoder: ffmpeg binaries and the burn-in subtitle style
//   - Pipeline: concurrency and failure policy
//   - Logging: log format and level
//   - Metrics: optional Prometheus textfile export
type Config struct {
	Paths         Paths         `toml:"paths"`
	Transcription Transcription `toml:"transcription"`
	Transcoder    Transcoder    `toml:"transcoder"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Logging       Logging       `toml:"logging"`
	Metrics       Metrics       `toml:"metrics"`
}

// Source describes where a loaded configuration came from.
type Source struct {
	// Path is the file that was read, or the default location when no file
	// existed.
	Path string
	// Exists is false when defaults were used.
	Exists bool
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/subburn/config.toml")
}

// Load locates, parses, and validates a configuration file. An explicit path
// must exist; otherwise the user config and then ./subburn.toml are tried,
// falling back to defaults. Unknown keys are rejected. The returned config has
// all path fields expanded.
func Load(path string) (*Config, Source, error) {
	cfg := Default()

	src, err := locate(path)
	if err != nil {
		return nil, Source{}, err
	}
	if src.Exists {
		if err := decodeFile(src.Path, &cfg); err != nil {
			return nil, Source{}, err
		}
	}
	if err := cfg.Finalize(); err != nil {
		return nil, Source{}, err
	}
	return &cfg, src, nil
}

func decodeFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := toml.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Finalize normalizes and validates the configuration. Callers that override
// fields after Load (for example from command-line flags) run it again.
func (c *Config) Finalize() error {
	if err := c.normalize(); err != nil {
		return err
	}
	return c.Validate()
}

// WriteTOML encodes the effective configuration.
func (c *Config) WriteTOML(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(c)
}

func locate(path string) (Source, error) {
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return Source{}, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return Source{}, fmt.Errorf("config file %q not found", expanded)
			}
			return Source{}, fmt.Errorf("stat config: %w", err)
		}
		return Source{Path: expanded, Exists: true}, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return Source{}, err
	}
	projectPath, err := filepath.Abs("subburn.toml")
	if err != nil {
		return Source{}, err
	}
	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return Source{Path: candidate, Exists: true}, nil
		}
	}
	return Source{Path: defaultPath}, nil
}

// EnsureDirectories creates the directories a batch run writes into,
// including the parents of the history database and metrics textfile when
// those are enabled.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir, c.Paths.ScratchDir, c.Paths.LogDir}
	if c.Pipeline.HistoryEnabled && strings.TrimSpace(c.Paths.HistoryDB) != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.HistoryDB))
	}
	if strings.TrimSpace(c.Metrics.Textfile) != "" {
		dirs = append(dirs, filepath.Dir(c.Metrics.Textfile))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ExpandPath resolves a leading ~ to the home directory and returns an
// absolute, cleaned path. The empty string is returned unchanged.
func ExpandPath(value string) (string, error) {
	if value == "" {
		return "", nil
	}
	if value == "~" || strings.HasPrefix(value, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		value = filepath.Join(home, strings.TrimPrefix(value, "~"))
	}
	absolute, err := filepath.Abs(value)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", value, err)
	}
	return absolute, nil
}

// ErrConfigExists is returned by CreateSample when the target exists and
// overwriting was not requested.
var ErrConfigExists = errors.New("config file already exists")

// CreateSample writes the annotated sample configuration to path, creating
// parent directories.
func CreateSample(path string, overwrite bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	file, err := os.OpenFile(path, flags, 0o644)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w at %s", ErrConfigExists, path)
	}
	if err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	if _, err := io.WriteString(file, sampleConfig); err != nil {
		_ = file.Close()
		return fmt.Errorf("write sample config: %w", err)
	}
	return file.Close()
}
