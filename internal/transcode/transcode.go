package transcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"subburn/internal/logging"
	"subburn/internal/media/ffprobe"
	"subburn/internal/services"
)

// SpeechSampleRate is the sample rate of extracted audio in Hz.
const SpeechSampleRate = 16000

// Transcoder converts media for the batch pipeline.
type Transcoder interface {
	ExtractAudio(ctx context.Context, sourcePath, dest string) error
	BurnSubtitles(ctx context.Context, videoPath, subtitlePath, dest string) error
}

// Runner executes an external command. Implementations must honour ctx
// cancellation by killing the process.
type Runner func(ctx context.Context, name string, args ...string) error

// Config captures ffmpeg settings.
type Config struct {
	FFmpegBinary  string
	FFprobeBinary string
	// SubtitleStyle is the ASS force_style applied during burn-in.
	SubtitleStyle string
	// Verify probes every produced file before it is published.
	Verify bool
}

// FFmpeg implements Transcoder by shelling out to ffmpeg.
type FFmpeg struct {
	cfg    Config
	run    Runner
	prober *ffprobe.Prober
	logger *slog.Logger
}

// New constructs an ffmpeg-backed Transcoder.
func New(cfg Config, logger *slog.Logger) *FFmpeg {
	if strings.TrimSpace(cfg.FFmpegBinary) == "" {
		cfg.FFmpegBinary = "ffmpeg"
	}
	if strings.TrimSpace(cfg.SubtitleStyle) == "" {
		cfg.SubtitleStyle = DefaultSubtitleStyle
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FFmpeg{
		cfg:    cfg,
		run:    execRunner,
		prober: ffprobe.NewProber(cfg.FFprobeBinary),
		logger: logging.NewComponentLogger(logger, "transcode"),
	}
}

// DefaultSubtitleStyle draws white text with an opaque black outline and no box.
const DefaultSubtitleStyle = "BorderStyle=1,OutlineColour=&H00000000,Outline=2,Shadow=0"

// WithCommandRunner sets a custom command runner (for testing).
func (f *FFmpeg) WithCommandRunner(runner Runner) *FFmpeg {
	if runner != nil {
		f.run = runner
	}
	return f
}

// WithProber replaces the output verifier.
func (f *FFmpeg) WithProber(prober *ffprobe.Prober) *FFmpeg {
	if prober != nil {
		f.prober = prober
	}
	return f
}

// ExtractAudio decodes the primary audio track of sourcePath into a mono
// 16 kHz PCM WAV at dest.
func (f *FFmpeg) ExtractAudio(ctx context.Context, sourcePath, dest string) error {
	if err := requireFile(sourcePath); err != nil {
		return &services.TranscodeError{Stage: services.StageExtract, Path: sourcePath, Err: err}
	}
	err := f.produce(ctx, dest, func(partial string) []string {
		return buildExtractArgs(sourcePath, partial)
	}, func(result ffprobe.Result) error {
		return result.CheckSpeechAudio(SpeechSampleRate)
	})
	if err != nil {
		return &services.TranscodeError{Stage: services.StageExtract, Path: sourcePath, Err: err}
	}
	return nil
}

// BurnSubtitles renders subtitlePath onto videoPath and writes the result to dest.
func (f *FFmpeg) BurnSubtitles(ctx context.Context, videoPath, subtitlePath, dest string) error {
	for _, input := range []string{videoPath, subtitlePath} {
		if err := requireFile(input); err != nil {
			return &services.TranscodeError{Stage: services.StageBurn, Path: videoPath, Err: err}
		}
	}
	err := f.produce(ctx, dest, func(partial string) []string {
		return buildBurnArgs(videoPath, subtitlePath, f.cfg.SubtitleStyle, partial)
	}, func(result ffprobe.Result) error {
		return result.CheckPlayableVideo()
	})
	if err != nil {
		return &services.TranscodeError{Stage: services.StageBurn, Path: videoPath, Err: err}
	}
	return nil
}

// produce runs ffmpeg into a partial file next to dest, verifies it, and
// renames it into place. The partial file never survives a failure.
func (f *FFmpeg) produce(ctx context.Context, dest string, args func(partial string) []string, verify func(ffprobe.Result) error) (err error) {
	if strings.TrimSpace(dest) == "" {
		return services.Wrap(services.ErrValidation, "", "output", "destination path required", nil)
	}
	partial := PartialPath(dest)
	defer func() {
		if err != nil {
			_ = os.Remove(partial)
		}
	}()

	cmdArgs := args(partial)
	f.logger.Debug("running ffmpeg",
		logging.String("command", f.cfg.FFmpegBinary),
		logging.String("args", strings.Join(cmdArgs, " ")),
	)
	if err := f.run(ctx, f.cfg.FFmpegBinary, cmdArgs...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return services.Wrap(services.ErrExternalTool, "", "ffmpeg", "", err)
	}
	info, statErr := os.Stat(partial)
	if statErr != nil {
		return services.Wrap(services.ErrExternalTool, "", "ffmpeg", "completed but output file is missing", statErr)
	}
	if info.Size() == 0 {
		return services.Wrap(services.ErrExternalTool, "", "ffmpeg", "completed but output file is empty", nil)
	}
	if f.cfg.Verify {
		result, probeErr := f.prober.Inspect(ctx, partial)
		if probeErr != nil {
			return services.Wrap(services.ErrExternalTool, "", "verify", "", probeErr)
		}
		if verr := verify(result); verr != nil {
			return services.Wrap(services.ErrValidation, "", "verify", "", verr)
		}
		if d, ok := result.Duration(); ok {
			f.logger.Debug("output verified", logging.String("path", dest), logging.Duration("media_duration", d))
		}
	}
	if err := os.Rename(partial, dest); err != nil {
		return fmt.Errorf("publish %s: %w", dest, err)
	}
	return nil
}

// PartialPath returns the in-progress file name ffmpeg writes for dest.
// The extension is kept so ffmpeg still infers the container format.
func PartialPath(dest string) string {
	ext := filepath.Ext(dest)
	return strings.TrimSuffix(dest, ext) + ".partial" + ext
}

func requireFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrValidation, "", "input", "path required", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "", "input", path, err)
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return services.Wrap(services.ErrValidation, "", "input", path+" is a directory", nil)
	}
	return nil
}

func buildExtractArgs(source, dest string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-y",
		"-i", source,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
}

func buildBurnArgs(video, subtitle, style, dest string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-loglevel", "error",
		"-y",
		"-i", video,
		"-vf", SubtitleFilter(subtitle, style),
		"-c:a", "copy",
		dest,
	}
}

// SubtitleFilter builds the ffmpeg subtitles filter expression for path.
func SubtitleFilter(path, style string) string {
	filter := "subtitles=" + escapeFilterValue(path)
	if style = strings.TrimSpace(style); style != "" {
		filter += ":force_style='" + style + "'"
	}
	return filter
}

var (
	optionEscaper = strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`)
	graphEscaper  = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
)

// escapeFilterValue applies ffmpeg's two escaping levels: the filter option
// parser first, then the filtergraph parser.
func escapeFilterValue(value string) string {
	return graphEscaper.Replace(optionEscaper.Replace(value))
}

func execRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, tail(strings.TrimSpace(string(output)), 2048))
	}
	return nil
}

func tail(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return "..." + value[len(value)-limit:]
}
