package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"subburn/internal/config"
	"subburn/internal/deps"
	"subburn/internal/history"
	"subburn/internal/logging"
	"subburn/internal/metrics"
	"subburn/internal/pipeline"
	"subburn/internal/preflight"
	"subburn/internal/scratch"
	"subburn/internal/transcode"
	"subburn/internal/transcribe"
	"subburn/internal/whisper"
)

// runFlags holds the batch flags. Only flags the user changed override the
// configuration file.
type runFlags struct {
	model     string
	outputDir string
	outputSRT bool
	srtOnly   bool
	task      string
	language  string
	jobs      int
	engine    string
	json      bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.model, "model", whisper.DefaultModel, "Whisper model ("+strings.Join(whisper.Models(), ", ")+")")
	flags.StringVarP(&f.outputDir, "output_dir", "o", ".", "Directory for subtitled videos and retained subtitles")
	flags.BoolVar(&f.outputSRT, "output_srt", false, "Keep the generated .srt file in the output directory")
	flags.BoolVar(&f.srtOnly, "srt_only", false, "Only generate .srt files; do not render videos")
	flags.StringVar(&f.task, "task", string(whisper.TaskTranscribe), "transcribe (same language) or translate (to English)")
	flags.StringVar(&f.language, "language", "auto", "Spoken language code, or auto to detect (see `subburn languages`)")
	flags.IntVarP(&f.jobs, "jobs", "j", 1, "Number of videos processed at once")
	flags.StringVar(&f.engine, "engine", config.EngineWhisperCPP, "Transcription engine (whispercpp or whisperx)")
	flags.BoolVar(&f.json, "json", false, "Print the batch summary as JSON")
}

// apply copies changed flags onto cfg and re-validates it.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	changed := cmd.Flags().Changed
	if changed("model") {
		cfg.Transcription.Model = f.model
	}
	if changed("output_dir") {
		cfg.Paths.OutputDir = f.outputDir
	}
	if changed("task") {
		cfg.Transcription.Task = f.task
	}
	if changed("language") {
		cfg.Transcription.Language = f.language
	}
	if changed("jobs") {
		cfg.Pipeline.Concurrency = f.jobs
	}
	if changed("engine") {
		cfg.Transcription.Engine = f.engine
	}
	if err := cfg.Finalize(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

func (f *runFlags) options(cfg *config.Config) pipeline.Options {
	opts := pipeline.OptionsFromConfig(cfg)
	opts.OutputSRT = f.outputSRT
	opts.SRTOnly = f.srtOnly
	return opts
}

// errBatchFailed is returned when at least one video failed so the process
// exits non-zero after the summary has been printed.
type errBatchFailed struct {
	failed int
	total  int
}

func (e errBatchFailed) Error() string {
	return fmt.Sprintf("%d of %d videos failed", e.failed, e.total)
}

func runBatch(cmd *cobra.Command, ctx *commandContext, flags *runFlags, args []string) error {
	loaded, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	cfgCopy := *loaded
	cfg := &cfgCopy
	if err := flags.apply(cmd, cfg); err != nil {
		return err
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err := ctx.newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	if failed := preflight.Failed(preflight.RunAll(cfg)); len(failed) > 0 {
		return fmt.Errorf("%s: %s", failed[0].Name, failed[0].Detail)
	}
	if missing := deps.MissingRequired(deps.CheckBinaries(deps.Requirements(cfg))); len(missing) > 0 {
		return fmt.Errorf("missing required dependencies: %s (run `subburn doctor` for details)", strings.Join(missing, ", "))
	}

	sources, err := resolveSources(args)
	if err != nil {
		return err
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Pipeline.StaleScratchHours > 0 {
		scratch.CleanStale(runCtx, cfg.Paths.ScratchDir, time.Duration(cfg.Pipeline.StaleScratchHours)*time.Hour, logger)
	}

	manager, err := scratch.Open(cfg.Paths.ScratchDir, uuid.NewString(), logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := manager.Close(); err != nil {
			logger.Warn("failed to remove scratch run directory", logging.Error(err))
		}
	}()

	transcriber, err := transcribe.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	pipelineDeps := pipeline.Deps{
		Transcoder: transcode.New(transcode.Config{
			FFmpegBinary:  cfg.Transcoder.FFmpegCommand,
			FFprobeBinary: cfg.Transcoder.FFprobeCommand,
			SubtitleStyle: cfg.Transcoder.SubtitleStyle,
			Verify:        cfg.Transcoder.VerifyOutputs,
		}, logger),
		Transcriber: transcriber,
		Scratch:     manager,
		Logger:      logger,
	}

	if store := openHistory(cfg, logger); store != nil {
		defer store.Close()
		pipelineDeps.Recorder = store
	}
	var batchMetrics *metrics.Batch
	if cfg.Metrics.Textfile != "" {
		batchMetrics = metrics.New()
		pipelineDeps.Metrics = batchMetrics
	}

	orchestrator, err := pipeline.New(pipelineDeps)
	if err != nil {
		return err
	}
	report := orchestrator.Run(runCtx, sources, flags.options(cfg))

	if batchMetrics != nil {
		batchMetrics.ObserveRun(len(report.Outcomes), report.Failed(), report.Finished)
		if err := batchMetrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
			logging.WarnWithContext(logger, "failed to write metrics textfile", "metrics_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check metrics.textfile"),
			)
		}
	}

	if flags.json {
		if err := writeJSON(cmd, newJSONReport(report)); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), renderSummary(cmd.OutOrStdout(), report))
	}

	if report.OK() {
		return nil
	}
	failed := errBatchFailed{failed: report.Failed(), total: len(report.Outcomes)}
	if runCtx.Err() != nil {
		return fmt.Errorf("interrupted: %w", failed)
	}
	return failed
}

// resolveSources makes each argument absolute and rejects empty arguments.
// Missing files are left for the extract stage so they are reported per video.
func resolveSources(args []string) ([]string, error) {
	sources := make([]string, 0, len(args))
	for _, arg := range args {
		trimmed := strings.TrimSpace(arg)
		if trimmed == "" {
			return nil, errors.New("empty video path")
		}
		expanded, err := config.ExpandPath(trimmed)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", arg, err)
		}
		abs, err := filepath.Abs(expanded)
		if err != nil {
			return nil, fmt.Errorf("resolve %q: %w", arg, err)
		}
		sources = append(sources, abs)
	}
	return sources, nil
}

func openHistory(cfg *config.Config, logger *slog.Logger) *history.Store {
	if !cfg.Pipeline.HistoryEnabled || cfg.Paths.HistoryDB == "" {
		return nil
	}
	store, err := history.Open(cfg.Paths.HistoryDB)
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in `subburn history`"),
		)
		return nil
	}
	return store
}
