package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"subburn/internal/fileutil"
	"subburn/internal/logging"
	"subburn/internal/scratch"
	"subburn/internal/services"
	"subburn/internal/srt"
	"subburn/internal/transcode"
	"subburn/internal/transcribe"
)

// ErrEmptyTranscript is the job error when no speech was recognized and
// Options.FailOnEmptyTranscript is set.
var ErrEmptyTranscript = errors.New("transcription produced no segments")

// Recorder persists run and job results. Implementations must be safe for
// concurrent use.
type Recorder interface {
	StartRun(ctx context.Context, runID string, sources []string, opts Options) error
	RecordOutcome(ctx context.Context, runID string, outcome Outcome) error
	FinishRun(ctx context.Context, report Report) error
}

// Metrics receives timing observations. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ObserveStage(stage string, elapsed time.Duration, err error)
	ObserveJob(kind, failedStage string, elapsed time.Duration)
}

// Deps are the collaborators an Orchestrator drives.
type Deps struct {
	Transcoder  transcode.Transcoder
	Transcriber transcribe.Transcriber
	Scratch     *scratch.Manager
	Logger      *slog.Logger
	Recorder    Recorder
	Metrics     Metrics
}

// Orchestrator runs batches of jobs through extract, transcribe, serialize,
// and burn.
type Orchestrator struct {
	deps   Deps
	logger *slog.Logger
}

// New validates deps and constructs an Orchestrator.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Transcoder == nil {
		return nil, fmt.Errorf("pipeline: transcoder required")
	}
	if deps.Transcriber == nil {
		return nil, fmt.Errorf("pipeline: transcriber required")
	}
	if deps.Scratch == nil {
		return nil, fmt.Errorf("pipeline: scratch manager required")
	}
	return &Orchestrator{deps: deps, logger: logging.NewComponentLogger(deps.Logger, "pipeline")}, nil
}

// Run processes every source and returns one outcome per source in input
// order. A failing job never stops the others. Once ctx is done no new job
// starts; jobs that never started fail at the pending stage with ctx's error.
func (o *Orchestrator) Run(ctx context.Context, sources []string, opts Options) Report {
	runID := o.deps.Scratch.RunID()
	ctx = services.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, o.logger)

	report := Report{RunID: runID, Outcomes: make([]Outcome, len(sources)), Started: time.Now()}
	if o.deps.Recorder != nil {
		if err := o.deps.Recorder.StartRun(ctx, runID, sources, opts); err != nil {
			logging.WarnWithContext(logger, "failed to record run start", "history_write_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "run will be missing from history"),
			)
		}
	}

	logger.Info("batch started",
		logging.Int("videos", len(sources)),
		logging.Int("workers", opts.workers(len(sources))),
		logging.String("model", opts.Model),
		logging.String("language", opts.Language),
		logging.String("task", string(opts.Task)),
		logging.Bool("srt_only", opts.SRTOnly),
		logging.String(logging.FieldEventType, "batch_start"),
	)

	if len(sources) > 0 {
		queue := make(chan int, len(sources))
		for i := range sources {
			queue <- i
		}
		close(queue)

		var wg sync.WaitGroup
		for w := 0; w < opts.workers(len(sources)); w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range queue {
					job := NewJob(i+1, sources[i])
					if err := ctx.Err(); err != nil {
						job.Fail(services.StagePending, err)
						report.Outcomes[i] = outcomeFor(job, opts, 0, 0)
						continue
					}
					report.Outcomes[i] = o.runJob(ctx, job, opts)
				}
			}()
		}
		wg.Wait()
	}

	report.Finished = time.Now()
	for _, outcome := range report.Outcomes {
		if o.deps.Metrics != nil {
			o.deps.Metrics.ObserveJob(string(outcome.Kind), outcome.Stage, outcome.Duration)
		}
		if o.deps.Recorder != nil {
			if err := o.deps.Recorder.RecordOutcome(context.WithoutCancel(ctx), runID, outcome); err != nil {
				logging.WarnWithContext(logger, "failed to record job outcome", "history_write_failed",
					logging.Error(err),
					logging.String(logging.FieldSource, outcome.Source),
				)
			}
		}
	}
	if o.deps.Recorder != nil {
		if err := o.deps.Recorder.FinishRun(context.WithoutCancel(ctx), report); err != nil {
			logging.WarnWithContext(logger, "failed to record run completion", "history_write_failed", logging.Error(err))
		}
	}

	logger.Info("batch finished",
		logging.Int("videos", len(sources)),
		logging.Int("failed", report.Failed()),
		logging.Duration("elapsed", report.Duration()),
		logging.String(logging.FieldEventType, "batch_complete"),
	)
	return report
}

// runJob drives one job to a terminal state. Scratch files are removed on
// every path out.
func (o *Orchestrator) runJob(ctx context.Context, job *Job, opts Options) Outcome {
	started := time.Now()
	ctx = services.WithJob(ctx, job.Index, filepath.Base(job.SourcePath))
	logger := logging.WithContext(ctx, o.logger)

	scope := o.deps.Scratch.Scope(job.SourcePath)
	defer func() {
		if err := scope.Close(); err != nil {
			logging.WarnWithContext(logger, "failed to remove scratch files", "scratch_cleanup_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check scratch_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed until the run ends"),
			)
		}
	}()

	cues := 0
	err := o.execute(ctx, logger, job, scope, opts, &cues)
	if err != nil {
		stage := services.StageOf(err)
		if stage == "" {
			stage = pendingStage(job.Status)
		}
		job.Fail(stage, err)
		logging.ErrorWithContext(logger, "video failed", "job_failed",
			logging.String(logging.FieldStage, stage),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, hintFor(stage)),
		)
	} else {
		logger.Info("video finished",
			logging.String("output", job.OutputPath),
			logging.String("subtitles", job.SubtitlePath),
			logging.Int("cues", cues),
			logging.Duration("elapsed", time.Since(started)),
			logging.String(logging.FieldEventType, "job_complete"),
		)
	}
	return outcomeFor(job, opts, cues, time.Since(started))
}

func (o *Orchestrator) execute(ctx context.Context, logger *slog.Logger, job *Job, scope *scratch.Scope, opts Options, cues *int) error {
	// extract
	audio, err := scope.Audio()
	if err != nil {
		return err
	}
	logger.Info("extracting audio", logging.String(logging.FieldEventType, "stage_start"))
	if err := o.stage(ctx, services.StageExtract, func(ctx context.Context) error {
		return o.deps.Transcoder.ExtractAudio(ctx, job.SourcePath, audio)
	}); err != nil {
		return err
	}
	if err := job.SetAudioPath(audio); err != nil {
		return err
	}
	if err := job.Advance(StatusAudioExtracted); err != nil {
		return err
	}

	// transcribe
	logger.Info("generating subtitles, this might take a while", logging.String(logging.FieldEventType, "stage_start"))
	var segments []transcribe.Segment
	if err := o.stage(ctx, services.StageTranscribe, func(ctx context.Context) error {
		var err error
		segments, err = o.deps.Transcriber.Transcribe(ctx, audio, transcribe.Request{
			Model:    opts.Model,
			Language: opts.Language,
			Task:     opts.Task,
		})
		return err
	}); err != nil {
		return err
	}
	if len(segments) == 0 {
		if opts.FailOnEmptyTranscript {
			return &services.TranscriptionError{Path: audio, Err: ErrEmptyTranscript}
		}
		logging.WarnWithContext(logger, "no speech recognized", "empty_transcript",
			logging.String(logging.FieldErrorHint, "check the audio track or try a larger model"),
			logging.String(logging.FieldImpact, "subtitle track will be empty"),
		)
	}
	job.Segments = segments
	if err := job.Advance(StatusTranscribed); err != nil {
		return err
	}

	// serialize
	retain := opts.retainSubtitles()
	subtitlePath, err := scope.Subtitle(retain, opts.OutputDir)
	if err != nil {
		return err
	}
	content := srt.Format(segments)
	if err := o.stage(ctx, services.StageSerialize, func(context.Context) error {
		if err := scratch.WriteFileAtomic(subtitlePath, []byte(content), 0o644); err != nil {
			return &services.SerializationError{Path: subtitlePath, Err: err}
		}
		return nil
	}); err != nil {
		return err
	}
	*cues = srt.CountCues(content)
	if err := job.SetSubtitlePath(subtitlePath); err != nil {
		return err
	}
	if err := job.Advance(StatusSubtitlesWritten); err != nil {
		return err
	}
	logger.Debug("subtitles written",
		logging.String("path", subtitlePath),
		logging.Int("cues", *cues),
	)

	if opts.SRTOnly {
		return job.Advance(StatusCompleted)
	}

	// burn
	rendered, err := scope.Video()
	if err != nil {
		return err
	}
	final, err := scope.Output(opts.OutputDir)
	if err != nil {
		return err
	}
	logger.Info("adding subtitles", logging.String(logging.FieldEventType, "stage_start"))
	if err := o.stage(ctx, services.StageBurn, func(ctx context.Context) error {
		if err := o.deps.Transcoder.BurnSubtitles(ctx, job.SourcePath, subtitlePath, rendered); err != nil {
			return err
		}
		if err := fileutil.MoveFile(rendered, final); err != nil {
			return &services.TranscodeError{Stage: services.StageBurn, Path: job.SourcePath, Err: fmt.Errorf("publish output: %w", err)}
		}
		return nil
	}); err != nil {
		return err
	}
	if err := job.SetOutputPath(final); err != nil {
		return err
	}
	return job.Advance(StatusCompleted)
}

// stage runs fn with the stage name attached to ctx and reports its timing.
func (o *Orchestrator) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	started := time.Now()
	err := fn(services.WithStage(ctx, name))
	if o.deps.Metrics != nil {
		o.deps.Metrics.ObserveStage(name, time.Since(started), err)
	}
	return err
}

// pendingStage names the stage a job in status would run next.
func pendingStage(status Status) string {
	switch status {
	case StatusPending:
		return services.StageExtract
	case StatusAudioExtracted:
		return services.StageTranscribe
	case StatusTranscribed:
		return services.StageSerialize
	default:
		return services.StageBurn
	}
}

func hintFor(stage string) string {
	switch stage {
	case services.StageExtract:
		return "check the input is a readable video with an audio track"
	case services.StageTranscribe:
		return "check the model weights and transcriber installation (subburn doctor)"
	case services.StageSerialize:
		return "check output_dir permissions and free space"
	case services.StageBurn:
		return "check ffmpeg supports the subtitles filter (libass)"
	case services.StageAllocate:
		return "check scratch_dir and output_dir permissions"
	default:
		return "check logs for details"
	}
}
