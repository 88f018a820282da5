package pipeline

import (
	"subburn/internal/config"
	"subburn/internal/whisper"
)

// Options is the batch-wide configuration. It is read-only during a run.
type Options struct {
	Model    string
	Language string
	Task     whisper.Task

	OutputDir string
	// OutputSRT retains the subtitle file next to the output video.
	OutputSRT bool
	// SRTOnly stops after writing subtitles; no video is rendered. Implies OutputSRT.
	SRTOnly bool

	// Concurrency is the number of jobs processed at once. Values below 1 mean 1.
	Concurrency int
	// FailOnEmptyTranscript fails jobs whose audio yields no speech instead of
	// producing an empty subtitle track.
	FailOnEmptyTranscript bool
}

// OptionsFromConfig derives batch options from loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{Concurrency: 1}
	}
	task, err := whisper.ParseTask(cfg.Transcription.Task)
	if err != nil {
		task = whisper.TaskTranscribe
	}
	return Options{
		Model:                 cfg.Transcription.Model,
		Language:              cfg.Transcription.Language,
		Task:                  task,
		OutputDir:             cfg.Paths.OutputDir,
		Concurrency:           cfg.Pipeline.Concurrency,
		FailOnEmptyTranscript: cfg.Pipeline.FailOnEmptyTranscript,
	}
}

func (o Options) retainSubtitles() bool {
	return o.OutputSRT || o.SRTOnly
}

func (o Options) workers(jobs int) int {
	n := o.Concurrency
	if n < 1 {
		n = 1
	}
	if n > jobs {
		n = jobs
	}
	return n
}
