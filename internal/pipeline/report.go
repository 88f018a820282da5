package pipeline

import (
	"time"

	"subburn/internal/services"
)

// OutcomeKind classifies the result of one job.
type OutcomeKind string

const (
	KindSubtitledVideo OutcomeKind = "subtitled_video"
	KindSubtitleOnly   OutcomeKind = "subtitle_only"
	KindFailed         OutcomeKind = "failed"
)

// Outcome is the reported result of one job.
type Outcome struct {
	Index        int
	Source       string
	Kind         OutcomeKind
	OutputPath   string
	SubtitlePath string
	Cues         int
	// Stage names the failing stage; empty on success.
	Stage    string
	Err      error
	Duration time.Duration
}

// OK reports whether the job succeeded.
func (o Outcome) OK() bool {
	return o.Kind != KindFailed
}

// Report is the ordered result of a batch. Outcomes follow input order.
type Report struct {
	RunID    string
	Outcomes []Outcome
	Started  time.Time
	Finished time.Time
}

// OK reports whether every job succeeded.
func (r Report) OK() bool {
	for _, o := range r.Outcomes {
		if !o.OK() {
			return false
		}
	}
	return true
}

// Failed returns the number of failed jobs.
func (r Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if !o.OK() {
			n++
		}
	}
	return n
}

// Duration is the wall-clock length of the run.
func (r Report) Duration() time.Duration {
	if r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}

func outcomeFor(job *Job, opts Options, cues int, elapsed time.Duration) Outcome {
	out := Outcome{
		Index:        job.Index,
		Source:       job.SourcePath,
		SubtitlePath: job.SubtitlePath,
		Cues:         cues,
		Duration:     elapsed,
	}
	if !opts.retainSubtitles() {
		out.SubtitlePath = ""
	}
	switch {
	case job.Status == StatusFailed:
		out.Kind = KindFailed
		out.Stage = job.FailedStage
		if out.Stage == "" {
			out.Stage = services.StageOf(job.Err)
		}
		out.Err = job.Err
	case opts.SRTOnly:
		out.Kind = KindSubtitleOnly
	default:
		out.Kind = KindSubtitledVideo
		out.OutputPath = job.OutputPath
	}
	return out
}
