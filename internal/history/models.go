package history

import "time"

// Run is one recorded batch.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Model      string
	Language   string
	Task       string
	SRTOnly    bool
	OutputDir  string
	Total      int
	Failed     int
}

// Finished reports whether the run recorded a completion.
func (r Run) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Succeeded returns the number of jobs that did not fail.
func (r Run) Succeeded() int {
	return r.Total - r.Failed
}

// Duration is the recorded wall-clock length, zero for unfinished runs.
func (r Run) Duration() time.Duration {
	if !r.Finished() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// JobRecord is the persisted outcome of one video.
type JobRecord struct {
	RunID        string
	Position     int
	SourcePath   string
	Kind         string
	OutputPath   string
	SubtitlePath string
	Cues         int
	FailedStage  string
	ErrorMessage string
	Duration     time.Duration
}
