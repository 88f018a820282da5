package pipeline

import (
	"errors"
	"fmt"

	"subburn/internal/transcribe"
)

// Status is the lifecycle position of a Job.
type Status string

const (
	StatusPending          Status = "pending"
	StatusAudioExtracted   Status = "audio_extracted"
	StatusTranscribed      Status = "transcribed"
	StatusSubtitlesWritten Status = "subtitles_written"
	StatusCompleted        Status = "completed"
	StatusFailed           Status = "failed"
)

// ErrPathAlreadySet is returned when a job path is assigned twice.
var ErrPathAlreadySet = errors.New("path already set")

var nextStatus = map[Status]Status{
	StatusPending:          StatusAudioExtracted,
	StatusAudioExtracted:   StatusTranscribed,
	StatusTranscribed:      StatusSubtitlesWritten,
	StatusSubtitlesWritten: StatusCompleted,
}

// IsTerminal reports whether no further transitions are allowed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job tracks one source video through the pipeline. A Job is owned by a
// single worker and is not safe for concurrent mutation.
type Job struct {
	Index      int
	SourcePath string

	AudioPath    string
	Segments     []transcribe.Segment
	SubtitlePath string
	OutputPath   string

	Status      Status
	Err         error
	FailedStage string
}

// NewJob creates a pending job for the 1-based batch position index.
func NewJob(index int, sourcePath string) *Job {
	return &Job{Index: index, SourcePath: sourcePath, Status: StatusPending}
}

// Advance moves the job one step forward. Skipping steps, moving backwards,
// or leaving a terminal state is rejected.
func (j *Job) Advance(to Status) error {
	if j.Status.IsTerminal() {
		return fmt.Errorf("job %d: invalid transition %s -> %s", j.Index, j.Status, to)
	}
	if nextStatus[j.Status] != to {
		return fmt.Errorf("job %d: invalid transition %s -> %s", j.Index, j.Status, to)
	}
	j.Status = to
	return nil
}

// Fail marks the job failed at stage. Failing a terminal job is a no-op.
func (j *Job) Fail(stage string, err error) {
	if j.Status.IsTerminal() {
		return
	}
	if err == nil {
		err = errors.New("unknown failure")
	}
	j.Status = StatusFailed
	j.Err = err
	j.FailedStage = stage
}

// SetAudioPath records the extracted audio path once.
func (j *Job) SetAudioPath(path string) error {
	return setOnce(&j.AudioPath, path, "audio")
}

// SetSubtitlePath records the subtitle file path once.
func (j *Job) SetSubtitlePath(path string) error {
	return setOnce(&j.SubtitlePath, path, "subtitle")
}

// SetOutputPath records the final video path once.
func (j *Job) SetOutputPath(path string) error {
	return setOnce(&j.OutputPath, path, "output")
}

func setOnce(field *string, value, name string) error {
	if *field != "" {
		return fmt.Errorf("%s %w", name, ErrPathAlreadySet)
	}
	*field = value
	return nil
}
