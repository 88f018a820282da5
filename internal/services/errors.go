package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Stage labels used in error reports and job summaries.
const (
	StageAllocate   = "allocate"
	StageExtract    = "extract"
	StageTranscribe = "transcribe"
	StageSerialize  = "serialize"
	StageBurn       = "burn"
	StagePending    = "pending"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// TranscodeError reports a failed ffmpeg invocation for the extract or burn stage.
type TranscodeError struct {
	Stage string
	Path  string
	Err   error
}

func (e *TranscodeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("transcode %s %s: %v", e.Stage, e.Path, e.Err)
}

func (e *TranscodeError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// TranscriptionError reports a speech recognition failure for an audio file.
type TranscriptionError struct {
	Path string
	Err  error
}

func (e *TranscriptionError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("transcribe %s: %v", e.Path, e.Err)
}

func (e *TranscriptionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// SerializationError reports a failure to write a subtitle file.
type SerializationError struct {
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Path == "" {
		return fmt.Sprintf("write subtitles: %v", e.Err)
	}
	return fmt.Sprintf("write subtitles %s: %v", e.Path, e.Err)
}

func (e *SerializationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ResourceAllocationError reports that a scratch or output path could not be prepared.
type ResourceAllocationError struct {
	Err error
}

func (e *ResourceAllocationError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("allocate scratch path: %v", e.Err)
}

func (e *ResourceAllocationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// StageOf maps a pipeline error to the stage label that produced it.
// Unclassified errors return an empty string.
func StageOf(err error) string {
	if err == nil {
		return ""
	}
	var transcodeErr *TranscodeError
	if errors.As(err, &transcodeErr) {
		return transcodeErr.Stage
	}
	var transcriptionErr *TranscriptionError
	if errors.As(err, &transcriptionErr) {
		return StageTranscribe
	}
	var serializationErr *SerializationError
	if errors.As(err, &serializationErr) {
		return StageSerialize
	}
	var allocErr *ResourceAllocationError
	if errors.As(err, &allocErr) {
		return StageAllocate
	}
	return ""
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
