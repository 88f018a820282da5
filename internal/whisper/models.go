// Package whisper describes the Whisper model family shared by every
// transcription engine.
package whisper

import (
	"fmt"
	"strings"
)

// DefaultModel is the small, fast model used when none is configured.
const DefaultModel = "small"

// Task selects same-language transcription or translation to English.
type Task string

const (
	TaskTranscribe Task = "transcribe"
	TaskTranslate  Task = "translate"
)

var models = []string{
	"tiny", "tiny.en",
	"base", "base.en",
	"small", "small.en",
	"medium", "medium.en",
	"large-v1", "large-v2", "large-v3",
}

// Models returns the accepted model identifiers from smallest to largest.
func Models() []string {
	return append([]string(nil), models...)
}

// ValidateModel reports an error when name is not a known model identifier.
func ValidateModel(name string) error {
	name = strings.TrimSpace(name)
	for _, m := range models {
		if m == name {
			return nil
		}
	}
	return fmt.Errorf("unsupported model %q (choose one of %s)", name, strings.Join(models, ", "))
}

// IsEnglishOnly reports whether the model was trained on English audio only.
func IsEnglishOnly(name string) bool {
	return strings.HasSuffix(strings.TrimSpace(name), ".en")
}

// ParseTask maps user input to a Task. Empty input selects TaskTranscribe.
func ParseTask(value string) (Task, error) {
	switch Task(strings.ToLower(strings.TrimSpace(value))) {
	case "", TaskTranscribe:
		return TaskTranscribe, nil
	case TaskTranslate:
		return TaskTranslate, nil
	default:
		return "", fmt.Errorf("unsupported task %q (choose transcribe or translate)", value)
	}
}

// GGMLFileName returns the whisper.cpp weights file name for a model identifier.
func GGMLFileName(name string) string {
	return "ggml-" + strings.TrimSpace(name) + ".bin"
}
