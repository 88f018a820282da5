package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"subburn/internal/language"
	"subburn/internal/services"
	"subburn/internal/whisper"
)

// Request selects the model and recognition mode for one transcription.
type Request struct {
	Model    string
	Language string
	Task     whisper.Task
}

// Transcriber converts an audio file into ordered, timed segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, req Request) ([]Segment, error)
}

// Runner executes an external command. Implementations must honour ctx
// cancellation by killing the process.
type Runner func(ctx context.Context, name string, args ...string) error

// resolved is a validated Request.
type resolved struct {
	model    string
	language string
	task     whisper.Task
}

// validateRequest rejects unknown models and combinations the model cannot
// serve. The returned language is normalized; Auto means detect.
func validateRequest(req Request) (resolved, error) {
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = whisper.DefaultModel
	}
	if err := whisper.ValidateModel(model); err != nil {
		return resolved{}, services.Wrap(services.ErrValidation, "", "model", "", err)
	}
	lang, err := language.Normalize(req.Language)
	if err != nil {
		return resolved{}, services.Wrap(services.ErrValidation, "", "language", "", err)
	}
	task, err := whisper.ParseTask(string(req.Task))
	if err != nil {
		return resolved{}, services.Wrap(services.ErrValidation, "", "task", "", err)
	}
	if whisper.IsEnglishOnly(model) {
		if task == whisper.TaskTranslate {
			return resolved{}, services.Wrap(services.ErrValidation, "", "task", fmt.Sprintf("model %s cannot translate", model), nil)
		}
		if lang != language.Auto && !language.IsEnglish(lang) {
			return resolved{}, services.Wrap(services.ErrValidation, "", "language", fmt.Sprintf("model %s only recognizes English, got %s", model, lang), nil)
		}
	}
	return resolved{model: model, language: lang, task: task}, nil
}

func requireAudio(path string) error {
	if strings.TrimSpace(path) == "" {
		return services.Wrap(services.ErrValidation, "", "audio", "path required", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "", "audio", path, err)
		}
		return fmt.Errorf("stat audio: %w", err)
	}
	if info.IsDir() || info.Size() == 0 {
		return services.Wrap(services.ErrValidation, "", "audio", path+" is not a readable audio file", nil)
	}
	return nil
}

func fail(path string, err error) error {
	return &services.TranscriptionError{Path: path, Err: err}
}

func engineFailure(ctx context.Context, engine string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return services.Wrap(services.ErrExternalTool, "", engine, "", err)
}

func execRunner(env []string) Runner {
	return func(ctx context.Context, name string, args ...string) error {
		cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
		if len(env) > 0 {
			cmd.Env = append(os.Environ(), env...)
		}
		if output, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("%s: %w: %s", name, err, tail(strings.TrimSpace(string(output)), 2048))
		}
		return nil
	}
}

func tail(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return "..." + value[len(value)-limit:]
}
