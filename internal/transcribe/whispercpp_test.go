package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"subburn/internal/services"
	"subburn/internal/whisper"
)

const whisperCPPOutput = `{
  "transcription": [
    {"timestamps": {"from": "00:00:03,000", "to": "00:00:04,500"}, "offsets": {"from": 3000, "to": 4500}, "text": " end"},
    {"timestamps": {"from": "00:00:00,000", "to": "00:00:01,200"}, "offsets": {"from": 0, "to": 1200}, "text": " hello"},
    {"timestamps": {"from": "00:00:01,200", "to": "00:00:03,000"}, "offsets": {"from": 1200, "to": 3000}, "text": " world"},
    {"timestamps": {"from": "00:00:04,500", "to": "00:00:05,000"}, "offsets": {"from": 4500, "to": 5000}, "text": " "}
  ]
}`

func setupWhisperCPP(t *testing.T, output string) (*WhisperCPP, string, *[]string) {
	t.Helper()
	dir := t.TempDir()
	modelsDir := filepath.Join(dir, "models")
	if err := os.MkdirAll(modelsDir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, model := range []string{"small", "base.en"} {
		if err := os.WriteFile(filepath.Join(modelsDir, whisper.GGMLFileName(model)), []byte("w"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	audio := filepath.Join(dir, "audio-1.wav")
	if err := os.WriteFile(audio, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	var captured []string
	engine := NewWhisperCPP(WhisperCPPConfig{ModelsDir: modelsDir, Threads: 4}, nil).
		WithCommandRunner(func(_ context.Context, name string, args ...string) error {
			captured = append([]string{name}, args...)
			base := args[slices.Index(args, "-of")+1]
			return os.WriteFile(base+".json", []byte(output), 0o644)
		})
	return engine, audio, &captured
}

func TestWhisperCPPTranscribeParsesAndSorts(t *testing.T) {
	engine, audio, captured := setupWhisperCPP(t, whisperCPPOutput)

	segments, err := engine.Transcribe(context.Background(), audio, Request{Model: "small", Language: "auto"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments, got %d", len(segments))
	}
	if segments[0].Text != "hello" || segments[0].Start.Raw != "00:00:00,000" || segments[0].End.Seconds != 1.2 {
		t.Fatalf("unexpected first segment: %+v", segments[0])
	}
	if segments[2].Text != "end" {
		t.Fatalf("expected segments sorted by start, got %+v", segments)
	}

	args := strings.Join(*captured, " ")
	if !strings.HasPrefix(args, "whisper-cli ") {
		t.Fatalf("expected default binary, got %q", args)
	}
	for _, want := range []string{"-m " + engine.ModelPath("small"), "-f " + audio, "-oj", "-t 4"} {
		if !strings.Contains(args, want) {
			t.Fatalf("expected %q in %q", want, args)
		}
	}
	if strings.Contains(args, " -l ") || strings.Contains(args, "-tr") {
		t.Fatalf("auto transcription must not pass language or translate flags: %q", args)
	}
	if _, err := os.Stat(strings.TrimSuffix(audio, ".wav") + ".json"); !os.IsNotExist(err) {
		t.Fatalf("expected engine output removed, stat err=%v", err)
	}
}

func TestWhisperCPPLanguageAndTranslate(t *testing.T) {
	engine, audio, captured := setupWhisperCPP(t, `{"transcription":[]}`)

	segments, err := engine.Transcribe(context.Background(), audio, Request{Model: "small", Language: "fr", Task: whisper.TaskTranslate})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if len(segments) != 0 {
		t.Fatalf("expected empty result, got %d", len(segments))
	}
	args := strings.Join(*captured, " ")
	if !strings.Contains(args, "-l fr") || !strings.Contains(args, "-tr") {
		t.Fatalf("expected language and translate flags in %q", args)
	}
}

func TestWhisperCPPRejectsUnsupportedRequests(t *testing.T) {
	engine, audio, captured := setupWhisperCPP(t, whisperCPPOutput)
	tests := []Request{
		{Model: "gigantic"},
		{Model: "small", Language: "xx-invalid"},
		{Model: "base.en", Language: "de"},
		{Model: "base.en", Task: whisper.TaskTranslate},
		{Model: "small", Task: "summarize"},
	}
	for _, req := range tests {
		_, err := engine.Transcribe(context.Background(), audio, req)
		var tErr *services.TranscriptionError
		if !errors.As(err, &tErr) {
			t.Fatalf("request %+v: expected TranscriptionError, got %v", req, err)
		}
		if !errors.Is(err, services.ErrValidation) {
			t.Fatalf("request %+v: expected validation marker, got %v", req, err)
		}
	}
	if len(*captured) != 0 {
		t.Fatal("engine must not run for rejected requests")
	}
}

func TestWhisperCPPMissingModelWeights(t *testing.T) {
	engine, audio, _ := setupWhisperCPP(t, whisperCPPOutput)
	_, err := engine.Transcribe(context.Background(), audio, Request{Model: "large-v3"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestWhisperCPPUnreadableAudio(t *testing.T) {
	engine, audio, _ := setupWhisperCPP(t, whisperCPPOutput)
	_, err := engine.Transcribe(context.Background(), filepath.Join(filepath.Dir(audio), "missing.wav"), Request{})
	if services.StageOf(err) != services.StageTranscribe {
		t.Fatalf("expected transcribe stage error, got %v", err)
	}
}

func TestWhisperCPPEngineFailureAndBadOutput(t *testing.T) {
	engine, audio, _ := setupWhisperCPP(t, "not json")
	if _, err := engine.Transcribe(context.Background(), audio, Request{}); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected unparsable output to fail, got %v", err)
	}

	engine.WithCommandRunner(func(context.Context, string, ...string) error {
		return errors.New("exit status 3")
	})
	_, err := engine.Transcribe(context.Background(), audio, Request{})
	if !errors.Is(err, services.ErrExternalTool) || !strings.Contains(err.Error(), "exit status 3") {
		t.Fatalf("expected engine failure, got %v", err)
	}
}
