package transcribe

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"subburn/internal/config"
	"subburn/internal/whisper"
)

func TestWhisperXTranscribe(t *testing.T) {
	dir := t.TempDir()
	audio := filepath.Join(dir, "clip.wav")
	if err := os.WriteFile(audio, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	var gotName string
	var gotArgs []string
	engine := NewWhisperX(WhisperXConfig{VADMethod: VADMethodPyannote, HFToken: "hf_x"}, nil).
		WithCommandRunner(func(_ context.Context, name string, args ...string) error {
			gotName, gotArgs = name, args
			outDir := args[slices.Index(args, "--output_dir")+1]
			payload := `{"segments":[{"start":1.2,"end":3,"text":" world"},{"start":0,"end":1.2,"text":"hello"}]}`
			return os.WriteFile(filepath.Join(outDir, "clip.json"), []byte(payload), 0o644)
		})

	segments, err := engine.Transcribe(context.Background(), audio, Request{Model: "medium", Language: "en", Task: whisper.TaskTranscribe})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotName != UVXCommand {
		t.Fatalf("expected uvx, got %q", gotName)
	}
	joined := strings.Join(gotArgs, " ")
	for _, want := range []string{"whisperx " + audio, "--model medium", "--task transcribe", "--output_format json", "--language en", "--vad_method pyannote", "--hf_token hf_x", "--device cpu"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in %q", want, joined)
		}
	}
	if len(segments) != 2 || segments[0].Text != "hello" || segments[1].Start.String() != "1.2" {
		t.Fatalf("unexpected segments: %+v", segments)
	}
	if segments[0].Start.Raw != "" {
		t.Fatal("whisperx segments carry no raw timestamps")
	}
}

func TestWhisperXCUDAArgs(t *testing.T) {
	engine := NewWhisperX(WhisperXConfig{CUDAEnabled: true}, nil)
	args := strings.Join(engine.buildArgs("/a.wav", "/out", resolved{model: "small", language: "auto", task: whisper.TaskTranslate}), " ")
	for _, want := range []string{"--index-url " + CUDAIndexURL, "--device cuda", "--task translate", "--vad_method silero"} {
		if !strings.Contains(args, want) {
			t.Fatalf("expected %q in %q", want, args)
		}
	}
	if strings.Contains(args, "--language") {
		t.Fatalf("auto language must be omitted: %q", args)
	}
}

func TestNewFromConfigSelectsEngine(t *testing.T) {
	cfg := config.Default()
	tr, err := NewFromConfig(&cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(*WhisperCPP); !ok {
		t.Fatalf("expected whisper.cpp engine, got %T", tr)
	}
	cfg.Transcription.Engine = config.EngineWhisperX
	tr, err = NewFromConfig(&cfg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(*WhisperX); !ok {
		t.Fatalf("expected whisperx engine, got %T", tr)
	}
	cfg.Transcription.Engine = "other"
	if _, err := NewFromConfig(&cfg, nil); err == nil {
		t.Fatal("expected unsupported engine error")
	}
}
