package deps

import (
	"os"
	"path/filepath"
	"testing"

	"subburn/internal/config"
	"subburn/internal/testsupport"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available {
		t.Fatalf("expected missing binary to be unavailable")
	}
	if results[1].Detail == "" {
		t.Fatalf("expected detail message for missing binary")
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
}

func TestCheckBinariesFileRequirement(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "ggml-small.bin")
	if err := os.WriteFile(model, []byte("weights"), 0o644); err != nil {
		t.Fatalf("write model: %v", err)
	}
	results := CheckBinaries([]Requirement{
		{Name: "present", File: model},
		{Name: "absent", File: filepath.Join(dir, "ggml-tiny.bin")},
	})
	if !results[0].Available || results[1].Available {
		t.Fatalf("unexpected file availability: %#v", results)
	}
	if got := MissingRequired(results); len(got) != 1 || got[0] != "absent" {
		t.Fatalf("expected absent to be reported missing, got %v", got)
	}
}

func TestRequirementsFollowEngine(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ModelsDir = "/models"
	reqs := Requirements(&cfg)
	var sawModel bool
	for _, r := range reqs {
		if r.File == filepath.Join("/models", "ggml-small.bin") {
			sawModel = true
		}
	}
	if !sawModel {
		t.Fatalf("expected whisper.cpp model requirement, got %#v", reqs)
	}

	cfg.Transcription.Engine = config.EngineWhisperX
	reqs = Requirements(&cfg)
	last := reqs[len(reqs)-1]
	if last.Command != "uvx" {
		t.Fatalf("expected uvx requirement for whisperx, got %#v", last)
	}
}

func TestMissingRequiredSkipsOptional(t *testing.T) {
	statuses := []Status{
		{Name: "a", Available: false, Optional: true},
		{Name: "b", Available: true},
	}
	if got := MissingRequired(statuses); len(got) != 0 {
		t.Fatalf("expected no missing deps, got %v", got)
	}
}

func TestStubbedToolchainSatisfiesRequirements(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithModel("small"), testsupport.WithStubbedBinaries())

	results := CheckBinaries(Requirements(cfg))
	if missing := MissingRequired(results); len(missing) != 0 {
		t.Fatalf("expected stubbed toolchain to satisfy requirements, missing %v", missing)
	}
	for _, st := range results {
		if !st.Available {
			t.Fatalf("expected %s to be available, got %#v", st.Name, st)
		}
	}
}
