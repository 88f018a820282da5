package history_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"subburn/internal/history"
	"subburn/internal/pipeline"
	"subburn/internal/services"
	"subburn/internal/testsupport"
	"subburn/internal/whisper"
)

func TestOpenCreatesSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	runs, err := store.RecentRuns(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected empty history, got %d runs", len(runs))
	}
	if store.Path() != cfg.Paths.HistoryDB {
		t.Fatalf("unexpected path %q", store.Path())
	}
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()
	if err := store.StartRun(ctx, "run-1", []string{"a.mp4"}, pipeline.Options{Model: "small"}); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := history.Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	run, err := reopened.GetRun(ctx, "run-1")
	if err != nil || run == nil {
		t.Fatalf("expected persisted run, got %v (%v)", run, err)
	}
}

func TestOpenRejectsOtherSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	_ = db.Close()

	if _, err := history.Open(path); !errors.Is(err, history.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := history.Open("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestRecordsRunLifecycle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	opts := pipeline.Options{
		Model:     "small",
		Language:  "auto",
		Task:      whisper.TaskTranslate,
		OutputDir: "/out",
		OutputSRT: true,
	}
	sources := []string{"/videos/a.mp4", "/videos/b.mp4"}
	if err := store.StartRun(ctx, "run-1", sources, opts); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}

	started := time.Now()
	report := pipeline.Report{
		RunID:   "run-1",
		Started: started,
		Outcomes: []pipeline.Outcome{
			{
				Index:        1,
				Source:       sources[0],
				Kind:         pipeline.KindSubtitledVideo,
				OutputPath:   "/out/a.subtitled.mkv",
				SubtitlePath: "/out/a.srt",
				Cues:         3,
				Duration:     1500 * time.Millisecond,
			},
			{
				Index:    2,
				Source:   sources[1],
				Kind:     pipeline.KindFailed,
				Stage:    services.StageTranscribe,
				Err:      &services.TranscriptionError{Path: "/tmp/b.wav", Err: errors.New("model crashed")},
				Duration: 200 * time.Millisecond,
			},
		},
		Finished: started.Add(2 * time.Second),
	}
	for _, outcome := range report.Outcomes {
		if err := store.RecordOutcome(ctx, report.RunID, outcome); err != nil {
			t.Fatalf("RecordOutcome failed: %v", err)
		}
	}
	if err := store.FinishRun(ctx, report); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	run, err := store.GetRun(ctx, "run-1")
	if err != nil || run == nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if !run.Finished() || run.Total != 2 || run.Failed != 1 || run.Succeeded() != 1 {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.Model != "small" || run.Task != "translate" || run.SRTOnly || run.OutputDir != "/out" {
		t.Fatalf("unexpected run options %+v", run)
	}

	records, err := store.RunOutcomes(ctx, "run-1")
	if err != nil {
		t.Fatalf("RunOutcomes failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first, second := records[0], records[1]
	if first.Position != 1 || first.Kind != "subtitled_video" || first.Cues != 3 || first.SubtitlePath != "/out/a.srt" {
		t.Fatalf("unexpected first record %+v", first)
	}
	if first.Duration != 1500*time.Millisecond || first.FailedStage != "" || first.ErrorMessage != "" {
		t.Fatalf("unexpected first record %+v", first)
	}
	if second.FailedStage != "transcribe" || second.ErrorMessage == "" || second.OutputPath != "" {
		t.Fatalf("unexpected second record %+v", second)
	}
}

func TestRecentRunsNewestFirst(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	for _, id := range []string{"first", "second", "third"} {
		if err := store.StartRun(ctx, id, nil, pipeline.Options{}); err != nil {
			t.Fatalf("StartRun(%s) failed: %v", id, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "third" || runs[1].ID != "second" {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if runs[0].Finished() || runs[0].Duration() != 0 {
		t.Fatal("unfinished run should report no duration")
	}
}

func TestFinishUnknownRunFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	err := store.FinishRun(context.Background(), pipeline.Report{RunID: "missing"})
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestGetRunMissing(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	run, err := store.GetRun(context.Background(), "nope")
	if err != nil || run != nil {
		t.Fatalf("expected nil run without error, got %v (%v)", run, err)
	}
}

func TestPruneBeforeRemovesOutcomes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	if err := store.StartRun(ctx, "old", []string{"a.mp4"}, pipeline.Options{}); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := store.RecordOutcome(ctx, "old", pipeline.Outcome{Index: 1, Source: "a.mp4", Kind: pipeline.KindSubtitleOnly}); err != nil {
		t.Fatalf("RecordOutcome failed: %v", err)
	}

	removed, err := store.PruneBefore(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("PruneBefore failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 run removed, got %d", removed)
	}
	records, err := store.RunOutcomes(ctx, "old")
	if err != nil {
		t.Fatalf("RunOutcomes failed: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected outcomes cascaded away, got %d", len(records))
	}
}
