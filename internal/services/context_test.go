package services_test

import (
	"context"
	"testing"

	"subburn/internal/services"
)

func TestContextCarriesJobStageAndRun(t *testing.T) {
	ctx := services.WithRunID(context.Background(), "run-123")
	ctx = services.WithJob(ctx, 2, "b.mp4")
	ctx = services.WithStage(ctx, "transcribe")

	if ref, ok := services.JobFromContext(ctx); !ok || ref.Index != 2 || ref.Source != "b.mp4" {
		t.Fatalf("unexpected job ref: %+v %v", ref, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "transcribe" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-123" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
}

func TestLaterStageOverridesEarlier(t *testing.T) {
	ctx := services.WithStage(context.Background(), "extract")
	ctx = services.WithStage(ctx, "burn")
	if stage, _ := services.StageFromContext(ctx); stage != "burn" {
		t.Fatalf("expected burn, got %q", stage)
	}
}

func TestBlankValuesLeaveContextUntouched(t *testing.T) {
	base := context.Background()
	if services.WithStage(base, "") != base || services.WithRunID(base, "") != base {
		t.Fatal("expected blank values to return the parent context")
	}
	if _, ok := services.StageFromContext(base); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.JobFromContext(base); ok {
		t.Fatal("expected no job value")
	}
}
