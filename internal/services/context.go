package services

import "context"

type contextKey uint8

const (
	jobKey contextKey = iota
	stageKey
	runIDKey
)

// JobRef identifies a job within a batch run.
type JobRef struct {
	// Index is the 1-based position in the input list.
	Index  int
	Source string
}

// WithJob annotates ctx with the batch position and source name of a job.
func WithJob(ctx context.Context, index int, source string) context.Context {
	return context.WithValue(ctx, jobKey, JobRef{Index: index, Source: source})
}

// JobFromContext extracts the job reference if present.
func JobFromContext(ctx context.Context) (JobRef, bool) {
	ref, ok := ctx.Value(jobKey).(JobRef)
	return ref, ok
}

// WithStage annotates ctx with the pipeline stage a job is in. An empty
// stage leaves ctx unchanged.
func WithStage(ctx context.Context, stage string) context.Context {
	return withString(ctx, stageKey, stage)
}

// StageFromContext returns the stage name if present.
func StageFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, stageKey)
}

// WithRunID annotates ctx with the batch run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	return withString(ctx, runIDKey, id)
}

// RunIDFromContext extracts the batch run identifier if present.
func RunIDFromContext(ctx context.Context) (string, bool) {
	return stringFrom(ctx, runIDKey)
}

func withString(ctx context.Context, key contextKey, value string) context.Context {
	if value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringFrom(ctx context.Context, key contextKey) (string, bool) {
	value, ok := ctx.Value(key).(string)
	return value, ok && value != ""
}
