// Package pipeline runs batches of videos through audio extraction,
// transcription, subtitle serialization, and subtitle burn-in.
//
// Each source becomes a Job that advances pending -> audio_extracted ->
// transcribed -> subtitles_written -> completed, or stops at failed with the
// name of the stage that broke. Jobs are independent: a failure is recorded
// in the Report and the batch moves on. Workers share one scratch.Manager;
// every job's scratch files are removed when the job ends, whatever its
// outcome. The Report lists outcomes in input order regardless of the
// worker count.
package pipeline
