// Package history records batch runs and per-video outcomes in SQLite.
//
// Store implements pipeline.Recorder so the orchestrator can persist results
// as a run finishes, and exposes read helpers for the `subburn history`
// command. The database is an audit trail, not a queue: nothing is resumed
// from it. Schema changes bump schemaVersion in schema.go; users delete the
// database to adopt the new schema.
package history
