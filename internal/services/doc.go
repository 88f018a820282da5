// Package services defines shared utilities consumed by the pipeline stages
// and the external tool adapters.
//
// Key responsibilities:
//   - Context helpers that stamp job positions, stage names, and run
//     identifiers for logging.
//   - Typed stage errors (transcode, transcription, serialization, resource
//     allocation) plus sentinel markers and the Wrap helper, so every failure
//     can be attributed to the stage that produced it.
//
// Use these helpers when wiring new stage logic so error reporting stays
// uniform across the pipeline.
package services
