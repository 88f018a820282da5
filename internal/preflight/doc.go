// Package preflight provides readiness checks for the filesystem paths a
// batch run writes into.
//
// The CLI "subburn doctor" command prints every result; the batch command
// runs RunAll after creating directories and refuses to start when a check
// fails, so a permissions problem surfaces before hours of transcription.
package preflight
