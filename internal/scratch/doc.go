// Package scratch manages the temporary files a batch run creates.
//
// Open creates one locked run directory under the configured scratch root.
// Each job gets a Scope that allocates unique scratch paths (audio, scratch
// subtitles, rendered video) and reserves durable names in the output
// directory (retained subtitles, final video). Closing a scope removes its
// scratch files whatever the job outcome; closing the manager removes the run
// directory. CleanStale reclaims run directories left by crashed runs,
// skipping those whose lock is still held.
package scratch
