// Package language validates and names the source-language codes accepted
// by the speech recognizer.
//
// The accepted set is the fixed Whisper language list plus the "auto"
// sentinel. Normalization leans on golang.org/x/text so region tags and
// three-letter codes map onto the same entries.
package language
