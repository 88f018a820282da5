// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Prober runs ffprobe through a swappable Runner so callers can verify
// produced media in tests without the binary installed. Result helpers check
// the two shapes subburn produces: mono speech audio and a playable video.
package ffprobe
