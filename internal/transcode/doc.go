// Package transcode wraps ffmpeg for the two media conversions subburn
// performs: extracting speech audio and burning subtitles onto video.
//
// Outputs are written to a ".partial" sibling of the destination, optionally
// verified with ffprobe, and renamed into place only on success, so a
// destination path either holds a complete file or does not exist.
// Commands run through exec.CommandContext; cancelling the context kills the
// ffmpeg process and removes its partial output.
package transcode
