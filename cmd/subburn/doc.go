// Command subburn transcribes videos with Whisper and burns the resulting
// subtitles onto copies of them.
//
//	subburn [flags] video...
//
// Each video is processed independently: audio is extracted with ffmpeg,
// transcribed by whisper.cpp or WhisperX, written as SubRip, and rendered onto
// the video as <output_dir>/<name>.subtitled.mkv. A failing video never stops
// the rest of the batch; the command exits non-zero when any video failed.
//
// Subcommands cover the supporting tasks: `doctor` checks external tools and
// directories, `history` lists recorded runs, `config init` writes a sample
// configuration, and `languages` prints the accepted language codes.
package main
