// Package transcribe turns extracted speech audio into timed text segments.
//
// Two engines implement Transcriber:
//   - WhisperCPP runs the whisper.cpp CLI against local ggml weights
//   - WhisperX runs WhisperX through uvx, optionally on CUDA
//
// Both validate the requested model, language, and task up front, return
// segments sorted by start time with empty text dropped, and report every
// failure as a *services.TranscriptionError. An empty segment list is a
// valid result for audio without speech.
package transcribe
