package ffprobe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

const (
	codecAudio = "audio"
	codecVideo = "video"
)

// Result is the subset of `ffprobe -show_format -show_streams` output used to
// verify transcoder products.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata.
type Format struct {
	FormatName string `json:"format_name"`
	Duration   string `json:"duration"`
}

// Runner executes ffprobe and returns its stdout. Tests substitute a fake.
type Runner func(ctx context.Context, binary string, args ...string) ([]byte, error)

// Prober inspects media files with a configured ffprobe binary.
type Prober struct {
	binary string
	run    Runner
}

// NewProber builds a Prober. An empty binary falls back to "ffprobe" on PATH.
func NewProber(binary string) *Prober {
	if binary = strings.TrimSpace(binary); binary == "" {
		binary = "ffprobe"
	}
	return &Prober{binary: binary, run: execRunner}
}

// WithRunner swaps the command runner.
func (p *Prober) WithRunner(run Runner) *Prober {
	if run != nil {
		p.run = run
	}
	return p
}

// Inspect runs ffprobe against path and decodes its JSON report.
func (p *Prober) Inspect(ctx context.Context, path string) (Result, error) {
	if strings.TrimSpace(path) == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}
	output, err := p.run(ctx, p.binary, "-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path)
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}
	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	return result, nil
}

func execRunner(ctx context.Context, binary string, args ...string) ([]byte, error) {
	output, err := exec.CommandContext(ctx, binary, args...).Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
	}
	return output, err
}

// StreamsOf returns the streams of the given codec type ("audio", "video").
func (r Result) StreamsOf(kind string) []Stream {
	var out []Stream
	for _, s := range r.Streams {
		if strings.EqualFold(s.CodecType, kind) {
			out = append(out, s)
		}
	}
	return out
}

// Duration returns the container duration. Missing or unparsable values
// report ok=false.
func (r Result) Duration() (time.Duration, bool) {
	secs, err := strconv.ParseFloat(strings.TrimSpace(r.Format.Duration), 64)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

// CheckSpeechAudio verifies the file holds mono audio at the given sample
// rate, which is what the recognizers expect.
func (r Result) CheckSpeechAudio(sampleRate int) error {
	audio := r.StreamsOf(codecAudio)
	if len(audio) == 0 {
		return errors.New("no audio stream")
	}
	first := audio[0]
	if first.Channels != 1 {
		return fmt.Errorf("expected 1 audio channel, got %d", first.Channels)
	}
	if got, _ := strconv.Atoi(strings.TrimSpace(first.SampleRate)); got != sampleRate {
		return fmt.Errorf("expected %d Hz sample rate, got %s", sampleRate, first.SampleRate)
	}
	return nil
}

// CheckPlayableVideo verifies the file holds a video stream with a picture size.
func (r Result) CheckPlayableVideo() error {
	for _, s := range r.StreamsOf(codecVideo) {
		if s.Width > 0 && s.Height > 0 {
			return nil
		}
	}
	return errors.New("no video stream with a picture size")
}
