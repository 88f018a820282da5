package scratch

import (
	"errors"
	"os"
	"sync"

	"subburn/internal/textutil"
)

// File name suffixes for allocated paths.
const (
	AudioExt         = ".wav"
	SubtitleExt      = ".srt"
	VideoExt         = ".mkv"
	OutputSuffix     = ".subtitled" + VideoExt
	transcriptSuffix = "-transcript"
)

// Scope tracks the paths allocated for one job. Scratch paths are removed by
// Close. Durable paths in the output directory are never removed.
type Scope struct {
	manager *Manager
	base    string

	mu      sync.Mutex
	stems   map[string]string
	scratch []string
}

// Audio allocates the scratch path for extracted audio.
func (s *Scope) Audio() (string, error) {
	return s.allocScratch("", AudioExt)
}

// Subtitle allocates the subtitle path. Retained subtitles live in outputDir
// as <base>.srt; otherwise the file is scratch.
func (s *Scope) Subtitle(retain bool, outputDir string) (string, error) {
	if !retain {
		return s.allocScratch(transcriptSuffix, SubtitleExt)
	}
	return s.allocDurable(outputDir, SubtitleExt)
}

// Video allocates the scratch path the burn stage renders into.
func (s *Scope) Video() (string, error) {
	return s.allocScratch("", VideoExt)
}

// Output allocates the final video path <outputDir>/<base>.subtitled.mkv.
func (s *Scope) Output(outputDir string) (string, error) {
	return s.allocDurable(outputDir, OutputSuffix)
}

// Close removes every scratch path allocated through the scope. It is safe
// to call more than once.
func (s *Scope) Close() error {
	s.mu.Lock()
	paths := s.scratch
	s.scratch = nil
	s.mu.Unlock()

	var errs []error
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ScratchPaths returns the scratch paths currently tracked.
func (s *Scope) ScratchPaths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.scratch...)
}

func (s *Scope) allocScratch(tag, ext string) (string, error) {
	path, err := s.manager.scratchPath(s.base+tag, ext)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.scratch = append(s.scratch, path)
	s.mu.Unlock()
	return path, nil
}

func (s *Scope) allocDurable(outputDir, suffix string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stems == nil {
		s.stems = make(map[string]string)
	}
	stem, ok := s.stems[outputDir]
	if !ok {
		var err error
		stem, err = s.manager.reserveStem(outputDir, s.base)
		if err != nil {
			return "", err
		}
		s.stems[outputDir] = stem
	}
	return stem + suffix, nil
}

func baseName(sourcePath string) string {
	return textutil.BaseName(sourcePath)
}
