// Package srt renders transcription segments as SubRip subtitle text.
package srt

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"subburn/internal/transcribe"
)

// Format renders segments as SubRip cues numbered from 1. Each cue is the
// index line, a "start --> end" line, the text, and a blank separator line.
// An empty segment list yields an empty string.
func Format(segments []transcribe.Segment) string {
	if len(segments) == 0 {
		return ""
	}
	var b strings.Builder
	for i, seg := range segments {
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteByte('\n')
		b.WriteString(seg.Start.String())
		b.WriteString(" --> ")
		b.WriteString(seg.End.String())
		b.WriteByte('\n')
		b.WriteString(seg.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// CountCues returns the number of non-empty blocks in SubRip content.
func CountCues(content string) int {
	content = strings.TrimSpace(strings.ReplaceAll(content, "\r\n", "\n"))
	if content == "" {
		return 0
	}
	count := 0
	for _, block := range strings.Split(content, "\n\n") {
		if strings.TrimSpace(block) != "" {
			count++
		}
	}
	return count
}

// CountCuesFile reads path and counts its cues.
func CountCuesFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read srt: %w", err)
	}
	return CountCues(string(data)), nil
}
