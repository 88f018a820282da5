package transcribe

import (
	"sort"
	"strconv"
	"strings"
)

// Timestamp is a point in the audio. Raw keeps the engine's own textual
// representation when it supplied one.
type Timestamp struct {
	Seconds float64
	Raw     string
}

// String renders the raw engine representation when present, otherwise the
// seconds value with at least one decimal place.
func (t Timestamp) String() string {
	if raw := strings.TrimSpace(t.Raw); raw != "" {
		return raw
	}
	s := strconv.FormatFloat(t.Seconds, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// At builds a Timestamp from seconds without a raw representation.
func At(seconds float64) Timestamp {
	return Timestamp{Seconds: seconds}
}

// Segment is one timed piece of recognized speech.
type Segment struct {
	Start Timestamp
	End   Timestamp
	Text  string
}

// normalizeSegments trims text, drops empty segments, and stable-sorts by start.
func normalizeSegments(in []Segment) []Segment {
	out := make([]Segment, 0, len(in))
	for _, seg := range in {
		seg.Text = strings.TrimSpace(seg.Text)
		if seg.Text == "" {
			continue
		}
		out = append(out, seg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Seconds < out[j].Start.Seconds
	})
	return out
}
