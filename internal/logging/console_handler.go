package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// infoFieldLimit caps the detail lines printed under INFO and WARN records.
// Debug and error records print every field.
const infoFieldLimit = 8

// prettyHandler renders records as a one-line header followed by indented
// "- key: value" lines. Job, source, stage, and component move into the
// header so progress lines read as "Video 2 b.mp4 (transcribe) – message".
type prettyHandler struct {
	mu        *sync.Mutex
	writer    io.Writer
	level     *slog.LevelVar
	attrs     []slog.Attr
	groups    []string
	addSource bool
}

func newPrettyHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &prettyHandler{mu: &sync.Mutex{}, writer: w, level: lvl, addSource: addSource}
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

type field struct {
	key   string
	value slog.Value
}

type header struct {
	component string
	job       string
	source    string
	stage     string
}

func (h *prettyHandler) Handle(_ context.Context, record slog.Record) error {
	if record.Level < h.level.Level() {
		return nil
	}

	fields := make([]field, 0, record.NumAttrs()+len(h.attrs))
	for _, attr := range h.attrs {
		fields = flatten(fields, h.groups, attr)
	}
	record.Attrs(func(attr slog.Attr) bool {
		fields = flatten(fields, h.groups, attr)
		return true
	})
	hdr, details := splitHeader(dedupe(fields), record.Level)

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}

	var buf bytes.Buffer
	buf.Grow(128 + len(details)*32)
	buf.WriteString(formatTimestamp(ts))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	if hdr.component != "" {
		buf.WriteString(" [" + hdr.component + "]")
	}
	if subject := composeSubject(hdr.job, hdr.source, hdr.stage); subject != "" {
		buf.WriteString(" " + subject)
	}
	buf.WriteString(" – ")
	buf.WriteString(message)
	if h.addSource {
		if src := record.Source(); src != nil && src.File != "" {
			buf.WriteString(" [" + filepath.Base(src.File) + ":" + strconv.Itoa(src.Line) + "]")
		}
	}
	buf.WriteByte('\n')

	shown := len(details)
	if record.Level >= slog.LevelInfo && record.Level < slog.LevelError && shown > infoFieldLimit {
		shown = infoFieldLimit
	}
	for _, f := range details[:shown] {
		buf.WriteString("    - ")
		buf.WriteString(f.key)
		buf.WriteString(": ")
		buf.WriteString(fieldValue(f.value))
		buf.WriteByte('\n')
	}
	if hidden := len(details) - shown; hidden == 1 {
		buf.WriteString("    + 1 more field hidden\n")
	} else if hidden > 1 {
		buf.WriteString("    + " + strconv.Itoa(hidden) + " more fields hidden\n")
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

// splitHeader pulls header keys out of fields. Error details are moved to the
// front so the field limit never hides them. The source path stays in the
// details at debug level.
func splitHeader(fields []field, level slog.Level) (header, []field) {
	var hdr header
	priority := make([]field, 0, 3)
	rest := make([]field, 0, len(fields))
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			hdr.component = plainValue(f.value)
		case FieldJob:
			hdr.job = plainValue(f.value)
		case FieldStage:
			hdr.stage = plainValue(f.value)
		case FieldSource:
			hdr.source = plainValue(f.value)
			if level < slog.LevelInfo {
				rest = append(rest, f)
			}
		case "error", FieldErrorHint, FieldImpact:
			priority = append(priority, f)
		default:
			rest = append(rest, f)
		}
	}
	return hdr, append(priority, rest...)
}

// composeSubject renders "Video 2 b.mp4 (transcribe)" style subjects.
func composeSubject(job, source, stage string) string {
	parts := make([]string, 0, 3)
	if job = strings.TrimSpace(job); job != "" {
		parts = append(parts, "Video "+job)
	}
	if source = strings.TrimSpace(source); source != "" {
		parts = append(parts, filepath.Base(source))
	}
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, "("+stage+")")
	}
	return strings.Join(parts, " ")
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &clone
}

func (h *prettyHandler) WithGroup(name string) slog.Handler {
	clone := *h
	clone.groups = append(append([]string(nil), h.groups...), name)
	return &clone
}

// dedupe keeps the first position of each key with its last value, so a
// context-derived stage can be overridden by an explicit one.
func dedupe(fields []field) []field {
	if len(fields) < 2 {
		return fields
	}
	index := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if f.key == "" {
			continue
		}
		if i, ok := index[f.key]; ok {
			out[i].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

// flatten expands groups into dotted keys.
func flatten(dst []field, prefix []string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	attr.Value = attr.Value.Resolve()
	if attr.Value.Kind() == slog.KindGroup {
		next := prefix
		if attr.Key != "" {
			next = append(append([]string(nil), prefix...), attr.Key)
		}
		for _, member := range attr.Value.Group() {
			dst = flatten(dst, next, member)
		}
		return dst
	}
	key := attr.Key
	if len(prefix) > 0 {
		key = strings.Join(append(append([]string(nil), prefix...), key), ".")
		key = strings.TrimSuffix(key, ".")
	}
	return append(dst, field{key: key, value: attr.Value})
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
