package textutil

import (
	"path/filepath"
	"strings"
	"unicode"
)

// fallbackBase names outputs whose source name sanitizes to nothing.
const fallbackBase = "video"

// SanitizeFileName makes name safe to use as a single path component on the
// common filesystems. Separators, colons, and asterisks become dashes; quotes,
// wildcards, redirection characters, and control characters are dropped.
func SanitizeFileName(name string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*':
			return '-'
		case '?', '"', '<', '>', '|':
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	return strings.TrimSpace(cleaned)
}

// BaseName derives the output base name for a source video: the file name
// without its last extension, sanitized, with leading dots removed so
// outputs are never hidden files.
func BaseName(path string) string {
	name := filepath.Base(strings.TrimSpace(path))
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.TrimLeft(SanitizeFileName(name), ".")
	if name == "" {
		return fallbackBase
	}
	return name
}
