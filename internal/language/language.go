package language

import (
	"fmt"
	"sort"
	"strings"

	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto is the sentinel that asks the speech recognizer to detect the spoken language.
const Auto = "auto"

// supported lists the source-language codes accepted by the Whisper model family.
var supported = []string{
	"af", "am", "ar", "as", "az", "ba", "be", "bg", "bn", "bo", "br", "bs",
	"ca", "cs", "cy", "da", "de", "el", "en", "es", "et", "eu", "fa", "fi",
	"fo", "fr", "gl", "gu", "ha", "haw", "he", "hi", "hr", "ht", "hu", "hy",
	"id", "is", "it", "ja", "jw", "ka", "kk", "km", "kn", "ko", "la", "lb",
	"ln", "lo", "lt", "lv", "mg", "mi", "mk", "ml", "mn", "mr", "ms", "mt",
	"my", "ne", "nl", "nn", "no", "oc", "pa", "pl", "ps", "pt", "ro", "ru",
	"sa", "sd", "si", "sk", "sl", "sn", "so", "sq", "sr", "su", "sv", "sw",
	"ta", "te", "tg", "th", "tk", "tl", "tr", "tt", "uk", "ur", "uz", "vi",
	"yi", "yo", "zh",
}

var supportedSet map[string]struct{}

func init() {
	supportedSet = make(map[string]struct{}, len(supported))
	for _, code := range supported {
		supportedSet[code] = struct{}{}
	}
}

// Supported returns the accepted language codes in sorted order, without the auto sentinel.
func Supported() []string {
	out := append([]string(nil), supported...)
	sort.Strings(out)
	return out
}

// IsSupported reports whether code is an accepted language code or the auto sentinel.
func IsSupported(code string) bool {
	_, err := Normalize(code)
	return err == nil
}

// Normalize maps user input to an accepted language code. Empty input and
// "auto" yield Auto. Region-qualified tags ("en-US") and ISO 639-2 codes
// ("eng") are reduced to their base language before the lookup.
func Normalize(code string) (string, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || code == Auto {
		return Auto, nil
	}
	if _, ok := supportedSet[code]; ok {
		return code, nil
	}
	tag, err := xlanguage.Parse(code)
	if err == nil {
		base, _ := tag.Base()
		if _, ok := supportedSet[base.String()]; ok {
			return base.String(), nil
		}
	}
	return "", fmt.Errorf("unsupported language %q", code)
}

// IsEnglish reports whether a normalized code denotes English.
func IsEnglish(code string) bool {
	return strings.EqualFold(strings.TrimSpace(code), "en")
}

// DisplayName returns the English name for a language code. The auto
// sentinel renders as "Auto-detect"; unknown codes are uppercased.
func DisplayName(code string) string {
	code = strings.ToLower(strings.TrimSpace(code))
	switch code {
	case "":
		return "Unknown"
	case Auto:
		return "Auto-detect"
	}
	tag, err := xlanguage.Parse(code)
	if err == nil {
		if name := display.English.Languages().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(code)
}
