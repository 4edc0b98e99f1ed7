// Package transcript normalizes engine output before it reaches callers.
package transcript

import (
	"strings"
	"unicode"

	"github.com/harkaudio/hark/internal/config"
)

// Clean collapses whitespace and applies the configured casing and
// punctuation fixes. Preview results from partial audio skip the trailing
// period since the sentence is still in flight.
func Clean(text string, cfg config.TranscriptConfig, preview bool) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return ""
	}

	if cfg.EnsureUppercase {
		runes := []rune(text)
		runes[0] = unicode.ToUpper(runes[0])
		text = string(runes)
	}

	if cfg.EnsurePeriod && !preview {
		last, _ := lastRune(text)
		if unicode.IsLetter(last) || unicode.IsDigit(last) {
			text += "."
		}
	}
	return text
}

func lastRune(s string) (rune, bool) {
	var r rune
	found := false
	for _, c := range s {
		r = c
		found = true
	}
	return r, found
}
