// Package privacy removes spans people mark as private from what they teach.
package privacy

import (
	"regexp"
	"strings"
)

// privateSpan matches <private>...</private> blocks (non-greedy, dotall).
var privateSpan = regexp.MustCompile(`(?s)<private>.*?</private>`)

// Redact removes every <private>...</private> block from text and trims the
// result. It reports whether anything was removed.
func Redact(text string) (string, bool) {
	if !strings.Contains(text, "<private>") {
		return strings.TrimSpace(text), false
	}
	out := privateSpan.ReplaceAllString(text, "")
	return strings.TrimSpace(out), out != text
}
