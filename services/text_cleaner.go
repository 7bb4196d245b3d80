package services

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CleanText strips control characters and normalizes whitespace before
// chunking. Letters of every script, bidi marks and combining marks are kept.
func CleanText(raw string) string {
	text := norm.NFC.String(raw)

	var b strings.Builder
	b.Grow(len(text))

	pendingSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
		case r == unicode.ReplacementChar, unicode.IsControl(r):
			// extraction noise: Cc controls and decode failures
		default:
			if pendingSpace && b.Len() > 0 {
				b.WriteByte(' ')
			}
			pendingSpace = false
			b.WriteRune(r)
		}
	}

	return b.String()
}
