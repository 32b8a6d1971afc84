// Package textnorm canonicalizes free text so reposts that differ only in
// handles, punctuation or numbers compare equal.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
)

// Placeholder replaces every run of digits. It is itself a digit, so a second
// pass folds it back into its own run.
const Placeholder = '0'

var mentionRe = regexp.MustCompile(`@[a-z0-9_]+`)

// Normalize lower-cases text, drops @mentions and every rune that is not a
// letter, number or space, collapses digit runs to Placeholder and whitespace
// runs to one space, then trims. Normalize(Normalize(s)) == Normalize(s).
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = mentionRe.ReplaceAllString(strings.ToLower(text), "")

	var b strings.Builder
	b.Grow(len(text))
	inDigits, inSpace := false, false
	for _, r := range text {
		switch {
		case unicode.IsDigit(r):
			if !inDigits {
				b.WriteRune(Placeholder)
			}
			inDigits, inSpace = true, false
		case unicode.IsSpace(r):
			if !inSpace {
				b.WriteByte(' ')
			}
			inDigits, inSpace = false, true
		case unicode.IsLetter(r) || unicode.IsNumber(r):
			b.WriteRune(r)
			inDigits, inSpace = false, false
		default:
			// Stripped runes do not end a run: "20-25" is one placeholder.
		}
	}
	return strings.TrimSpace(b.String())
}
