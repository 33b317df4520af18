// Package text cleans free-form text supplied by clients before it is stored in a bulletin.
package text

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Sanitize - returns single-line form of s.
// Line terminators are dropped, other whitespace becomes a plain space,
// control runes and invalid UTF-8 sequences are dropped, then every reserved sequence is removed
// and surrounding spaces are trimmed.
func Sanitize(s string, reserved ...string) string {
	b := strings.Builder{}
	b.Grow(len(s))
	for len(s) > 0 {
		r, size := utf8.DecodeRuneInString(s)
		s = s[size:]
		switch {
		case r == utf8.RuneError && size <= 1:
			// invalid sequence
		case r == '\n' || r == '\r':
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case unicode.IsControl(r):
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(strip(b.String(), reserved))
}

// strip - removes reserved sequences until none is left,
// as removing one may join its neighbours into another.
func strip(s string, reserved []string) string {
	for dirty := true; dirty; {
		dirty = false
		for _, seq := range reserved {
			if seq != "" && strings.Contains(s, seq) {
				s = strings.ReplaceAll(s, seq, "")
				dirty = true
			}
		}
	}
	return s
}

// IsWord - reports whether s is non-empty and contains neither whitespace, control runes
// nor any of reserved sequences.
func IsWord(s string, reserved ...string) bool {
	if s == "" || !utf8.ValidString(s) {
		return false
	}
	for _, seq := range reserved {
		if seq != "" && strings.Contains(s, seq) {
			return false
		}
	}
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r)
	}) < 0
}
