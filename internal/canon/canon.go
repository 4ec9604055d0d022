// Package canon normalizes transcript text to the canonical byte form
// used for hashing, diffing, and chain verification.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Canonicalize maps text to its stable byte form: carriage returns
// removed, NBSP mapped to ASCII space, bidi/invisible format characters
// stripped, trailing spaces and tabs trimmed per line, Unicode NFC.
// The result is a fixed point: Canonicalize(Canonicalize(s)) == Canonicalize(s).
func Canonicalize(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\r':
			continue
		case r == '\u00a0':
			b.WriteByte(' ')
		case isInvisibleFormat(r):
			continue
		default:
			b.WriteRune(r)
		}
	}
	out := trimLineTrailing(b.String())
	return norm.NFC.String(out)
}

// isInvisibleFormat reports whether r is one of the bidi/invisible
// format characters stripped from canonical text: U+200E, U+200F,
// U+202A..U+202E, U+2066..U+2069.
func isInvisibleFormat(r rune) bool {
	switch {
	case r == '\u200e' || r == '\u200f':
		return true
	case r >= '\u202a' && r <= '\u202e':
		return true
	case r >= '\u2066' && r <= '\u2069':
		return true
	}
	return false
}

func trimLineTrailing(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}

// SHA256Hex returns the lowercase hex SHA-256 of the UTF-8 bytes of s.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
