package extract

import (
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Text is normalized recognition output ready for matching.
type Text struct {
	// Full is the whole text, one non-empty line per "\n".
	Full string

	// Lines are the non-empty lines of Full in order.
	Lines []string
}

// NewText normalizes raw and splits it into lines.
func NewText(raw string) *Text {
	full := Normalize(raw)
	t := &Text{Full: full}
	if full != "" {
		t.Lines = strings.Split(full, "\n")
	}
	return t
}

// Normalize prepares recognized text for pattern matching: NFC
// composition, full-width forms folded to ASCII, Thai digits mapped to
// ASCII digits, zero-width characters removed, CRLF line endings
// converted, and whitespace runs within a line collapsed to one space.
// Empty lines are dropped.
func Normalize(raw string) string {
	s := norm.NFC.String(raw)
	s = width.Fold.String(s)
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= '๐' && r <= '๙':
			return '0' + (r - '๐')
		case r == '\u200b' || r == '\u200c' || r == '\u200d' || r == '\ufeff':
			return -1
		case r == '\r':
			return '\n'
		}
		return r
	}, s)

	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
