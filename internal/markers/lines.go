package markers

import (
	"strings"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// SplitLines splits text[start:end] into RawLines. Offsets are absolute
// positions in text; line numbers count from the start of text.
func SplitLines(text string, start, end, tabWidth int) []doctree.RawLine {
	if tabWidth <= 0 {
		tabWidth = 4
	}
	number := strings.Count(text[:start], "\n") + 1

	var lines []doctree.RawLine
	pos := start
	for pos < end {
		next := strings.IndexByte(text[pos:end], '\n')
		stop := end
		if next >= 0 {
			stop = pos + next
		}
		s := text[pos:stop]
		lines = append(lines, doctree.RawLine{
			Text:   s,
			Number: number,
			Indent: Indent(s, tabWidth),
			Offset: pos,
		})
		number++
		if next < 0 {
			break
		}
		pos = stop + 1
	}
	return lines
}

// Indent measures the leading whitespace of s, expanding tabs to the next
// multiple of tabWidth.
func Indent(s string, tabWidth int) int {
	w := 0
	for _, r := range s {
		switch r {
		case ' ':
			w++
		case '\t':
			w += tabWidth - w%tabWidth
		default:
			return w
		}
	}
	return w
}
