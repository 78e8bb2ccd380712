package parser

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var newlineReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")

// Normalize folds line endings to \n, applies NFKC so compatibility forms
// such as full-width digits and ligatures match the marker patterns, turns
// non-breaking spaces into plain spaces and drops zero-width characters.
func Normalize(s string) string {
	s = newlineReplacer.Replace(s)
	s = norm.NFKC.String(s)
	return strings.Map(func(r rune) rune {
		switch r {
		case '\u00a0', '\u2007', '\u202f':
			return ' '
		case '\u200b', '\u200c', '\u200d', '\ufeff':
			return -1
		}
		return r
	}, s)
}
