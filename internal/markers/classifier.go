// Package markers classifies the leading token of a line as a list marker.
package markers

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// Config controls which marker families are recognized.
type Config struct {
	// Enabled lists the marker families to recognize. Empty enables all.
	Enabled []doctree.MarkerType
	// Custom patterns are tried before anything else. Each must declare a
	// named group "value"; an optional group "rest" captures the remainder.
	Custom []*regexp.Regexp
	// RomanMax bounds the roman numeral lexicon ("i".."xx" for 20).
	RomanMax int
	// AllowBareMarkers accepts a marker with no text after it ("1." alone on
	// its line). When false a remainder is required.
	AllowBareMarkers bool
	// TabWidth is the indentation width of a tab character.
	TabWidth int
}

// DefaultConfig returns the classifier defaults.
func DefaultConfig() Config {
	return Config{
		RomanMax:         20,
		AllowBareMarkers: true,
		TabWidth:         4,
	}
}

// Classifier maps lines to list markers. It holds only read-only state and is
// safe for concurrent use.
type Classifier struct {
	cfg     Config
	enabled [8]bool
	roman   map[string]bool
}

var (
	// "1) a." and "1. a." style compound markers.
	compoundRe = regexp.MustCompile(`^\(?(\d{1,3}|[A-Za-z])(?:\)\s*|\.\s+)\(?([A-Za-z]+)([.):])(.*)$`)

	// "Clause 1.1:", "Section 2:".
	legalKeywordRe = regexp.MustCompile(`^(?i:clause|section|article)\s+(\d{1,3}(?:\.\d{1,3})*)\s*([:.])(.*)$`)
	// "(1.1) text".
	legalParenRe = regexp.MustCompile(`^\((\d{1,3}(?:\.\d{1,3})+)\)(.*)$`)
	// "1.1 text", "1.1. text", "1.1) text".
	legalDottedRe = regexp.MustCompile(`^(\d{1,3}(?:\.\d{1,3})+)([.):])?(.*)$`)

	// "a.", "(a)", "ii)", "12:".
	singleRe = regexp.MustCompile(`^(\()?([A-Za-z]+|\d{1,3})([.):])(.*)$`)

	bulletRe = regexp.MustCompile(`^([-*•◦▪‣●])\s+(\S.*)$`)
)

// New builds a Classifier. Custom patterns without a "value" group are rejected.
func New(cfg Config) (*Classifier, error) {
	if cfg.RomanMax <= 0 {
		cfg.RomanMax = 20
	}
	if cfg.TabWidth <= 0 {
		cfg.TabWidth = 4
	}
	for _, re := range cfg.Custom {
		if re.SubexpIndex("value") < 0 {
			return nil, fmt.Errorf("custom marker pattern %q has no (?P<value>...) group", re.String())
		}
	}

	c := &Classifier{cfg: cfg, roman: make(map[string]bool, cfg.RomanMax*2)}
	if len(cfg.Enabled) == 0 {
		for i := range c.enabled {
			c.enabled[i] = true
		}
	}
	for _, t := range cfg.Enabled {
		if int(t) >= 0 && int(t) < len(c.enabled) {
			c.enabled[t] = true
		}
	}
	for n := 1; n <= cfg.RomanMax; n++ {
		r := toRoman(n)
		c.roman[r] = true
		c.roman[strings.ToLower(r)] = true
	}
	return c, nil
}

// MustNew is New for static configurations known to be valid.
func MustNew(cfg Config) *Classifier {
	c, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// TabWidth reports the configured tab expansion width.
func (c *Classifier) TabWidth() int { return c.cfg.TabWidth }

// Classify returns the marker introducing line, if any. Families are tried
// from most to least specific: custom, compound, legal decimal, roman,
// single letter, numeric, bullet.
func (c *Classifier) Classify(line doctree.RawLine) (doctree.ListMarker, bool) {
	s := strings.TrimSpace(line.Text)
	if s == "" {
		return doctree.ListMarker{}, false
	}
	mk := func(t doctree.MarkerType, value, rest string) doctree.ListMarker {
		return doctree.ListMarker{
			Type:      t,
			Value:     value,
			Remainder: strings.TrimSpace(rest),
			Indent:    line.Indent,
			Line:      line.Number,
		}
	}

	if c.enabled[doctree.MarkerCustom] {
		for _, re := range c.cfg.Custom {
			m := re.FindStringSubmatch(s)
			if m == nil {
				continue
			}
			value := m[re.SubexpIndex("value")]
			rest := ""
			if i := re.SubexpIndex("rest"); i >= 0 {
				rest = m[i]
			}
			if value == "" || !c.remainderOK(rest, true) {
				continue
			}
			return mk(doctree.MarkerCustom, value, rest), true
		}
	}

	if m := compoundRe.FindStringSubmatch(s); m != nil && c.remainderOK(m[4], false) {
		if t, ok := c.letterType(m[2]); ok {
			out := mk(t, m[2], m[4])
			out.Primary = m[1]
			return out, true
		}
	}

	if c.enabled[doctree.MarkerLegalDecimal] {
		if m := legalKeywordRe.FindStringSubmatch(s); m != nil && c.remainderOK(m[3], true) {
			return mk(doctree.MarkerLegalDecimal, m[1], m[3]), true
		}
		if m := legalParenRe.FindStringSubmatch(s); m != nil && c.remainderOK(m[2], false) {
			return mk(doctree.MarkerLegalDecimal, m[1], m[2]), true
		}
		if m := legalDottedRe.FindStringSubmatch(s); m != nil {
			if m[2] != "" && c.remainderOK(m[3], false) {
				return mk(doctree.MarkerLegalDecimal, m[1], m[3]), true
			}
			// Without a trailing separator the dots themselves delimit the
			// token, but only a capitalized remainder reads as a clause
			// ("1.1 Definitions" rather than "1.5 million").
			if m[2] == "" && startsClause(m[3]) {
				return mk(doctree.MarkerLegalDecimal, m[1], m[3]), true
			}
		}
	}

	if m := singleRe.FindStringSubmatch(s); m != nil {
		paren, token, sep, rest := m[1] != "", m[2], m[3], m[4]
		if paren && sep != ")" {
			return doctree.ListMarker{}, false
		}
		if !c.remainderOK(rest, false) {
			return doctree.ListMarker{}, false
		}
		if isDigits(token) {
			if c.enabled[doctree.MarkerNumeric] {
				return mk(doctree.MarkerNumeric, token, rest), true
			}
			return doctree.ListMarker{}, false
		}
		if t, ok := c.letterType(token); ok {
			return mk(t, token, rest), true
		}
		return doctree.ListMarker{}, false
	}

	if c.enabled[doctree.MarkerBullet] {
		if m := bulletRe.FindStringSubmatch(s); m != nil {
			return mk(doctree.MarkerBullet, m[1], m[2]), true
		}
	}
	return doctree.ListMarker{}, false
}

// letterType classifies an alphabetic token. Roman numerals from the bounded
// lexicon win over single letters, so "i" is roman unless the roman family is
// disabled.
func (c *Classifier) letterType(token string) (doctree.MarkerType, bool) {
	if c.roman[token] {
		if isLower(token) && c.enabled[doctree.MarkerRomanLower] {
			return doctree.MarkerRomanLower, true
		}
		if isUpper(token) && c.enabled[doctree.MarkerRomanUpper] {
			return doctree.MarkerRomanUpper, true
		}
	}
	if len(token) != 1 {
		return 0, false
	}
	if isLower(token) && c.enabled[doctree.MarkerAlphaLower] {
		return doctree.MarkerAlphaLower, true
	}
	if isUpper(token) && c.enabled[doctree.MarkerAlphaUpper] {
		return doctree.MarkerAlphaUpper, true
	}
	return 0, false
}

// remainderOK reports whether the text after a separator is acceptable: either
// whitespace followed by content, or nothing at all when bare markers are
// allowed. Keyword forms ("Clause 3:") may run straight into their text.
func (c *Classifier) remainderOK(rest string, keyword bool) bool {
	if strings.TrimSpace(rest) == "" {
		return c.cfg.AllowBareMarkers
	}
	if keyword {
		return true
	}
	r := []rune(rest)
	return unicode.IsSpace(r[0])
}

func startsClause(rest string) bool {
	if rest == "" {
		return false
	}
	r := []rune(rest)
	if !unicode.IsSpace(r[0]) {
		return false
	}
	t := []rune(strings.TrimSpace(rest))
	return len(t) > 0 && (unicode.IsUpper(t[0]) || t[0] == '(' || t[0] == '"')
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func isLower(s string) bool { return s == strings.ToLower(s) }
func isUpper(s string) bool { return s == strings.ToUpper(s) }

func toRoman(n int) string {
	vals := []int{1000, 900, 500, 400, 100, 90, 50, 40, 10, 9, 5, 4, 1}
	syms := []string{"M", "CM", "D", "CD", "C", "XC", "L", "XL", "X", "IX", "V", "IV", "I"}
	var b strings.Builder
	for i, v := range vals {
		for n >= v {
			b.WriteString(syms[i])
			n -= v
		}
	}
	return b.String()
}
