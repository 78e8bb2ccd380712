// Package section partitions a document into headed sections and finds the
// section references made by its text.
package section

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// PreambleTitle names the implicit section covering text before the first
// heading.
const PreambleTitle = "Preamble"

var (
	// "3 PAYMENT TERMS", "3. PAYMENT TERMS"
	topHeadingRe = regexp.MustCompile(`^(\d{1,3})\.?\s+(\S.*)$`)
	// "3.2 Late Payment", "3.2.1. Interest on Arrears"
	subHeadingRe = regexp.MustCompile(`^(\d{1,3}(?:\.\d{1,3})+)\.?\s+(\S.*)$`)
	// "Clause 4:", "Section 4.1: Termination"
	clauseHeadingRe = regexp.MustCompile(`^(?i:clause|section)\s+(\d{1,3}(?:\.\d{1,3})*)\s*[:.]\s*(.*)$`)
)

// connectors may stay lowercase inside a Title Case heading.
var connectors = map[string]bool{
	"a": true, "an": true, "and": true, "as": true, "at": true, "by": true,
	"for": true, "from": true, "in": true, "of": true, "on": true, "or": true,
	"the": true, "to": true, "with": true, "under": true, "per": true,
}

// Detector finds heading lines. The zero value uses the defaults.
type Detector struct {
	// MaxHeadingLen rejects longer lines as headings. Default 120.
	MaxHeadingLen int
	// MaxTitleLen truncates clause titles that run into body text. Default 80.
	MaxTitleLen int
}

type heading struct {
	offset int
	number string
	title  string
	level  int
}

// Detect is Detector{}.Detect.
func Detect(text string, pageBreaks []int) []doctree.Section {
	return Detector{}.Detect(text, pageBreaks)
}

// Detect returns the ordered, gap-free section partition of text. Text before
// the first heading becomes a level-0 preamble unless it is blank, in which
// case the first section absorbs it.
func (d Detector) Detect(text string, pageBreaks []int) []doctree.Section {
	if d.MaxHeadingLen <= 0 {
		d.MaxHeadingLen = 120
	}
	if d.MaxTitleLen <= 0 {
		d.MaxTitleLen = 80
	}

	var heads []heading
	offset := 0
	for _, line := range strings.SplitAfter(text, "\n") {
		if h, ok := d.matchHeading(line); ok {
			h.offset = offset
			heads = append(heads, h)
		}
		offset += len(line)
	}

	var sections []doctree.Section
	if len(heads) == 0 {
		if text == "" {
			return nil
		}
		sections = append(sections, doctree.Section{Title: "", End: len(text)})
	} else {
		if strings.TrimSpace(text[:heads[0].offset]) != "" {
			sections = append(sections, doctree.Section{Title: PreambleTitle, End: heads[0].offset})
		} else {
			heads[0].offset = 0
		}
		for i, h := range heads {
			end := len(text)
			if i+1 < len(heads) {
				end = heads[i+1].offset
			}
			sections = append(sections, doctree.Section{
				Number: h.number,
				Title:  h.title,
				Level:  h.level,
				Start:  h.offset,
				End:    end,
			})
		}
	}

	var stack []int
	for i := range sections {
		s := &sections[i]
		s.Index = i
		s.Parent = doctree.NoParent
		s.PageStart = doctree.PageOf(pageBreaks, s.Start)
		last := s.End - 1
		if last < s.Start {
			last = s.Start
		}
		s.PageEnd = doctree.PageOf(pageBreaks, last)

		if s.Level == 0 {
			continue
		}
		for len(stack) > 0 && sections[stack[len(stack)-1]].Level >= s.Level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) > 0 {
			s.Parent = stack[len(stack)-1]
		}
		stack = append(stack, i)
	}
	return sections
}

func (d Detector) matchHeading(line string) (heading, bool) {
	s := strings.TrimSpace(line)
	if s == "" || len(s) > d.MaxHeadingLen {
		return heading{}, false
	}

	if m := clauseHeadingRe.FindStringSubmatch(s); m != nil {
		return heading{
			number: m[1],
			title:  d.clip(m[2]),
			level:  strings.Count(m[1], ".") + 1,
		}, true
	}
	if m := subHeadingRe.FindStringSubmatch(s); m != nil {
		if isTitleCase(m[2]) {
			return heading{number: m[1], title: m[2], level: strings.Count(m[1], ".") + 1}, true
		}
		return heading{}, false
	}
	if m := topHeadingRe.FindStringSubmatch(s); m != nil && isAllCaps(m[2]) {
		return heading{number: m[1], title: m[2], level: 1}, true
	}
	return heading{}, false
}

// clip shortens a clause title that runs on into body text.
func (d Detector) clip(title string) string {
	title = strings.TrimSpace(title)
	if len(title) <= d.MaxTitleLen {
		return title
	}
	cut := strings.LastIndexByte(title[:d.MaxTitleLen], ' ')
	if cut <= 0 {
		cut = d.MaxTitleLen
	}
	return strings.TrimSpace(title[:cut])
}

// isAllCaps requires at least three letters and no lowercase letters.
func isAllCaps(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 3
}

// isTitleCase accepts "Late Payment of Fees": every word capitalized except
// connectors, first word capitalized, no sentence-ending period.
func isTitleCase(s string) bool {
	if strings.HasSuffix(s, ".") || strings.HasSuffix(s, ";") || strings.HasSuffix(s, ",") {
		return false
	}
	words := strings.Fields(s)
	if len(words) == 0 || len(words) > 12 {
		return false
	}
	for i, w := range words {
		r := []rune(strings.TrimLeft(w, `("'`))
		if len(r) == 0 {
			continue
		}
		if unicode.IsUpper(r[0]) || unicode.IsDigit(r[0]) {
			continue
		}
		if i > 0 && connectors[strings.ToLower(string(r))] {
			continue
		}
		return false
	}
	return true
}
