package strategy

import (
	"fmt"
	"sort"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docchunk/internal/chunker"
	"github.com/dgallion1/docchunk/internal/llm"
)

// anchorKeyLen is how many leading non-space characters of a proposal are
// matched against the document.
const anchorKeyLen = 40

// folded is the document with whitespace removed and letters lowercased,
// keeping the byte offset of every remaining rune.
type folded struct {
	runes []rune
	offs  []int
}

func fold(text string) folded {
	var f folded
	for i, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		f.runes = append(f.runes, unicode.ToLower(r))
		f.offs = append(f.offs, i)
	}
	return f
}

func foldKey(content string) []rune {
	key := make([]rune, 0, anchorKeyLen)
	for _, r := range content {
		if unicode.IsSpace(r) {
			continue
		}
		key = append(key, unicode.ToLower(r))
		if len(key) == anchorKeyLen {
			break
		}
	}
	return key
}

// index returns the first rune position at or after from where key occurs.
func (f folded) index(key []rune, from int) int {
	if len(key) == 0 {
		return -1
	}
outer:
	for i := from; i+len(key) <= len(f.runes); i++ {
		for j, r := range key {
			if f.runes[i+j] != r {
				continue outer
			}
		}
		return i
	}
	return -1
}

// anchorProposals maps proposals onto the source text. Each proposal is
// located by its leading characters, searching forward from the previous
// match, and runs until the next match. The resulting spans tile the whole
// document, so no text is lost even when a model paraphrases or skips some.
// Every start then moves to the nearest item or block start, so a proposal
// that begins mid-item never separates a marker from its text.
func anchorProposals(p *chunker.Plan, props []llm.Proposal) ([]chunker.Span, error) {
	f := fold(p.Text)
	type anchor struct {
		start int
		prop  llm.Proposal
	}
	var anchors []anchor
	cursor := 0
	for _, prop := range props {
		pos := f.index(foldKey(prop.Content), cursor)
		if pos < 0 {
			continue
		}
		anchors = append(anchors, anchor{start: f.offs[pos], prop: prop})
		cursor = pos + 1
	}
	if len(anchors) == 0 {
		return nil, fmt.Errorf("%w: no proposal matches the document text", llm.ErrInvalidResponse)
	}

	anchors[0].start = 0
	breaks := p.ItemBreaks()
	for i := 1; i < len(anchors); i++ {
		anchors[i].start = nearest(breaks, anchors[i].start)
	}

	spans := make([]chunker.Span, 0, len(anchors))
	for i, a := range anchors {
		end := len(p.Text)
		if i+1 < len(anchors) {
			end = anchors[i+1].start
		}
		if end <= a.start {
			continue
		}
		spans = append(spans, chunker.Span{
			Start:   a.start,
			End:     end,
			Section: labeledSection(p, a.prop.SectionLabel, a.start, end),
			Theme:   a.prop.SemanticTheme,
		})
	}
	return spans, nil
}

// nearest returns the value in sorted breaks closest to pos, or pos when
// breaks is empty. Ties go to the earlier break.
func nearest(breaks []int, pos int) int {
	if len(breaks) == 0 {
		return pos
	}
	i := sort.SearchInts(breaks, pos)
	switch {
	case i == 0:
		return breaks[0]
	case i == len(breaks):
		return breaks[i-1]
	case pos-breaks[i-1] <= breaks[i]-pos:
		return breaks[i-1]
	default:
		return breaks[i]
	}
}

// labeledSection attributes a span to the section named by the model's label
// when that section overlaps the span, and otherwise to the section holding
// the span's first non-space character.
func labeledSection(p *chunker.Plan, label string, start, end int) int {
	if label != "" {
		for i, s := range p.Sections {
			if s.Number == label && s.Start < end && s.End > start {
				return i
			}
		}
	}
	for start < end {
		r, w := utf8.DecodeRuneInString(p.Text[start:])
		if !unicode.IsSpace(r) {
			break
		}
		start += w
	}
	return p.SectionAt(start)
}
