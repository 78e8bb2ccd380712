package chunker

import (
	"slices"
	"sort"
	"strings"

	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/section"
)

// Optimize re-splits spans above the hard ceiling at the safe break nearest
// their midpoint. Both halves must still pass validation; a span with no such
// break is left whole and reported oversized when materialized.
func (e *Engine) Optimize(p *Plan, spans []Span) []Span {
	breaks := p.SafeBreaks()
	var out []Span
	for _, s := range spans {
		out = append(out, e.split(p, s, breaks)...)
	}
	return out
}

func (e *Engine) split(p *Plan, s Span, breaks []int) []Span {
	if runes(p.Text[s.Start:s.End]) <= e.cfg.HardCeiling {
		return []Span{s}
	}

	lo := sort.SearchInts(breaks, s.Start+1)
	hi := sort.SearchInts(breaks, s.End)
	mid := s.Start + (s.End-s.Start)/2

	best := -1
	for _, b := range breaks[lo:hi] {
		left := Span{Start: s.Start, End: b, Section: s.Section, Theme: s.Theme}
		right := Span{Start: b, End: s.End, Section: p.SectionAt(b), Theme: s.Theme}
		if !e.Passes(e.Measure(p.Text[left.Start:left.End])) || !e.Passes(e.Measure(p.Text[right.Start:right.End])) {
			continue
		}
		if best < 0 || abs(b-mid) < abs(best-mid) {
			best = b
		}
	}
	if best < 0 {
		return []Span{s}
	}

	left := Span{Start: s.Start, End: best, Section: s.Section, Theme: s.Theme}
	right := Span{Start: best, End: s.End, Section: p.SectionAt(best), Theme: s.Theme}
	return append(e.split(p, left, breaks), e.split(p, right, breaks)...)
}

// SafeBreaks lists the start offset of every block in document order.
func (p *Plan) SafeBreaks() []int {
	out := make([]int, 0, len(p.Blocks))
	for _, b := range p.Blocks {
		out = append(out, b.Start)
	}
	return out
}

// ItemBreaks lists every block start plus the start of each list item inside
// a list block, sorted and without duplicates. Cutting at one of these keeps
// each item's marker with its text.
func (p *Plan) ItemBreaks() []int {
	out := p.SafeBreaks()
	for _, b := range p.Blocks {
		for _, id := range b.Items {
			out = append(out, p.Forest.Items[id].Start)
		}
	}
	sort.Ints(out)
	return slices.Compact(out)
}

// SectionAt returns the index of the section containing offset.
func (p *Plan) SectionAt(offset int) int {
	i := sort.Search(len(p.Sections), func(i int) bool { return p.Sections[i].End > offset })
	if i >= len(p.Sections) {
		return len(p.Sections) - 1
	}
	return i
}

// Materialize turns spans into annotated chunks.
func (e *Engine) Materialize(p *Plan, spans []Span, method doctree.Method) []doctree.Chunk {
	chunks := make([]doctree.Chunk, 0, len(spans))
	for i, s := range spans {
		content := strings.TrimSpace(p.Text[s.Start:s.End])
		c := doctree.Chunk{
			Index:         i,
			Content:       content,
			SizeChars:     runes(content),
			QualityScore:  e.Measure(content).Score,
			Method:        method,
			SemanticTheme: s.Theme,
			Start:         s.Start,
			End:           s.End,
			PageStart:     doctree.PageOf(p.PageBreaks, s.Start),
			PageEnd:       doctree.PageOf(p.PageBreaks, max(s.Start, s.End-1)),
		}
		c.Oversized = c.SizeChars > e.cfg.HardCeiling
		if s.Section >= 0 && s.Section < len(p.Sections) {
			sec := p.Sections[s.Section]
			c.SectionNumber = sec.Number
			c.SectionTitle = sec.Title
		}
		c.ListItems = p.listItemsIn(s.Start, s.End)
		c.CrossReferences, c.UnresolvedReferences = p.references(content, c.SectionNumber)
		chunks = append(chunks, c)
	}
	return chunks
}

// listItemsIn returns read-only views of the items starting inside [start, end).
func (p *Plan) listItemsIn(start, end int) []doctree.ListItemRef {
	var out []doctree.ListItemRef
	for _, it := range p.Forest.Items {
		if it.Start < start || it.Start >= end {
			continue
		}
		ref := doctree.ListItemRef{
			Marker: it.Marker.Value,
			Type:   it.Marker.Type,
			Level:  it.Level,
			Text:   it.Marker.Remainder,
		}
		if it.Parent != doctree.NoParent {
			ref.Parent = p.Forest.Items[it.Parent].Marker.Value
		}
		out = append(out, ref)
	}
	return out
}

// references detects cross-references in content, dropping references to the
// chunk's own section, and splits off those naming no detected section.
func (p *Plan) references(content, own string) (refs, unresolved []string) {
	for _, r := range section.DetectReferences(content) {
		if own != "" && r == own {
			continue
		}
		refs = append(refs, r)
	}
	_, unresolved = section.Resolve(refs, p.Sections)
	return refs, unresolved
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
