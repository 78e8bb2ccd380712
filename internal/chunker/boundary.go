package chunker

import "math"

// Span is a candidate chunk: a byte range of the document and the section it
// is attributed to.
type Span struct {
	Start   int
	End     int
	Section int
	Theme   string // Semantic theme proposed by an LLM, if any
}

// Assemble groups each section's blocks into chunk spans. Chunks never cross
// a section boundary and never split a block.
func (e *Engine) Assemble(p *Plan) []Span {
	var spans []Span
	i := 0
	for i < len(p.Blocks) {
		j := i
		for j < len(p.Blocks) && p.Blocks[j].Section == p.Blocks[i].Section {
			j++
		}
		spans = append(spans, e.assembleSection(p.Text, p.Blocks[i:j])...)
		i = j
	}
	return spans
}

func (e *Engine) assembleSection(text string, blocks []Block) []Span {
	if len(blocks) == 0 {
		return nil
	}
	sectionEnd := blocks[len(blocks)-1].End

	var spans []Span
	i := 0
	for i < len(blocks) {
		acc := accumulator{start: blocks[i].Start, end: blocks[i].End, last: blocks[i].Kind}
		target := e.balancedTarget(runes(text[acc.start:sectionEnd]))
		i++
		for i < len(blocks) && e.shouldKeepTogether(text, acc, blocks[i], sectionEnd, target) {
			acc.end = blocks[i].End
			acc.last = blocks[i].Kind
			i++
		}
		spans = append(spans, Span{Start: acc.start, End: acc.end, Section: blocks[0].Section})
	}
	return spans
}

type accumulator struct {
	start, end int
	last       BlockKind
}

// shouldKeepTogether decides whether next joins the open chunk. Rules apply in
// priority order: structural integrity, boundary preference, size policy.
// Blocks are atomic, so every position between two blocks is a safe break.
func (e *Engine) shouldKeepTogether(text string, acc accumulator, next Block, sectionEnd int, target float64) bool {
	// A heading never ends a chunk.
	if acc.last == BlockHeading {
		return true
	}

	// When the rest of the section fits, keep it whole and let the section
	// boundary close the chunk instead of breaking mid-list.
	if runes(text[acc.start:sectionEnd]) <= e.cfg.HardCeiling {
		return true
	}

	size := runes(text[acc.start:acc.end])
	combined := runes(text[acc.start:next.End])
	if combined > e.cfg.HardCeiling {
		return false
	}
	if size < e.cfg.MinChunkSize {
		return true
	}
	if combined > e.cfg.MaxChunkSize {
		return false
	}
	return math.Abs(float64(combined)-target) < math.Abs(float64(size)-target)
}

// balancedTarget spreads remaining characters over the fewest chunks that keep
// each near the max size and under the ceiling.
func (e *Engine) balancedTarget(remaining int) float64 {
	n := int(math.Round(float64(remaining) / float64(e.cfg.MaxChunkSize)))
	if byCeiling := int(math.Ceil(float64(remaining) / float64(e.cfg.HardCeiling))); byCeiling > n {
		n = byCeiling
	}
	if n < 1 {
		n = 1
	}
	return float64(remaining) / float64(n)
}
