package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// FixedWindow splits the text by character count alone, ignoring structure.
// A window ends at the last whitespace in its final fifth when there is one,
// and a trailing window that fails validation is merged into its predecessor.
// It never fails and returns at least one chunk for non-blank text.
func (e *Engine) FixedWindow(p *Plan) []doctree.Chunk {
	text := p.Text
	size := e.cfg.MaxChunkSize
	overlap := e.cfg.WindowOverlap

	var spans []Span
	pos := skipSpace(text, 0, len(text))
	for pos < len(text) {
		end := advance(text, pos, size)
		if end < len(text) {
			end = softCut(text, pos, end, size/5)
		}
		span := Span{Start: pos, End: trimEnd(text, pos, end)}
		span.Section = p.SectionAt(pos)
		if span.End > span.Start {
			spans = append(spans, span)
		}
		if end >= len(text) {
			break
		}
		next := end
		if overlap > 0 {
			if back := retreat(text, end, overlap); back > pos {
				next = back
			}
		}
		pos = skipSpace(text, next, len(text))
	}
	if len(spans) == 0 {
		return nil
	}
	// A short tail joins the window before it; it stands alone only when it
	// is the whole text.
	if n := len(spans); n > 1 && !e.Passes(e.Measure(text[spans[n-1].Start:spans[n-1].End])) {
		spans[n-2].End = spans[n-1].End
		spans = spans[:n-1]
	}
	return e.Materialize(p, spans, doctree.MethodTraditional)
}

// advance returns the byte offset n runes past pos.
func advance(text string, pos, n int) int {
	for n > 0 && pos < len(text) {
		_, w := utf8.DecodeRuneInString(text[pos:])
		pos += w
		n--
	}
	return pos
}

// retreat returns the byte offset n runes before pos.
func retreat(text string, pos, n int) int {
	for n > 0 && pos > 0 {
		_, w := utf8.DecodeLastRuneInString(text[:pos])
		pos -= w
		n--
	}
	return pos
}

// softCut moves end back to just after the last whitespace within the final
// slack runes of the window, or keeps the hard cut.
func softCut(text string, start, end, slack int) int {
	floor := retreat(text, end, slack)
	if floor < start {
		floor = start
	}
	i := strings.LastIndexFunc(text[floor:end], unicode.IsSpace)
	if i < 0 {
		return end
	}
	cut := floor + i
	if cut <= start {
		return end
	}
	return cut
}
