package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/hierarchy"
	"github.com/dgallion1/docchunk/internal/markers"
)

// BlockKind distinguishes the units the boundary engine moves around.
type BlockKind int

const (
	BlockHeading BlockKind = iota
	BlockParagraph
	BlockList
)

func (k BlockKind) String() string {
	switch k {
	case BlockHeading:
		return "heading"
	case BlockParagraph:
		return "paragraph"
	case BlockList:
		return "list"
	default:
		return "unknown"
	}
}

// Block is an indivisible span of a section: its heading line, a paragraph,
// or one complete list-item subtree.
type Block struct {
	Kind    BlockKind
	Section int
	Start   int   // Byte offset of the first line
	End     int   // Byte offset just past the last non-blank line
	Items   []int // List item ids in the subtree, BlockList only
}

// blockBuilder walks one section line by line.
type blockBuilder struct {
	section  int
	resolver *hierarchy.Resolver
	blocks   []Block
	cur      *Block
	lastItem int
	blank    bool
}

func (b *blockBuilder) close() {
	if b.cur != nil {
		b.blocks = append(b.blocks, *b.cur)
		b.cur = nil
	}
}

func (b *blockBuilder) open(kind BlockKind, start, end int) {
	b.close()
	b.cur = &Block{Kind: kind, Section: b.section, Start: start, End: end}
}

// buildBlocks splits one section into blocks. The resolver is shared across
// sections so item ids stay unique in the document forest; it is reset at
// every section start.
func buildBlocks(text string, sec doctree.Section, c *markers.Classifier, r *hierarchy.Resolver) []Block {
	b := &blockBuilder{section: sec.Index, resolver: r, lastItem: doctree.NoParent}
	r.Reset()
	headed := sec.Level > 0

	for _, line := range markers.SplitLines(text, sec.Start, sec.End, c.TabWidth()) {
		end := line.Offset + len(line.Text)
		if strings.TrimSpace(line.Text) == "" {
			b.blank = true
			if b.cur != nil && b.cur.Kind == BlockParagraph {
				b.close()
			}
			continue
		}
		wasBlank := b.blank
		b.blank = false

		if headed {
			headed = false
			b.open(BlockHeading, line.Offset, end)
			b.close()
			continue
		}

		if m, ok := c.Classify(line); ok {
			id := r.Add(m, line.Offset, end)
			b.lastItem = id
			if r.Item(id).Parent == doctree.NoParent || b.cur == nil || b.cur.Kind != BlockList {
				b.open(BlockList, line.Offset, end)
			}
			b.cur.Items = append(b.cur.Items, id)
			b.cur.End = end
			continue
		}

		switch {
		case b.cur != nil && b.cur.Kind == BlockList &&
			(!wasBlank || line.Indent > r.Item(b.lastItem).Marker.Indent):
			// Wrapped or indented continuation of the last item.
			r.Extend(b.lastItem, end)
			b.cur.End = end
		case b.cur != nil && b.cur.Kind == BlockParagraph && !wasBlank:
			b.cur.End = end
		default:
			r.Reset()
			b.open(BlockParagraph, line.Offset, end)
		}
	}
	b.close()
	return b.blocks
}

// splitLongParagraphs breaks paragraph blocks longer than limit at sentence or
// line ends, so a wall of text still has safe break points.
func splitLongParagraphs(text string, blocks []Block, limit int) []Block {
	var out []Block
	for _, blk := range blocks {
		if blk.Kind != BlockParagraph || utf8.RuneCountInString(text[blk.Start:blk.End]) <= limit {
			out = append(out, blk)
			continue
		}
		out = append(out, splitParagraph(text, blk, limit)...)
	}
	return out
}

func splitParagraph(text string, blk Block, limit int) []Block {
	breaks := sentenceBreaks(text, blk.Start, blk.End)
	if len(breaks) == 0 {
		return []Block{blk}
	}

	var out []Block
	start := blk.Start
	last := blk.Start
	for _, br := range append(breaks, blk.End) {
		if br <= start {
			continue
		}
		if utf8.RuneCountInString(text[start:br]) > limit && last > start {
			out = append(out, Block{Kind: BlockParagraph, Section: blk.Section, Start: start, End: trimEnd(text, start, last)})
			start = skipSpace(text, last, blk.End)
		}
		last = br
	}
	if start < blk.End {
		out = append(out, Block{Kind: BlockParagraph, Section: blk.Section, Start: start, End: blk.End})
	}
	return out
}

// sentenceBreaks returns offsets just past each sentence terminator or line
// break inside [start, end).
func sentenceBreaks(text string, start, end int) []int {
	var out []int
	for i := start; i < end-1; i++ {
		switch text[i] {
		case '.', '!', '?':
			if text[i+1] == ' ' || text[i+1] == '\n' {
				out = append(out, i+1)
			}
		case '\n':
			out = append(out, i)
		}
	}
	return out
}

func skipSpace(text string, i, end int) int {
	for i < end && (text[i] == ' ' || text[i] == '\n' || text[i] == '\t') {
		i++
	}
	return i
}

func trimEnd(text string, start, end int) int {
	for end > start && (text[end-1] == ' ' || text[end-1] == '\n' || text[end-1] == '\t') {
		end--
	}
	return end
}
