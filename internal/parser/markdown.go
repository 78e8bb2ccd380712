package parser

import (
	"bytes"
	"io"

	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownParser handles Markdown files using goldmark. Heading markup is
// stripped; every other block is kept as its source lines so list markers
// and their indentation survive.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Source, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var b textBuilder
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			b.line("")
			b.block(string(node.Text(src)))
		case *ast.ThematicBreak:
			b.line("")
		default:
			start, stop, ok := blockRange(n)
			if !ok {
				continue
			}
			b.block(string(src[lineStart(src, start):stop]))
		}
	}
	return b.source(baseTitle(filename)), nil
}

// blockRange returns the source byte range covered by n and its descendant
// blocks.
func blockRange(n ast.Node) (start, stop int, ok bool) {
	if n.Type() == ast.TypeBlock {
		if lines := n.Lines(); lines.Len() > 0 {
			start, stop, ok = lines.At(0).Start, lines.At(lines.Len()-1).Stop, true
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		s, e, found := blockRange(c)
		if !found {
			continue
		}
		if !ok || s < start {
			start = s
		}
		if !ok || e > stop {
			stop = e
		}
		ok = true
	}
	return start, stop, ok
}

// lineStart moves pos back to the beginning of its line, so a list's first
// marker and indentation are included.
func lineStart(src []byte, pos int) int {
	if i := bytes.LastIndexByte(src[:pos], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}
