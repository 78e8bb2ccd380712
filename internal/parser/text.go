package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// TextParser handles plain text files. Form feeds mark page breaks.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Source, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var b textBuilder
	for scanner.Scan() {
		for i, part := range strings.Split(scanner.Text(), "\f") {
			if i > 0 {
				b.pageBreak()
			}
			if i > 0 && part == "" {
				continue
			}
			b.line(part)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return b.source(baseTitle(filename)), nil
}
