// Package parser extracts plain text from uploaded documents. Every parser
// returns one flat text with headings on their own lines, list markers and
// indentation preserved, and the byte offset of every page break.
package parser

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// Parser converts raw document bytes into a Source.
type Parser interface {
	Parse(r io.Reader, filename string) (*doctree.Source, error)
}

// Options tunes format-specific extraction.
type Options struct {
	PDFFallbackPdftotext bool // Shell out to pdftotext when the Go reader fails
}

// SupportedExtensions lists file extensions this service can handle.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".text":     true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate parser for a filename.
func ForFile(filename string, opts Options) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".text":
		return &TextParser{}, nil
	case ".md", ".markdown":
		return &MarkdownParser{}, nil
	case ".csv":
		return &CSVParser{}, nil
	case ".html", ".htm":
		return &HTMLParser{}, nil
	case ".pdf":
		return &PDFParser{FallbackPdftotext: opts.PDFFallbackPdftotext}, nil
	case ".docx":
		return &DOCXParser{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %q", ext)
	}
}

// Parse picks a parser by extension and runs it.
func Parse(r io.Reader, filename string, opts Options) (*doctree.Source, error) {
	p, err := ForFile(filename, opts)
	if err != nil {
		return nil, err
	}
	return p.Parse(r, filename)
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return SupportedExtensions[ext]
}

func baseTitle(filename string) string {
	base := filepath.Base(filename)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// textBuilder accumulates normalized lines and page break offsets.
type textBuilder struct {
	sb     strings.Builder
	breaks []int
	blank  bool
}

// line appends text as one or more lines. Runs of blank lines collapse to
// one and leading blank lines are dropped.
func (b *textBuilder) line(s string) {
	for _, l := range strings.Split(Normalize(s), "\n") {
		l = strings.TrimRight(l, " \t")
		if strings.TrimSpace(l) == "" {
			if b.sb.Len() > 0 && !b.blank {
				b.sb.WriteByte('\n')
				b.blank = true
			}
			continue
		}
		b.sb.WriteString(l)
		b.sb.WriteByte('\n')
		b.blank = false
	}
}

// block appends text followed by a blank line.
func (b *textBuilder) block(s string) {
	if strings.TrimSpace(s) == "" {
		return
	}
	b.line(s)
	b.line("")
}

// pageBreak marks the current end of text as the start of a new page.
func (b *textBuilder) pageBreak() {
	b.breaks = append(b.breaks, b.sb.Len())
}

func (b *textBuilder) source(title string) *doctree.Source {
	text := strings.TrimRight(b.sb.String(), "\n")
	if text != "" {
		text += "\n"
	}
	breaks := b.breaks[:0:0]
	for _, off := range b.breaks {
		if off < len(text) {
			breaks = append(breaks, off)
		}
	}
	return &doctree.Source{Title: title, Text: text, PageBreaks: breaks}
}
