package parser

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dgallion1/docchunk/internal/doctree"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. Ordered and unordered lists are rendered
// with explicit markers, indented four spaces per nesting level.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*doctree.Source, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := baseTitle(filename)
	if t := findTitle(doc); t != "" {
		title = t
	}

	var b textBuilder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if headingLevel(n.Data) > 0 {
				b.line("")
				b.block(textContent(n))
				return
			}
			switch n.Data {
			case "script", "style", "nav", "footer", "header", "noscript":
				return
			case "p", "td", "blockquote", "pre", "dt", "dd":
				b.block(textContent(n))
				return
			case "ol", "ul":
				writeList(&b, n, 0)
				b.line("")
				return
			case "hr":
				if strings.Contains(attr(n, "class"), "page-break") {
					b.pageBreak()
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	if body := findBody(doc); body != nil {
		walk(body)
	} else {
		walk(doc)
	}
	return b.source(title), nil
}

// writeList renders the items of an <ol> or <ul>, recursing into nested
// lists with one more level of indentation.
func writeList(b *textBuilder, list *html.Node, depth int) {
	ordered := list.Data == "ol"
	kind := attr(list, "type")
	n := 1
	if s, err := strconv.Atoi(attr(list, "start")); err == nil {
		n = s
	}
	indent := strings.Repeat("    ", depth)

	for li := list.FirstChild; li != nil; li = li.NextSibling {
		if li.Type != html.ElementNode || li.Data != "li" {
			continue
		}
		marker := "-"
		if ordered {
			marker = listMarker(kind, n) + "."
			n++
		}
		b.line(indent + marker + " " + ownText(li))
		for c := li.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "ol" || c.Data == "ul") {
				writeList(b, c, depth+1)
			}
		}
	}
}

// listMarker renders n in the numbering style of an <ol type> attribute.
func listMarker(kind string, n int) string {
	switch kind {
	case "a":
		return alphaMarker(n, 'a')
	case "A":
		return alphaMarker(n, 'A')
	case "i":
		return strings.ToLower(romanMarker(n))
	case "I":
		return romanMarker(n)
	}
	return strconv.Itoa(n)
}

func alphaMarker(n int, base rune) string {
	if n < 1 {
		n = 1
	}
	var out []rune
	for n > 0 {
		n--
		out = append([]rune{base + rune(n%26)}, out...)
		n /= 26
	}
	return string(out)
}

var romanNumerals = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"}, {100, "C"}, {90, "XC"},
	{50, "L"}, {40, "XL"}, {10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

func romanMarker(n int) string {
	if n < 1 {
		n = 1
	}
	var sb strings.Builder
	for _, r := range romanNumerals {
		for n >= r.value {
			sb.WriteString(r.symbol)
			n -= r.value
		}
	}
	return sb.String()
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		if n.Type == html.ElementNode && n.Data == "br" {
			buf.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

// ownText is the text of a list item without its nested lists, on one line.
func ownText(li *html.Node) string {
	var parts []string
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "ol" || c.Data == "ul") {
			continue
		}
		if c.Type == html.TextNode {
			parts = append(parts, c.Data)
		} else {
			parts = append(parts, textContent(c))
		}
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
