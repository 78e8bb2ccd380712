package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docchunk/internal/section"
)

func TestTextParser_KeepsLinesAndCollapsesBlanks(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\n\n   \nThird paragraph."
	src, err := (&TextParser{}).Parse(strings.NewReader(input), "notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", src.Title)
	}
	want := "First paragraph line one.\nFirst paragraph line two.\n\nSecond paragraph.\n\nThird paragraph.\n"
	if src.Text != want {
		t.Errorf("text = %q, want %q", src.Text, want)
	}
	if len(src.PageBreaks) != 0 {
		t.Errorf("unexpected page breaks %v", src.PageBreaks)
	}
}

func TestTextParser_PreservesIndentation(t *testing.T) {
	input := "1. Duties\n    a. deliver\n\ti. on time\n"
	src, err := (&TextParser{}).Parse(strings.NewReader(input), "list.txt")
	if err != nil {
		t.Fatal(err)
	}
	if src.Text != input {
		t.Errorf("text = %q, want %q", src.Text, input)
	}
}

func TestTextParser_FormFeedPageBreaks(t *testing.T) {
	src, err := (&TextParser{}).Parse(strings.NewReader("Page one text.\fPage two text."), "pages.txt")
	if err != nil {
		t.Fatal(err)
	}
	if src.Text != "Page one text.\nPage two text.\n" {
		t.Errorf("text = %q", src.Text)
	}
	if len(src.PageBreaks) != 1 || src.PageBreaks[0] != len("Page one text.\n") {
		t.Errorf("page breaks = %v", src.PageBreaks)
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	src, err := (&TextParser{}).Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Title != "empty" || src.Text != "" {
		t.Errorf("got %+v", src)
	}
}

func TestTextParser_Normalizes(t *testing.T) {
	nbsp := string(rune(0x00a0))
	zeroWidth := string(rune(0x200b))
	fullOne, fullTwo := string(rune(0xff11)), string(rune(0xff12))

	input := "1." + nbsp + "Scope" + zeroWidth + "\r\nTotal: " + fullOne + fullTwo + "\r\n"
	src, err := (&TextParser{}).Parse(strings.NewReader(input), "n.txt")
	if err != nil {
		t.Fatal(err)
	}
	if src.Text != "1. Scope\nTotal: 12\n" {
		t.Errorf("text = %q", src.Text)
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("a\r\nb\rc"); got != "a\nb\nc" {
		t.Errorf("line endings: %q", got)
	}
	if got := Normalize(string(rune(0xfb01)) + "nal"); got != "final" {
		t.Errorf("ligature: %q", got)
	}
	if got := Normalize("x" + string(rune(0x202f)) + "y" + string(rune(0xfeff))); got != "x y" {
		t.Errorf("spaces: %q", got)
	}
}

func TestMarkdownParser_StripsHeadingsKeepsLists(t *testing.T) {
	input := `# Master Agreement

Intro text.

## 1. DEFINITIONS

1. Goods means the items.
   a. Including spares.
2. Services means the work.

## 2. PAYMENT

Fees are due.
`
	src, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "doc.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Title != "doc" {
		t.Errorf("expected title %q, got %q", "doc", src.Title)
	}
	if strings.Contains(src.Text, "#") {
		t.Errorf("heading markup kept: %q", src.Text)
	}
	for _, want := range []string{
		"Master Agreement\n\nIntro text.\n\n1. DEFINITIONS\n\n1. Goods means the items.\n",
		"   a. Including spares.\n2. Services means the work.\n\n2. PAYMENT\n\nFees are due.\n",
	} {
		if !strings.Contains(src.Text, want) {
			t.Errorf("text %q missing %q", src.Text, want)
		}
	}

	secs := section.Detect(src.Text, src.PageBreaks)
	if len(secs) != 3 || secs[1].Title != "DEFINITIONS" || secs[2].Number != "2" {
		t.Errorf("sections = %+v", secs)
	}
}

func TestMarkdownParser_CodeBlocks(t *testing.T) {
	input := "# API Reference\n\nSome intro.\n\n## Endpoints\n\nList of endpoints:\n\n```\nGET /api/users\nPOST /api/users\n```\n\nMore text after code.\n"
	src, err := (&MarkdownParser{}).Parse(strings.NewReader(input), "api.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(src.Text, "GET /api/users\nPOST /api/users") {
		t.Errorf("expected code block content in text, got %q", src.Text)
	}
	if !strings.Contains(src.Text, "More text after code.") || strings.Contains(src.Text, "```") {
		t.Errorf("unexpected text %q", src.Text)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	src, err := (&MarkdownParser{}).Parse(strings.NewReader(""), "empty.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if src.Text != "" {
		t.Errorf("expected empty text, got %q", src.Text)
	}
}

func TestMarkdownParser_TitleStripping(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"readme.md", "readme"},
		{"notes.markdown", "notes"},
		{"dir/plain.md", "plain"},
	}
	p := &MarkdownParser{}
	for _, tt := range tests {
		src, err := p.Parse(strings.NewReader("text"), tt.filename)
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tt.filename, err)
		}
		if src.Title != tt.want {
			t.Errorf("filename=%q: expected title %q, got %q", tt.filename, tt.want, src.Title)
		}
	}
}

func TestHTMLParser_ListsAndPageBreaks(t *testing.T) {
	input := `<html><head><title>Supply Terms</title><script>track()</script></head><body>
<h1>1. SCOPE</h1><p>The supplier delivers.</p>
<ol><li>First duty<ol type="a"><li>sub one</li><li>sub two</li></ol></li><li>Second duty</li></ol>
<hr class="page-break"><h2>2. FEES</h2><p>Fees are due.</p>
</body></html>`
	src, err := (&HTMLParser{}).Parse(strings.NewReader(input), "terms.html")
	if err != nil {
		t.Fatal(err)
	}
	if src.Title != "Supply Terms" {
		t.Errorf("title = %q", src.Title)
	}
	want := "1. SCOPE\n\nThe supplier delivers.\n\n1. First duty\n    a. sub one\n    b. sub two\n2. Second duty\n\n2. FEES\n\nFees are due.\n"
	if src.Text != want {
		t.Errorf("text = %q\nwant   %q", src.Text, want)
	}
	if len(src.PageBreaks) != 1 || src.PageBreaks[0] != strings.Index(want, "2. FEES") {
		t.Errorf("page breaks = %v", src.PageBreaks)
	}
}

func TestListMarker(t *testing.T) {
	tests := []struct {
		kind string
		n    int
		want string
	}{
		{"", 3, "3"},
		{"a", 1, "a"},
		{"a", 27, "aa"},
		{"A", 2, "B"},
		{"i", 4, "iv"},
		{"I", 9, "IX"},
	}
	for _, tt := range tests {
		if got := listMarker(tt.kind, tt.n); got != tt.want {
			t.Errorf("listMarker(%q, %d) = %q, want %q", tt.kind, tt.n, got, tt.want)
		}
	}
}

func TestCSVParser(t *testing.T) {
	src, err := (&CSVParser{}).Parse(strings.NewReader("name,qty\nbolt,4\nnut,9\n"), "stock.csv")
	if err != nil {
		t.Fatal(err)
	}
	want := "Rows 2-3\nHeaders: name, qty\nname: bolt, qty: 4\nname: nut, qty: 9\n"
	if src.Text != want {
		t.Errorf("text = %q, want %q", src.Text, want)
	}
}

func TestForFile(t *testing.T) {
	p, err := ForFile("Report.PDF", Options{PDFFallbackPdftotext: true})
	if err != nil {
		t.Fatal(err)
	}
	if pdf, ok := p.(*PDFParser); !ok || !pdf.FallbackPdftotext {
		t.Errorf("got %T %+v", p, p)
	}
	if _, err := ForFile("tool.exe", Options{}); err == nil {
		t.Error("expected unsupported extension error")
	}
	if !IsSupportedExtension("a.docx") || IsSupportedExtension("a.xlsx") {
		t.Error("IsSupportedExtension mismatch")
	}
}
