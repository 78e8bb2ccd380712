package doctree

import (
	"fmt"
	"sort"
)

// Source is the extracted text of one document, ready for chunking.
type Source struct {
	Title      string // Document title (from metadata or filename)
	Text       string // Normalized plain text
	PageBreaks []int  // Byte offsets where a new page starts, ascending
}

// NoParent marks an arena entry without an enclosing parent.
const NoParent = -1

// RawLine is one line of extracted text.
type RawLine struct {
	Text   string // Line content without the trailing newline
	Number int    // 1-based line number
	Indent int    // Leading whitespace width, tabs expanded
	Offset int    // Byte offset of the line start in the document
}

// MarkerType is the syntactic family of a list marker.
type MarkerType int

const (
	MarkerNumeric MarkerType = iota
	MarkerAlphaLower
	MarkerAlphaUpper
	MarkerRomanLower
	MarkerRomanUpper
	MarkerBullet
	MarkerLegalDecimal
	MarkerCustom
)

var markerNames = [...]string{
	MarkerNumeric:      "numeric",
	MarkerAlphaLower:   "alpha_lower",
	MarkerAlphaUpper:   "alpha_upper",
	MarkerRomanLower:   "roman_lower",
	MarkerRomanUpper:   "roman_upper",
	MarkerBullet:       "bullet",
	MarkerLegalDecimal: "legal_decimal",
	MarkerCustom:       "custom",
}

func (m MarkerType) String() string {
	if m < 0 || int(m) >= len(markerNames) {
		return fmt.Sprintf("marker(%d)", int(m))
	}
	return markerNames[m]
}

// ParseMarkerType maps a family name back to its MarkerType.
func ParseMarkerType(s string) (MarkerType, error) {
	for i, name := range markerNames {
		if name == s {
			return MarkerType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown marker type %q", s)
}

// AllMarkerTypes lists every family in declaration order.
func AllMarkerTypes() []MarkerType {
	out := make([]MarkerType, len(markerNames))
	for i := range markerNames {
		out[i] = MarkerType(i)
	}
	return out
}

// MarshalText lets marker types appear by name in JSON and YAML.
func (m MarkerType) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *MarkerType) UnmarshalText(b []byte) error {
	t, err := ParseMarkerType(string(b))
	if err != nil {
		return err
	}
	*m = t
	return nil
}

// ListMarker is a classified marker token. Values are never mutated after
// classification.
type ListMarker struct {
	Type      MarkerType `json:"type"`
	Value     string     `json:"value"`               // Normalized token, e.g. "3.2", "ii", "-"
	Remainder string     `json:"remainder,omitempty"` // Text after the separator
	Indent    int        `json:"indent"`
	Line      int        `json:"line"`
	Primary   string     `json:"primary,omitempty"` // Leading token of a compound marker ("1" in "1) a.")
}

// ListItem is one node of a resolved list forest. Parent and Children are
// indices into the owning ListForest.
type ListItem struct {
	ID       int        `json:"id"`
	Marker   ListMarker `json:"marker"`
	Level    int        `json:"level"` // Level-table level, 1 = shallowest; bullets sit one below their parent
	Rank     int        `json:"rank"`  // Level-table rank used for nesting decisions
	Parent   int        `json:"parent"`
	Children []int      `json:"children,omitempty"`
	Start    int        `json:"start"` // Byte span in the document
	End      int        `json:"end"`
}

// ListForest owns every ListItem produced for a document section.
type ListForest struct {
	Items []ListItem
	Roots []int
}

// Subtree returns the ids of item id and all of its descendants in source order.
func (f *ListForest) Subtree(id int) []int {
	out := []int{id}
	for _, c := range f.Items[id].Children {
		out = append(out, f.Subtree(c)...)
	}
	return out
}

// SubtreeEnd returns the end offset of the last descendant of id.
func (f *ListForest) SubtreeEnd(id int) int {
	end := f.Items[id].End
	for _, c := range f.Items[id].Children {
		if e := f.SubtreeEnd(c); e > end {
			end = e
		}
	}
	return end
}

// ListItemRef is the read-only view of a ListItem carried by a Chunk.
type ListItemRef struct {
	Marker string     `json:"marker"`
	Type   MarkerType `json:"type"`
	Level  int        `json:"level"`
	Parent string     `json:"parent,omitempty"` // Marker value of the parent item
	Text   string     `json:"text,omitempty"`
}

// Section is one span of the gap-free section partition of a document.
type Section struct {
	Index     int    `json:"index"`
	Number    string `json:"number,omitempty"` // Empty for the preamble
	Title     string `json:"title"`
	Level     int    `json:"level"` // 0 for the preamble, 1 for top sections
	Start     int    `json:"start"`
	End       int    `json:"end"`
	PageStart int    `json:"page_start"`
	PageEnd   int    `json:"page_end"`
	Parent    int    `json:"parent"`
}

// Method names a chunking strategy.
type Method string

const (
	MethodStructural      Method = "structural"
	MethodLangExtractLike Method = "langextract_like"
	MethodLLMAssisted     Method = "llm_assisted"
	MethodTraditional     Method = "traditional"
)

// ParseMethod validates a configured method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodStructural, MethodLangExtractLike, MethodLLMAssisted, MethodTraditional:
		return m, nil
	}
	return "", fmt.Errorf("unknown chunking method %q", s)
}

// Chunk is a sized text segment with structural context. Emitted chunks are
// not modified afterwards.
type Chunk struct {
	ID                   string        `json:"chunk_id"`
	Index                int           `json:"index"`
	Content              string        `json:"content"`
	SectionNumber        string        `json:"section_number,omitempty"`
	SectionTitle         string        `json:"section_title,omitempty"`
	ListItems            []ListItemRef `json:"list_items,omitempty"`
	CrossReferences      []string      `json:"cross_references,omitempty"`
	UnresolvedReferences []string      `json:"unresolved_references,omitempty"`
	SemanticTheme        string        `json:"semantic_theme,omitempty"`
	QualityScore         float64       `json:"quality_score"`
	SizeChars            int           `json:"size_chars"`
	Method               Method        `json:"chunking_method"`
	Oversized            bool          `json:"oversized,omitempty"`
	Start                int           `json:"start"`
	End                  int           `json:"end"`
	PageStart            int           `json:"page_start"`
	PageEnd              int           `json:"page_end"`
}

// SizeBucket counts chunks whose size falls in [Min, Max).
type SizeBucket struct {
	Label string `json:"label"`
	Min   int    `json:"min"`
	Max   int    `json:"max"` // 0 means unbounded
	Count int    `json:"count"`
}

// Summary describes a ChunkingResult.
type Summary struct {
	TotalChunks               int          `json:"total_chunks"`
	AverageChunkSize          float64      `json:"average_chunk_size"`
	SectionsFound             int          `json:"sections_found"`
	ChunksWithCrossReferences int          `json:"chunks_with_cross_references"`
	OversizedChunks           int          `json:"oversized_chunks"`
	SizeDistribution          []SizeBucket `json:"size_distribution"`
}

// Attempt records one strategy that was tried before the selected one.
type Attempt struct {
	Method Method `json:"method"`
	Error  string `json:"error,omitempty"`
}

// ChunkingResult is the terminal artifact of one document run.
type ChunkingResult struct {
	DocumentID string    `json:"document_id"`
	Chunks     []Chunk   `json:"chunks"`
	MethodUsed Method    `json:"method_used"`
	Summary    Summary   `json:"summary"`
	Attempts   []Attempt `json:"attempts,omitempty"`
}

// PageOf returns the 1-based page containing offset, given ascending page
// break offsets.
func PageOf(breaks []int, offset int) int {
	return sort.SearchInts(breaks, offset+1) + 1
}

// Summarize computes the summary for a chunk sequence.
func Summarize(chunks []Chunk, sectionsFound int) Summary {
	s := Summary{
		TotalChunks:   len(chunks),
		SectionsFound: sectionsFound,
		SizeDistribution: []SizeBucket{
			{Label: "<500", Min: 0, Max: 500},
			{Label: "500-999", Min: 500, Max: 1000},
			{Label: "1000-1499", Min: 1000, Max: 1500},
			{Label: "1500-2000", Min: 1500, Max: 2001},
			{Label: ">2000", Min: 2001},
		},
	}
	total := 0
	for _, c := range chunks {
		total += c.SizeChars
		if len(c.CrossReferences) > 0 {
			s.ChunksWithCrossReferences++
		}
		if c.Oversized {
			s.OversizedChunks++
		}
		for i := range s.SizeDistribution {
			b := &s.SizeDistribution[i]
			if c.SizeChars >= b.Min && (b.Max == 0 || c.SizeChars < b.Max) {
				b.Count++
				break
			}
		}
	}
	if len(chunks) > 0 {
		s.AverageChunkSize = float64(total) / float64(len(chunks))
	}
	return s
}
