// Package chunker assembles a document's sections, paragraphs and list
// subtrees into size-bounded chunks that never split a list item.
package chunker

import (
	"errors"
	"unicode/utf8"

	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/hierarchy"
	"github.com/dgallion1/docchunk/internal/markers"
	"github.com/dgallion1/docchunk/internal/section"
)

// ErrEmptyOutput reports that no chunk survived assembly and validation.
var ErrEmptyOutput = errors.New("chunker: no chunks produced")

// Config controls chunk sizing and quality thresholds. Sizes count characters.
type Config struct {
	MinChunkSize int // Lower edge of the target window
	MaxChunkSize int // Upper edge of the target window
	HardCeiling  int // Never exceeded except by an indivisible block

	MinContentLength int     // Shorter chunks are merged into a neighbor
	MinAlphaChars    int     // Chunks with fewer letters are merged
	MaxFooterRatio   float64 // Chunks with more boilerplate are merged
	MinQualityScore  float64

	WindowOverlap int // Fixed-window overlap in characters
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		MinChunkSize:     1000,
		MaxChunkSize:     1500,
		HardCeiling:      2000,
		MinContentLength: 50,
		MinAlphaChars:    20,
		MaxFooterRatio:   0.5,
		MinQualityScore:  0.25,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinChunkSize <= 0 {
		c.MinChunkSize = d.MinChunkSize
	}
	if c.MaxChunkSize <= 0 {
		c.MaxChunkSize = d.MaxChunkSize
	}
	if c.HardCeiling <= 0 {
		c.HardCeiling = d.HardCeiling
	}
	if c.MaxChunkSize < c.MinChunkSize {
		c.MaxChunkSize = c.MinChunkSize
	}
	if c.HardCeiling < c.MaxChunkSize {
		c.HardCeiling = c.MaxChunkSize
	}
	if c.MinContentLength <= 0 {
		c.MinContentLength = d.MinContentLength
	}
	if c.MinAlphaChars <= 0 {
		c.MinAlphaChars = d.MinAlphaChars
	}
	if c.MaxFooterRatio <= 0 || c.MaxFooterRatio > 1 {
		c.MaxFooterRatio = d.MaxFooterRatio
	}
	if c.MinQualityScore < 0 {
		c.MinQualityScore = 0
	}
	if c.WindowOverlap < 0 || c.WindowOverlap >= c.MaxChunkSize {
		c.WindowOverlap = 0
	}
	return c
}

// Engine runs the structural pipeline. It holds only read-only configuration
// and is safe for concurrent use.
type Engine struct {
	cfg        Config
	classifier *markers.Classifier
	table      hierarchy.LevelTable
	detector   section.Detector
	footers    *FooterSet
}

// Option configures an Engine.
type Option func(*Engine)

// WithClassifier sets the marker classifier.
func WithClassifier(c *markers.Classifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithLevelTable sets the hierarchy level table.
func WithLevelTable(t hierarchy.LevelTable) Option {
	return func(e *Engine) { e.table = t }
}

// WithFooters replaces the process-wide footer pattern set.
func WithFooters(f *FooterSet) Option {
	return func(e *Engine) { e.footers = f }
}

// WithDetector sets the section detector.
func WithDetector(d section.Detector) Option {
	return func(e *Engine) { e.detector = d }
}

// New returns an Engine with cfg and the given options.
func New(cfg Config, opts ...Option) *Engine {
	e := &Engine{cfg: cfg.withDefaults()}
	for _, o := range opts {
		o(e)
	}
	if e.classifier == nil {
		e.classifier = markers.MustNew(markers.DefaultConfig())
	}
	if e.table == nil {
		e.table = hierarchy.RomanBeforeUpper()
	}
	if e.footers == nil {
		e.footers = DefaultFooters()
	}
	return e
}

// Config returns the effective configuration.
func (e *Engine) Config() Config { return e.cfg }

// Plan is the structural analysis of one document shared by every strategy.
type Plan struct {
	Text       string
	PageBreaks []int
	Sections   []doctree.Section
	Blocks     []Block
	Forest     doctree.ListForest
}

// HeadedSections counts sections introduced by a heading.
func (p *Plan) HeadedSections() int {
	n := 0
	for _, s := range p.Sections {
		if s.Level > 0 {
			n++
		}
	}
	return n
}

// Analyze detects sections, classifies markers, resolves list hierarchy and
// splits every section into blocks.
func (e *Engine) Analyze(src doctree.Source) *Plan {
	p := &Plan{Text: src.Text, PageBreaks: src.PageBreaks}
	p.Sections = e.detector.Detect(src.Text, src.PageBreaks)

	r := hierarchy.New(e.table)
	for _, sec := range p.Sections {
		blocks := buildBlocks(src.Text, sec, e.classifier, r)
		p.Blocks = append(p.Blocks, splitLongParagraphs(src.Text, blocks, e.cfg.MaxChunkSize)...)
	}
	p.Forest = r.Forest()
	return p
}

// Chunk runs the structural pipeline: analysis, boundary decisions, quality
// validation, size optimization and annotation.
func (e *Engine) Chunk(src doctree.Source) ([]doctree.Chunk, *Plan, error) {
	p := e.Analyze(src)
	chunks, err := e.Finish(p, e.Assemble(p), doctree.MethodStructural)
	return chunks, p, err
}

// Finish validates and optimizes spans, then materializes them as chunks.
func (e *Engine) Finish(p *Plan, spans []Span, method doctree.Method) ([]doctree.Chunk, error) {
	spans = e.Validate(p, spans)
	spans = e.Optimize(p, spans)
	if len(spans) == 0 {
		return nil, ErrEmptyOutput
	}
	return e.Materialize(p, spans, method), nil
}

func runes(s string) int { return utf8.RuneCountInString(s) }
