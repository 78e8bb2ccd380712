package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"
)

// DefaultFooterPatterns match whole lines of page furniture and boilerplate.
var DefaultFooterPatterns = []string{
	`(?i)^page\s+\d+(\s+of\s+\d+)?$`,
	`(?i)^-?\s*\d{1,4}\s*-?$`,
	`(?i)^\d{1,4}\s*/\s*\d{1,4}$`,
	`(?i)^(strictly\s+)?(private\s+and\s+)?confidential\.?$`,
	`(?i)^.{0,80}all rights reserved\.?$`,
	`(?i)^(©|\(c\)|copyright)\s*\d{4}.{0,80}$`,
	`(?i)^(draft|internal use only)\.?$`,
}

// FooterSet is an immutable set of compiled footer patterns.
type FooterSet struct {
	patterns []*regexp.Regexp
}

// NewFooterSet compiles patterns.
func NewFooterSet(patterns []string) (*FooterSet, error) {
	fs := &FooterSet{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("footer pattern %q: %w", p, err)
		}
		fs.patterns = append(fs.patterns, re)
	}
	return fs, nil
}

var (
	defaultFootersOnce sync.Once
	defaultFooters     *FooterSet
)

// DefaultFooters returns the shared default footer set, compiled on first use.
func DefaultFooters() *FooterSet {
	defaultFootersOnce.Do(func() {
		fs, err := NewFooterSet(DefaultFooterPatterns)
		if err != nil {
			panic(err)
		}
		defaultFooters = fs
	})
	return defaultFooters
}

// Matches reports whether a trimmed line is boilerplate.
func (f *FooterSet) Matches(line string) bool {
	for _, re := range f.patterns {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// Ratio returns the fraction of non-blank characters in content that belong
// to boilerplate lines.
func (f *FooterSet) Ratio(content string) float64 {
	total, footer := 0, 0
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		n := runes(line)
		total += n
		if f.Matches(line) {
			footer += n
		}
	}
	if total == 0 {
		return 0
	}
	return float64(footer) / float64(total)
}

// Quality summarizes the measurements behind a quality decision.
type Quality struct {
	Length      int
	Alpha       int
	FooterRatio float64
	Score       float64
}

// Measure scores content: the mean of a length score relative to the minimum
// chunk size, the alphabetic ratio, and the non-boilerplate ratio.
func (e *Engine) Measure(content string) Quality {
	content = strings.TrimSpace(content)
	q := Quality{Length: runes(content), FooterRatio: e.footers.Ratio(content)}
	nonSpace := 0
	for _, r := range content {
		if unicode.IsSpace(r) {
			continue
		}
		nonSpace++
		if unicode.IsLetter(r) {
			q.Alpha++
		}
	}
	if q.Length == 0 {
		return q
	}
	lengthScore := float64(q.Length) / float64(e.cfg.MinChunkSize)
	if lengthScore > 1 {
		lengthScore = 1
	}
	alphaRatio := 0.0
	if nonSpace > 0 {
		alphaRatio = float64(q.Alpha) / float64(nonSpace)
	}
	q.Score = (lengthScore + alphaRatio + (1 - q.FooterRatio)) / 3
	return q
}

// Passes reports whether q meets every configured threshold.
func (e *Engine) Passes(q Quality) bool {
	return q.Length >= e.cfg.MinContentLength &&
		q.Alpha >= e.cfg.MinAlphaChars &&
		q.FooterRatio <= e.cfg.MaxFooterRatio &&
		q.Score >= e.cfg.MinQualityScore
}

// Validate merges every failing span into a neighbor, preferring the previous
// span of the same section, then the next one of the same section, then any
// neighbor. A lone failing span is dropped.
func (e *Engine) Validate(p *Plan, spans []Span) []Span {
	out := append([]Span(nil), spans...)
	for {
		bad := -1
		for i, s := range out {
			if !e.Passes(e.Measure(p.Text[s.Start:s.End])) {
				bad = i
				break
			}
		}
		if bad < 0 {
			return out
		}
		if len(out) == 1 {
			return nil
		}
		into := mergeTarget(out, bad)
		out[into] = mergeSpans(out[into], out[bad])
		out = append(out[:bad], out[bad+1:]...)
	}
}

func mergeTarget(spans []Span, i int) int {
	sec := spans[i].Section
	switch {
	case i > 0 && spans[i-1].Section == sec:
		return i - 1
	case i+1 < len(spans) && spans[i+1].Section == sec:
		return i + 1
	case i > 0:
		return i - 1
	default:
		return i + 1
	}
}

// mergeSpans joins two adjacent spans; the result keeps dst's attribution.
func mergeSpans(dst, src Span) Span {
	if src.Start < dst.Start {
		dst.Start = src.Start
	}
	if src.End > dst.End {
		dst.End = src.End
	}
	return dst
}
