package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/dgallion1/docchunk/internal/chunker"
	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/hierarchy"
	"github.com/dgallion1/docchunk/internal/markers"
)

// Policy is the document-format side of chunking: which markers exist, how
// they nest and which lines are boilerplate. A zero Policy means defaults.
//
//	marker_families: [numeric, alpha_lower, roman_lower, bullet, legal_decimal]
//	custom_markers: ['^§\s*(?P<value>\d+)(?P<rest>.*)$']
//	roman_max: 30
//	level_table: upper_before_roman
//	levels: {numeric: 1, alpha_upper: 2, alpha_lower: 3}
//	footer_patterns: ['(?i)^acme corp proprietary$']
//	replace_default_footers: false
//	allow_bare_markers: false
type Policy struct {
	MarkerFamilies        []string       `yaml:"marker_families"`
	CustomMarkers         []string       `yaml:"custom_markers"`
	RomanMax              int            `yaml:"roman_max"`
	LevelTable            string         `yaml:"level_table"`
	Levels                map[string]int `yaml:"levels"`
	FooterPatterns        []string       `yaml:"footer_patterns"`
	ReplaceDefaultFooters bool           `yaml:"replace_default_footers"`
	AllowBareMarkers      *bool          `yaml:"allow_bare_markers"`
}

// LoadPolicy reads a policy file. An empty path yields the default policy.
func LoadPolicy(path string) (*Policy, error) {
	if path == "" {
		return &Policy{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}
	p, err := ParsePolicy(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// ParsePolicy decodes YAML, rejecting unknown keys.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}
	return &p, nil
}

// Classifier compiles the marker settings.
func (p *Policy) Classifier() (*markers.Classifier, error) {
	cfg := markers.DefaultConfig()
	for _, name := range p.MarkerFamilies {
		mt, err := doctree.ParseMarkerType(name)
		if err != nil {
			return nil, fmt.Errorf("marker_families: %w", err)
		}
		cfg.Enabled = append(cfg.Enabled, mt)
	}
	for _, pat := range p.CustomMarkers {
		re, err := regexp.Compile(pat)
		if err != nil {
			return nil, fmt.Errorf("custom_markers: %w", err)
		}
		cfg.Custom = append(cfg.Custom, re)
	}
	if len(cfg.Enabled) > 0 && len(cfg.Custom) > 0 {
		cfg.Enabled = append(cfg.Enabled, doctree.MarkerCustom)
	}
	if p.RomanMax > 0 {
		cfg.RomanMax = p.RomanMax
	}
	if p.AllowBareMarkers != nil {
		cfg.AllowBareMarkers = *p.AllowBareMarkers
	}
	return markers.New(cfg)
}

// Table returns the level table: explicit levels when given, else the preset.
func (p *Policy) Table() (hierarchy.LevelTable, error) {
	if len(p.Levels) == 0 {
		return hierarchy.PresetTable(p.LevelTable)
	}
	table := hierarchy.LevelTable{}
	for name, rank := range p.Levels {
		mt, err := doctree.ParseMarkerType(name)
		if err != nil {
			return nil, fmt.Errorf("levels: %w", err)
		}
		switch mt {
		case doctree.MarkerBullet, doctree.MarkerLegalDecimal, doctree.MarkerCustom:
			return nil, fmt.Errorf("levels: %s is ranked by indentation or dot count, not by table", name)
		}
		if rank < 1 {
			return nil, fmt.Errorf("levels: %s rank must be >= 1, got %d", name, rank)
		}
		table[mt] = rank
	}
	return table, nil
}

// Footers compiles the footer set. Without extra patterns the shared default
// set is returned.
func (p *Policy) Footers() (*chunker.FooterSet, error) {
	if len(p.FooterPatterns) == 0 && !p.ReplaceDefaultFooters {
		return chunker.DefaultFooters(), nil
	}
	var patterns []string
	if !p.ReplaceDefaultFooters {
		patterns = append(patterns, chunker.DefaultFooterPatterns...)
	}
	patterns = append(patterns, p.FooterPatterns...)
	return chunker.NewFooterSet(patterns)
}

// EngineOptions compiles the whole policy into chunk engine options.
func (p *Policy) EngineOptions() ([]chunker.Option, error) {
	c, err := p.Classifier()
	if err != nil {
		return nil, err
	}
	t, err := p.Table()
	if err != nil {
		return nil, err
	}
	f, err := p.Footers()
	if err != nil {
		return nil, err
	}
	return []chunker.Option{chunker.WithClassifier(c), chunker.WithLevelTable(t), chunker.WithFooters(f)}, nil
}
