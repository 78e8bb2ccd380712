package hierarchy

import (
	"fmt"
	"strings"

	"github.com/dgallion1/docchunk/internal/doctree"
)

// LevelTable assigns a nesting rank to each ranked marker family. Bullets are
// ranked by indentation instead, and legal/custom markers by dot count.
type LevelTable map[doctree.MarkerType]int

// Preset names accepted by PresetTable.
const (
	PresetRomanBeforeUpper = "roman_before_upper"
	PresetUpperBeforeRoman = "upper_before_roman"
)

// RomanBeforeUpper nests lowercase roman numerals above uppercase letters:
// 1. / a. / i. / A. / I.
func RomanBeforeUpper() LevelTable {
	return LevelTable{
		doctree.MarkerNumeric:    1,
		doctree.MarkerAlphaLower: 2,
		doctree.MarkerRomanLower: 3,
		doctree.MarkerAlphaUpper: 4,
		doctree.MarkerRomanUpper: 5,
	}
}

// UpperBeforeRoman nests uppercase letters above lowercase roman numerals:
// 1. / a. / A. / i. / I.
func UpperBeforeRoman() LevelTable {
	return LevelTable{
		doctree.MarkerNumeric:    1,
		doctree.MarkerAlphaLower: 2,
		doctree.MarkerAlphaUpper: 3,
		doctree.MarkerRomanLower: 4,
		doctree.MarkerRomanUpper: 5,
	}
}

// PresetTable returns the named level table. An empty name selects the default.
func PresetTable(name string) (LevelTable, error) {
	switch name {
	case "", PresetRomanBeforeUpper:
		return RomanBeforeUpper(), nil
	case PresetUpperBeforeRoman:
		return UpperBeforeRoman(), nil
	}
	return nil, fmt.Errorf("unknown level table preset %q", name)
}

// Rank returns the nesting rank of m, or 0 for bullets. A ranked item's level
// is its rank unless its parent already sits at or below it.
func (t LevelTable) Rank(m doctree.ListMarker) int {
	switch m.Type {
	case doctree.MarkerBullet:
		return 0
	case doctree.MarkerLegalDecimal, doctree.MarkerCustom:
		return strings.Count(m.Value, ".") + 1
	}
	if r, ok := t[m.Type]; ok && r > 0 {
		return r
	}
	return 1
}
