package llm

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// Labels echoed back by a model are metadata only; anything that reads like
// an instruction is discarded.
var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`act\s+as\s+|pretend\s+|forget\s+(everything|all)|override|` +
		`new\s+instructions)`,
)

const maxLabelLen = 120

// ParseProposals decodes a model reply into validated proposals. A reply that
// is not a JSON array, or that yields no usable proposal, is an
// ErrInvalidResponse.
func ParseProposals(raw string) ([]Proposal, error) {
	text := stripCodeBlock(raw)
	var props []Proposal
	if err := json.Unmarshal([]byte(text), &props); err != nil {
		return nil, fmt.Errorf("%w: parse proposals json: %v (raw: %s)", ErrInvalidResponse, err, truncate(text, 200))
	}

	out := props[:0]
	for i := range props {
		if ValidateProposal(&props[i]) {
			out = append(out, props[i])
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no usable proposals in %d returned", ErrInvalidResponse, len(props))
	}
	return out, nil
}

// ValidateProposal checks a proposal and normalizes its metadata in place.
// Returns true if the proposal carries content.
func ValidateProposal(p *Proposal) bool {
	if p == nil || strings.TrimSpace(p.Content) == "" {
		return false
	}
	p.SectionLabel = cleanLabel(p.SectionLabel)
	p.SemanticTheme = cleanLabel(p.SemanticTheme)
	if p.Confidence < 0 {
		p.Confidence = 0
	}
	if p.Confidence > 1 {
		p.Confidence = 1
	}
	return true
}

func cleanLabel(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if injectionPattern.MatchString(s) {
		return ""
	}
	if r := []rune(s); len(r) > maxLabelLen {
		s = string(r[:maxLabelLen])
	}
	return s
}
