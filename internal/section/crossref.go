package section

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dgallion1/docchunk/internal/doctree"
)

const refID = `(\d{1,3}(?:\.\d{1,3})*(?:\([a-z0-9]{1,4}\))*)`

var refPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bsee\s+(?:section|clause)s?\s+` + refID),
	regexp.MustCompile(`(?i)\bas\s+defined\s+in\s+(?:section|clause)s?\s+` + refID),
	regexp.MustCompile(`(?i)\bpursuant\s+to\s+(?:section|clause)s?\s+` + refID),
	regexp.MustCompile(`(?i)\bclauses?\s+` + refID),
	// "Section 4 above", "paragraph 2.1 below"
	regexp.MustCompile(`(?i)\b(?:section|clause|paragraph|article)\s+` + refID + `\s+(?:above|below)\b`),
	// Bare dotted identifiers: "3.2 above".
	regexp.MustCompile(`(?i)\b(\d{1,3}(?:\.\d{1,3})+(?:\([a-z0-9]{1,4}\))*)\s+(?:above|below)\b`),
	// Bare integers only when "above"/"below" closes the phrase ("in 5 above.",
	// "5 below and 6 above"), so "5 below freezing" stays a quantity.
	regexp.MustCompile(`(?i)(?:^|[^\w.])(\d{1,3}(?:\([a-z0-9]{1,4}\))*)\s+(?:above|below)(?:\s*[.,;:)]|\s*$|\s+(?:and|or)\b)`),
}

// DetectReferences returns the sorted, de-duplicated section identifiers
// referenced by text. Identifiers need not exist in the document.
func DetectReferences(text string) []string {
	seen := map[string]bool{}
	var out []string
	for _, re := range refPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			id := strings.ToLower(m[1])
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	SortIDs(out)
	return out
}

// Resolve splits refs into those naming a detected section and those that do
// not. A reference to a sub-paragraph ("3.2(a)") resolves through its section.
func Resolve(refs []string, sections []doctree.Section) (resolved, unresolved []string) {
	known := make(map[string]bool, len(sections))
	for _, s := range sections {
		if s.Number != "" {
			known[s.Number] = true
		}
	}
	for _, r := range refs {
		base := r
		if i := strings.IndexByte(r, '('); i > 0 {
			base = r[:i]
		}
		if known[r] || known[base] {
			resolved = append(resolved, r)
		} else {
			unresolved = append(unresolved, r)
		}
	}
	return resolved, unresolved
}

// SortIDs orders dotted identifiers numerically, component by component.
func SortIDs(ids []string) {
	sort.SliceStable(ids, func(i, j int) bool { return compareIDs(ids[i], ids[j]) < 0 })
}

func compareIDs(a, b string) int {
	pa, pb := splitID(a), splitID(b)
	for i := 0; i < len(pa) && i < len(pb); i++ {
		na, ea := strconv.Atoi(pa[i])
		nb, eb := strconv.Atoi(pb[i])
		if ea == nil && eb == nil {
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
			continue
		}
		if c := strings.Compare(pa[i], pb[i]); c != 0 {
			return c
		}
	}
	return len(pa) - len(pb)
}

func splitID(id string) []string {
	return strings.FieldsFunc(id, func(r rune) bool { return r == '.' || r == '(' || r == ')' })
}
