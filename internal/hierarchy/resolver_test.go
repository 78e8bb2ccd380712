package hierarchy

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/dgallion1/docchunk/internal/doctree"
	"github.com/dgallion1/docchunk/internal/markers"
)

func classifyAll(t *testing.T, text string) []doctree.ListMarker {
	t.Helper()
	c := markers.MustNew(markers.DefaultConfig())
	var out []doctree.ListMarker
	for _, line := range markers.SplitLines(text, 0, len(text), 4) {
		if m, ok := c.Classify(line); ok {
			out = append(out, m)
		}
	}
	return out
}

func TestResolve_ScenarioA(t *testing.T) {
	ms := classifyAll(t, "1. Intro\na. Sub one\nb. Sub two\n2. Next")
	if len(ms) != 4 {
		t.Fatalf("expected 4 markers, got %d", len(ms))
	}
	f := Resolve(nil, ms)

	if len(f.Roots) != 2 {
		t.Fatalf("expected 2 roots, got %d", len(f.Roots))
	}
	one, two := f.Items[f.Roots[0]], f.Items[f.Roots[1]]
	if one.Marker.Value != "1" || two.Marker.Value != "2" {
		t.Errorf("roots = %q, %q", one.Marker.Value, two.Marker.Value)
	}
	if one.Level != 1 || two.Level != 1 {
		t.Errorf("root levels = %d, %d", one.Level, two.Level)
	}
	if len(one.Children) != 2 {
		t.Fatalf("item 1 has %d children, want 2", len(one.Children))
	}
	for _, c := range one.Children {
		if f.Items[c].Level != 2 || f.Items[c].Parent != one.ID {
			t.Errorf("child %+v not at level 2 under item 1", f.Items[c])
		}
	}
	if len(two.Children) != 0 {
		t.Errorf("item 2 has children %v", two.Children)
	}
}

func TestResolve_ScenarioB(t *testing.T) {
	ms := classifyAll(t, "1.\n   a.\n      i.\n         A. deep")
	if len(ms) != 4 {
		t.Fatalf("expected 4 markers, got %d", len(ms))
	}

	for _, tt := range []struct {
		preset string
		levels []int
	}{
		{PresetRomanBeforeUpper, []int{1, 2, 3, 4}},
		// i. ranks 4 here, and A. nested under it by indentation goes one deeper.
		{PresetUpperBeforeRoman, []int{1, 2, 4, 5}},
	} {
		t.Run(tt.preset, func(t *testing.T) {
			table, err := PresetTable(tt.preset)
			if err != nil {
				t.Fatal(err)
			}
			f := Resolve(table, ms)
			for i, item := range f.Items {
				if item.Level != tt.levels[i] {
					t.Errorf("item %q level = %d, want %d", item.Marker.Value, item.Level, tt.levels[i])
				}
				if i > 0 && item.Parent != i-1 {
					t.Errorf("item %q parent = %d, want %d", item.Marker.Value, item.Parent, i-1)
				}
			}
		})
	}
}

func TestResolve_TablesDisagree(t *testing.T) {
	// Uppercase letter followed by a lowercase roman numeral at the same
	// indentation: nested under one table, siblings-by-pop under the other.
	ms := classifyAll(t, "1. top\na. sub\nA. upper\ni. roman")

	f := Resolve(RomanBeforeUpper(), ms)
	roman := f.Items[3]
	if roman.Parent != 1 {
		t.Errorf("roman_before_upper: roman parent = %d, want 1 (a.)", roman.Parent)
	}
	if roman.Level != 3 {
		t.Errorf("roman_before_upper: roman level = %d, want 3", roman.Level)
	}

	f = Resolve(UpperBeforeRoman(), ms)
	roman = f.Items[3]
	if roman.Parent != 2 {
		t.Errorf("upper_before_roman: roman parent = %d, want 2 (A.)", roman.Parent)
	}
	if roman.Level != 4 {
		t.Errorf("upper_before_roman: roman level = %d, want 4", roman.Level)
	}
}

func TestResolve_Bullets(t *testing.T) {
	ms := classifyAll(t, strings.Join([]string{
		"1. Numbered",
		"- bullet under numbered",
		"  - deeper bullet",
		"- back out",
		"2. Next",
	}, "\n"))
	f := Resolve(nil, ms)

	want := []struct {
		level, parent int
	}{
		{1, doctree.NoParent},
		{2, 0},
		{3, 1},
		{2, 0},
		{1, doctree.NoParent},
	}
	for i, w := range want {
		if f.Items[i].Level != w.level || f.Items[i].Parent != w.parent {
			t.Errorf("item %d (%q): level %d parent %d, want %d/%d",
				i, f.Items[i].Marker.Remainder, f.Items[i].Level, f.Items[i].Parent, w.level, w.parent)
		}
	}
}

func TestResolve_IndentationNesting(t *testing.T) {
	ms := classifyAll(t, "1. outer\n    1. indented same family\n2. outer again")
	f := Resolve(nil, ms)
	if f.Items[1].Parent != 0 || f.Items[1].Level != 2 {
		t.Errorf("indented numeric should nest: %+v", f.Items[1])
	}
	if f.Items[2].Parent != doctree.NoParent {
		t.Errorf("outer 2. should be a root: %+v", f.Items[2])
	}
}

func TestResolve_LegalDecimal(t *testing.T) {
	ms := classifyAll(t, "1.1 First\n1.1.1 Nested\n1.1.2 Sibling\n1.2 Second")
	f := Resolve(nil, ms)
	if f.Items[0].Rank != 2 || f.Items[1].Rank != 3 {
		t.Errorf("ranks = %d, %d", f.Items[0].Rank, f.Items[1].Rank)
	}
	if f.Items[1].Parent != 0 || f.Items[2].Parent != 0 {
		t.Errorf("1.1.x should nest under 1.1: %+v %+v", f.Items[1], f.Items[2])
	}
	if f.Items[3].Parent != doctree.NoParent || f.Items[3].Level != 2 {
		t.Errorf("1.2 should be a level 2 root: %+v", f.Items[3])
	}
	if f.Items[1].Level != 3 || f.Items[2].Level != 3 {
		t.Errorf("1.1.x levels = %d, %d, want 3", f.Items[1].Level, f.Items[2].Level)
	}
}

func TestResolve_LevelsFromTableWithoutAncestors(t *testing.T) {
	ms := []doctree.ListMarker{
		{Type: doctree.MarkerAlphaLower, Value: "a"},
		{Type: doctree.MarkerLegalDecimal, Value: "3.2"},
		{Type: doctree.MarkerAlphaUpper, Value: "A"},
	}
	f := Resolve(nil, ms)

	want := []struct {
		level, parent int
	}{
		{2, doctree.NoParent}, // a run that opens on a letter keeps the letter's level
		{2, doctree.NoParent}, // one dot: level 2, a sibling root of a.
		{4, 1},
	}
	for i, w := range want {
		if f.Items[i].Level != w.level || f.Items[i].Parent != w.parent {
			t.Errorf("item %q: level %d parent %d, want %d/%d",
				f.Items[i].Marker.Value, f.Items[i].Level, f.Items[i].Parent, w.level, w.parent)
		}
	}

	// A bullet takes the open item's level plus one.
	f = Resolve(nil, []doctree.ListMarker{
		{Type: doctree.MarkerAlphaLower, Value: "a"},
		{Type: doctree.MarkerBullet, Value: "-"},
	})
	if f.Items[1].Level != 3 || f.Items[1].Parent != 0 {
		t.Errorf("bullet = %+v", f.Items[1])
	}
}

func TestResolve_Orphan(t *testing.T) {
	// An uppercase item with no roman ancestor attaches to the nearest open
	// item that can enclose it.
	ms := classifyAll(t, "a. alpha\nA. orphan upper")
	f := Resolve(nil, ms)
	if f.Items[1].Parent != 0 || f.Items[1].Level != 4 {
		t.Errorf("orphan = %+v", f.Items[1])
	}

	// Starting deep with nothing open produces a root.
	f = Resolve(nil, classifyAll(t, "A. starts deep\n1. then numeric"))
	if len(f.Roots) != 2 {
		t.Errorf("expected 2 roots, got %v", f.Roots)
	}
}

func TestResolver_ExtendAndReset(t *testing.T) {
	r := New(nil)
	ms := classifyAll(t, "1. one\na. sub")
	id := r.Add(ms[0], 0, 6)
	r.Extend(id, 40)
	r.Extend(id, 10) // never shrinks
	if r.Item(id).End != 40 {
		t.Errorf("end = %d, want 40", r.Item(id).End)
	}
	r.Reset()
	if r.Open() != doctree.NoParent {
		t.Error("expected no open item after Reset")
	}
	sub := r.Add(ms[1], 41, 49)
	if r.Item(sub).Parent != doctree.NoParent {
		t.Error("item after Reset should be a root")
	}
}

func TestPresetTable_Unknown(t *testing.T) {
	if _, err := PresetTable("alphabetical"); err == nil {
		t.Error("expected error for unknown preset")
	}
}

// Child levels exceed parent levels and equal-rank siblings share level and
// parent for arbitrary marker sequences.
func TestResolve_InvariantsRandom(t *testing.T) {
	types := []doctree.ListMarker{
		{Type: doctree.MarkerNumeric, Value: "1"},
		{Type: doctree.MarkerAlphaLower, Value: "a"},
		{Type: doctree.MarkerRomanLower, Value: "i"},
		{Type: doctree.MarkerAlphaUpper, Value: "A"},
		{Type: doctree.MarkerRomanUpper, Value: "I"},
		{Type: doctree.MarkerBullet, Value: "-"},
		{Type: doctree.MarkerLegalDecimal, Value: "1.2"},
		{Type: doctree.MarkerLegalDecimal, Value: "1.2.3"},
	}
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		var ms []doctree.ListMarker
		for i := 0; i < 30; i++ {
			m := types[rng.Intn(len(types))]
			m.Indent = rng.Intn(4) * 2
			ms = append(ms, m)
		}
		for _, table := range []LevelTable{RomanBeforeUpper(), UpperBeforeRoman()} {
			f := Resolve(table, ms)
			if len(f.Items) != len(ms) {
				t.Fatalf("run %d: %d items for %d markers", run, len(f.Items), len(ms))
			}
			for _, item := range f.Items {
				if item.Level < 1 {
					t.Fatalf("run %d: level %d < 1", run, item.Level)
				}
				if item.Parent == doctree.NoParent {
					continue
				}
				p := f.Items[item.Parent]
				if item.Level <= p.Level {
					t.Fatalf("run %d: child level %d <= parent level %d", run, item.Level, p.Level)
				}
				if item.Parent >= item.ID {
					t.Fatalf("run %d: parent %d does not precede child %d", run, item.Parent, item.ID)
				}
				for _, sib := range p.Children {
					s := f.Items[sib]
					if s.Parent != item.Parent {
						t.Fatalf("run %d: siblings disagree on parent", run)
					}
					if s.Rank == item.Rank && s.Level != item.Level {
						t.Fatalf("run %d: equal-rank siblings at levels %d and %d", run, s.Level, item.Level)
					}
				}
			}
		}
	}
}
