// Package hierarchy turns a sequence of classified list markers into a
// parented list forest using a single-pass nesting stack.
package hierarchy

import (
	"github.com/dgallion1/docchunk/internal/doctree"
)

// Resolver consumes markers in document order. It is not safe for concurrent
// use; create one per document.
type Resolver struct {
	table  LevelTable
	forest doctree.ListForest
	stack  []int // ids of open items, innermost last
}

// New returns a Resolver using table. A nil table selects RomanBeforeUpper.
func New(table LevelTable) *Resolver {
	if table == nil {
		table = RomanBeforeUpper()
	}
	return &Resolver{table: table}
}

// Add places m in the forest and returns its item id. The item spans
// [start, end) until extended. Malformed nesting never fails: an item attaches
// to the nearest open ancestor that can enclose it, or becomes a root.
func (r *Resolver) Add(m doctree.ListMarker, start, end int) int {
	item := doctree.ListItem{
		ID:     len(r.forest.Items),
		Marker: m,
		Rank:   r.table.Rank(m),
		Parent: doctree.NoParent,
		Start:  start,
		End:    end,
	}

	for len(r.stack) > 0 {
		top := &r.forest.Items[r.stack[len(r.stack)-1]]
		if encloses(top, &item) {
			break
		}
		r.stack = r.stack[:len(r.stack)-1]
	}

	item.Level = max(item.Rank, 1)
	if len(r.stack) > 0 {
		parent := r.stack[len(r.stack)-1]
		item.Parent = parent
		// Table level, pushed below the parent when indentation or an
		// orphaned marker nests it deeper than the table says.
		item.Level = max(item.Rank, r.forest.Items[parent].Level+1)
		r.forest.Items[parent].Children = append(r.forest.Items[parent].Children, item.ID)
	} else {
		r.forest.Roots = append(r.forest.Roots, item.ID)
	}

	r.forest.Items = append(r.forest.Items, item)
	r.stack = append(r.stack, item.ID)
	return item.ID
}

// encloses reports whether the open item top may be the parent of cur.
func encloses(top, cur *doctree.ListItem) bool {
	topBullet := top.Marker.Type == doctree.MarkerBullet
	curBullet := cur.Marker.Type == doctree.MarkerBullet

	switch {
	case curBullet && topBullet:
		return top.Marker.Indent < cur.Marker.Indent
	case curBullet:
		// A bullet sits one level under the open ranked item unless it is
		// outdented past it.
		return top.Marker.Indent <= cur.Marker.Indent
	case topBullet:
		return top.Marker.Indent < cur.Marker.Indent
	case top.Rank < cur.Rank:
		return true
	case top.Rank > cur.Rank:
		return false
	default:
		// Equal rank: siblings, unless indentation alone nests the item.
		return top.Marker.Indent < cur.Marker.Indent
	}
}

// Extend moves the end of item id to end when end lies beyond it.
func (r *Resolver) Extend(id, end int) {
	if id < 0 || id >= len(r.forest.Items) {
		return
	}
	if end > r.forest.Items[id].End {
		r.forest.Items[id].End = end
	}
}

// Reset closes every open item so the next marker starts a new root.
func (r *Resolver) Reset() {
	r.stack = r.stack[:0]
}

// Open returns the id of the innermost open item, or NoParent.
func (r *Resolver) Open() int {
	if len(r.stack) == 0 {
		return doctree.NoParent
	}
	return r.stack[len(r.stack)-1]
}

// Item returns a copy of item id.
func (r *Resolver) Item(id int) doctree.ListItem {
	return r.forest.Items[id]
}

// Forest returns the resolved forest. The resolver must not be used afterwards.
func (r *Resolver) Forest() doctree.ListForest {
	return r.forest
}

// Resolve builds a forest from markers alone, using zero-width spans.
func Resolve(table LevelTable, markers []doctree.ListMarker) doctree.ListForest {
	r := New(table)
	for _, m := range markers {
		r.Add(m, 0, 0)
	}
	return r.Forest()
}
