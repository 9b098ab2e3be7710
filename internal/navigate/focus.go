package navigate

import (
	"settlement-form-backend/internal/form"
)

type link struct {
	next, prev form.Path
	hasNext    bool
	hasPrev    bool
}

// FocusGraph is the keyboard traversal order of the form: every field
// knows the field after it and the field before it.
type FocusGraph struct {
	links map[string]link
	first form.Path
}

// NewFocusGraph builds the traversal order from the page layout. Digit
// boxes and record rows are visited slot by slot.
func NewFocusGraph(layout *form.Layout) *FocusGraph {
	order := layout.Order()
	g := &FocusGraph{links: make(map[string]link, len(order))}
	if len(order) > 0 {
		g.first = order[0]
	}
	for i, p := range order {
		var l link
		if i > 0 {
			l.prev, l.hasPrev = order[i-1], true
		}
		if i+1 < len(order) {
			l.next, l.hasNext = order[i+1], true
		}
		g.links[p.String()] = l
	}
	return g
}

// First returns the first field of the form.
func (g *FocusGraph) First() form.Path {
	return g.first
}

// Next returns the field after p.
func (g *FocusGraph) Next(p form.Path) (form.Path, bool) {
	l, ok := g.links[p.String()]
	return l.next, ok && l.hasNext
}

// Prev returns the field before p.
func (g *FocusGraph) Prev(p form.Path) (form.Path, bool) {
	l, ok := g.links[p.String()]
	return l.prev, ok && l.hasPrev
}
