// Package navigate moves the user between form errors and fields.
package navigate

import (
	"fmt"

	"settlement-form-backend/internal/form"
)

// Target is where the wizard has to go to show one field.
type Target struct {
	Path form.Path `json:"path"`
	Page int       `json:"page"`
	// Flip is set when Page is not part of the visible spread.
	Flip bool `json:"flip"`
}

// Cursor walks the flattened error paths of the last validation.
type Cursor struct {
	layout *form.Layout
	paths  []form.Path
	pos    int
	show   bool
	page   int
}

// NewCursor creates a cursor positioned on the first page.
func NewCursor(layout *form.Layout) *Cursor {
	return &Cursor{layout: layout}
}

// Reset replaces the error paths and moves to the first one.
func (c *Cursor) Reset(paths []form.Path) {
	c.paths = append(c.paths[:0], paths...)
	c.pos = 0
}

// Show turns error display on or off.
func (c *Cursor) Show(on bool) {
	c.show = on
}

// Showing reports whether errors are displayed and there is one to show.
func (c *Cursor) Showing() bool {
	return c.show && len(c.paths) > 0
}

// Len returns the number of error paths.
func (c *Cursor) Len() int {
	return len(c.paths)
}

// Page returns the page the user is looking at.
func (c *Cursor) Page() int {
	return c.page
}

// SetPage records the page the user is looking at.
func (c *Cursor) SetPage(page int) error {
	if _, ok := c.layout.Page(page); !ok {
		return fmt.Errorf("page %d out of range [0, %d)", page, form.PageCount)
	}
	c.page = page
	return nil
}

// Current resolves the error under the cursor without moving.
func (c *Cursor) Current() (Target, bool) {
	if !c.Showing() {
		return Target{}, false
	}
	return c.resolve(c.paths[c.pos]), true
}

// Advance moves to the next error, wrapping around after the last one, and
// flips to its page.
func (c *Cursor) Advance() (Target, bool) {
	if !c.Showing() {
		return Target{}, false
	}
	c.pos = (c.pos + 1) % len(c.paths)
	target := c.resolve(c.paths[c.pos])
	c.page = target.Page
	return target, true
}

// Focus flips to the error under the cursor.
func (c *Cursor) Focus() (Target, bool) {
	target, ok := c.Current()
	if ok {
		c.page = target.Page
	}
	return target, ok
}

// Locate resolves p against the visible spread without moving the cursor.
func (c *Cursor) Locate(p form.Path) Target {
	return c.resolve(p)
}

// resolve picks the page of p. A field shown on several pages resolves to
// the copy in the visible spread, else to the first page showing it.
func (c *Cursor) resolve(p form.Path) Target {
	pages := c.layout.PagesOf(p.Field)
	if len(pages) == 0 {
		return Target{Path: p, Page: c.page}
	}
	left, right := c.layout.Spread(c.page)
	for _, page := range pages {
		if page == left || page == right {
			return Target{Path: p, Page: page}
		}
	}
	return Target{Path: p, Page: pages[0], Flip: true}
}
