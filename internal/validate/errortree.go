package validate

import (
	"encoding/json"

	"settlement-form-backend/internal/form"
)

// ErrorTree holds the validation messages of a form, keyed by path. It
// keeps the first message per path and remembers schema order.
type ErrorTree struct {
	messages map[string]string
	order    []form.Path
}

func newErrorTree() *ErrorTree {
	return &ErrorTree{messages: make(map[string]string)}
}

func (t *ErrorTree) add(p form.Path, message string) {
	key := p.String()
	if _, exists := t.messages[key]; exists {
		return
	}
	t.messages[key] = message
	t.order = append(t.order, p)
}

// Has reports whether p has an error.
func (t *ErrorTree) Has(p form.Path) bool {
	_, ok := t.messages[p.String()]
	return ok
}

// Message returns the error at p.
func (t *ErrorTree) Message(p form.Path) (string, bool) {
	m, ok := t.messages[p.String()]
	return m, ok
}

// Len returns the number of errors.
func (t *ErrorTree) Len() int {
	return len(t.order)
}

// Empty reports whether the form is valid.
func (t *ErrorTree) Empty() bool {
	return len(t.order) == 0
}

// Paths flattens the tree into error paths in schema order.
func (t *ErrorTree) Paths() []form.Path {
	return append([]form.Path(nil), t.order...)
}

// Strings returns the flattened paths in bracketed form.
func (t *ErrorTree) Strings() []string {
	out := make([]string, len(t.order))
	for i, p := range t.order {
		out[i] = p.String()
	}
	return out
}

// MarshalJSON renders the tree with the shape of FormState. List fields
// are arrays of their full length with null for clean slots.
func (t *ErrorTree) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(t.order))
	for _, p := range t.order {
		msg := t.messages[p.String()]
		if !p.IsList() {
			out[p.Field] = msg
			continue
		}
		slots, _ := out[p.Field].([]any)
		if slots == nil {
			slots = make([]any, form.ListLength(p.Field))
			out[p.Field] = slots
		}
		if p.Sub == "" {
			slots[p.Index] = msg
			continue
		}
		row, _ := slots[p.Index].(map[string]string)
		if row == nil {
			row = make(map[string]string)
			slots[p.Index] = row
		}
		row[p.Sub] = msg
	}
	return json.Marshal(out)
}
