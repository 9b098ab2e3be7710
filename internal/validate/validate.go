// Package validate checks a form against its page-partitioned schema and
// reports the failures as an ErrorTree.
package validate

import (
	"slices"
	"strings"
	"time"

	"settlement-form-backend/internal/form"
)

var (
	formats = newFormatValidator()
	layout  = form.NewLayout()
)

// Validate checks the whole form. Two-digit years are expanded on a copy
// before any date rule runs; s itself is not modified.
func Validate(s *form.FormState, v form.Variant, now time.Time) *ErrorTree {
	return run(s, v, now, func(string) bool { return true })
}

// ValidatePage checks only the fields rendered on page.
func ValidatePage(s *form.FormState, v form.Variant, page int, now time.Time) *ErrorTree {
	return run(s, v, now, func(field string) bool {
		return slices.Contains(layout.PagesOf(field), page)
	})
}

func run(s *form.FormState, v form.Variant, now time.Time, include func(field string) bool) *ErrorTree {
	expanded := *s
	form.ExpandYears(&expanded, now)

	t := newErrorTree()
	for i := 0; i < len(schema); {
		e := schema[i]
		if e.check != nil {
			if include(e.check.field) {
				e.check.run(&expanded, v, now, t)
			}
			i++
			continue
		}
		// Consecutive rules on the same record list are checked row by row.
		j := i + 1
		if e.rule.sub != "" {
			for j < len(schema) && schema[j].rule != nil && schema[j].rule.field == e.rule.field && schema[j].rule.sub != "" {
				j++
			}
		}
		if include(e.rule.field) {
			checkRules(&expanded, v, schema[i:j], t)
		}
		i = j
	}
	return t
}

func checkRules(s *form.FormState, v form.Variant, group []entry, t *ErrorTree) {
	first := group[0].rule
	n := form.ListLength(first.field)
	if n == 0 {
		checkSlot(s, v, *first, form.FieldPath(first.field), form.NoIndex, t)
		return
	}
	for idx := 0; idx < n; idx++ {
		for _, e := range group {
			p := form.ItemPath(e.rule.field, idx)
			if e.rule.sub != "" {
				p = form.RowPath(e.rule.field, idx, e.rule.sub)
			}
			checkSlot(s, v, *e.rule, p, idx, t)
		}
	}
}

func checkSlot(s *form.FormState, v form.Variant, r rule, p form.Path, idx int, t *ErrorTree) {
	value, err := form.Get(s, p)
	if err != nil {
		return
	}
	value = strings.TrimSpace(value)
	required := r.required(subject{state: s, variant: v, index: idx})

	if form.IsBool(r.field) {
		if required && value != "true" {
			t.add(p, msgConsent)
		}
		return
	}
	if value == "" {
		if required {
			t.add(p, msgRequired)
		}
		return
	}
	tag := r.tagFor(v)
	if tag == "" {
		return
	}
	if err := formats.Var(value, tag); err != nil {
		t.add(p, formatMessage(err))
	}
}

// Progress counts the required fields that are filled in.
type Progress struct {
	Filled   int `json:"filled"`
	Required int `json:"required"`
	Percent  int `json:"percent"`
}

// ProgressOf computes the completion of the form. Conditional requirements
// are evaluated against the current values.
func ProgressOf(s *form.FormState, v form.Variant) Progress {
	var p Progress
	for _, e := range schema {
		if e.rule == nil {
			continue
		}
		r := *e.rule
		paths := []form.Path{form.FieldPath(r.field)}
		if n := form.ListLength(r.field); n > 0 {
			paths = paths[:0]
			for idx := 0; idx < n; idx++ {
				if r.sub != "" {
					paths = append(paths, form.RowPath(r.field, idx, r.sub))
				} else {
					paths = append(paths, form.ItemPath(r.field, idx))
				}
			}
		}
		for _, path := range paths {
			if !r.required(subject{state: s, variant: v, index: path.Index}) {
				continue
			}
			p.Required++
			value, _ := form.Get(s, path)
			value = strings.TrimSpace(value)
			if form.IsBool(r.field) && value == "false" {
				continue
			}
			if value != "" {
				p.Filled++
			}
		}
	}
	if p.Required > 0 {
		p.Percent = p.Filled * 100 / p.Required
	}
	return p
}
