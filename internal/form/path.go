package form

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var (
	// ErrUnknownField is returned for a path that names no form field.
	ErrUnknownField = errors.New("unknown form field")
	// ErrIndexOutOfRange is returned for a list index outside the fixed list length.
	ErrIndexOutOfRange = errors.New("list index out of range")
	// ErrMalformedPath is returned for a path that does not parse.
	ErrMalformedPath = errors.New("malformed field path")
)

// NoIndex marks a path that does not address a list slot.
const NoIndex = -1

// Path addresses one field of a FormState: a container name, an optional
// list index and an optional row sub-field.
type Path struct {
	Field string
	Index int
	Sub   string
}

var pathRe = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9]*)(?:\[(\d+)\]|\.(\d+))?(?:\.([A-Za-z][A-Za-z0-9]*))?$`)

// FieldPath addresses a scalar field.
func FieldPath(field string) Path {
	return Path{Field: field, Index: NoIndex}
}

// ItemPath addresses one slot of a scalar list such as taxId.
func ItemPath(field string, index int) Path {
	return Path{Field: field, Index: index}
}

// RowPath addresses a sub-field of one row of a record list.
func RowPath(field string, index int, sub string) Path {
	return Path{Field: field, Index: index, Sub: sub}
}

// ParsePath accepts "surname", "taxId[2]", "inventory[3].quantity" and the
// dotted index form "inventory.3.quantity". It checks syntax only; use
// Resolve to check the path against the form.
func ParsePath(raw string) (Path, error) {
	m := pathRe.FindStringSubmatch(raw)
	if m == nil {
		return Path{}, fmt.Errorf("%w %q", ErrMalformedPath, raw)
	}
	p := Path{Field: m[1], Index: NoIndex, Sub: m[4]}
	idx := m[2]
	if idx == "" {
		idx = m[3]
	}
	if idx != "" {
		n, err := strconv.Atoi(idx)
		if err != nil {
			return Path{}, fmt.Errorf("%w %q: %w", ErrMalformedPath, raw, err)
		}
		p.Index = n
	}
	if p.Sub != "" && p.Index == NoIndex {
		return Path{}, fmt.Errorf("%w %q: sub-field without index", ErrMalformedPath, raw)
	}
	return p, nil
}

// MustParsePath is ParsePath for static paths.
func MustParsePath(raw string) Path {
	p, err := ParsePath(raw)
	if err != nil {
		panic(err)
	}
	return p
}

// IsList reports whether the path addresses a list slot.
func (p Path) IsList() bool {
	return p.Index != NoIndex
}

// String renders the path in bracketed-index form. The result is used both
// as ErrorTree key and as the client field identifier.
func (p Path) String() string {
	if p.Index == NoIndex {
		return p.Field
	}
	s := p.Field + "[" + strconv.Itoa(p.Index) + "]"
	if p.Sub != "" {
		s += "." + p.Sub
	}
	return s
}

// Key identifies the field class of the path: "inventory.quantity" for
// every inventory row, "taxId" for every digit box.
func (p Path) Key() string {
	if p.Sub != "" {
		return p.Field + "." + p.Sub
	}
	return p.Field
}

// MarshalText lets paths serve as JSON strings and map keys.
func (p Path) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a bracketed or dotted path.
func (p *Path) UnmarshalText(b []byte) error {
	parsed, err := ParsePath(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
