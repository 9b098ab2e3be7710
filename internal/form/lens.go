package form

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindBool
	kindItems
	kindRows
)

// fieldSpec is the compiled accessor for one FormState field.
type fieldSpec struct {
	name   string
	kind   fieldKind
	index  int
	length int
	subs   []string
	subIdx map[string]int
}

var fieldSpecs, fieldOrder = compileFields()

// compileFields walks FormState once and records an accessor per json name.
func compileFields() (map[string]fieldSpec, []string) {
	t := reflect.TypeOf(FormState{})
	specs := make(map[string]fieldSpec, t.NumField())
	order := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := jsonName(f)
		spec := fieldSpec{name: name, index: i}
		switch f.Type.Kind() {
		case reflect.String:
			spec.kind = kindString
		case reflect.Bool:
			spec.kind = kindBool
		case reflect.Array:
			spec.length = f.Type.Len()
			elem := f.Type.Elem()
			if elem.Kind() == reflect.String {
				spec.kind = kindItems
				break
			}
			spec.kind = kindRows
			spec.subIdx = make(map[string]int, elem.NumField())
			for j := 0; j < elem.NumField(); j++ {
				sub := jsonName(elem.Field(j))
				spec.subs = append(spec.subs, sub)
				spec.subIdx[sub] = j
			}
		default:
			panic(fmt.Sprintf("form: unsupported field type %s for %s", f.Type, name))
		}
		specs[name] = spec
		order = append(order, name)
	}
	return specs, order
}

func jsonName(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name
	}
	return f.Name
}

// Resolve checks that p addresses an existing field, slot and sub-field.
func Resolve(p Path) error {
	_, err := lookup(p)
	return err
}

func lookup(p Path) (fieldSpec, error) {
	spec, ok := fieldSpecs[p.Field]
	if !ok {
		return fieldSpec{}, fmt.Errorf("%w: %s", ErrUnknownField, p.Field)
	}
	switch spec.kind {
	case kindString, kindBool:
		if p.IsList() || p.Sub != "" {
			return fieldSpec{}, fmt.Errorf("%w: %s is not a list", ErrUnknownField, p)
		}
	case kindItems:
		if p.Sub != "" {
			return fieldSpec{}, fmt.Errorf("%w: %s has no sub-fields", ErrUnknownField, p)
		}
		fallthrough
	case kindRows:
		if p.Index < 0 || p.Index >= spec.length {
			return fieldSpec{}, fmt.Errorf("%w: %s (length %d)", ErrIndexOutOfRange, p, spec.length)
		}
		if spec.kind == kindRows {
			if _, ok := spec.subIdx[p.Sub]; !ok {
				return fieldSpec{}, fmt.Errorf("%w: %s", ErrUnknownField, p)
			}
		}
	}
	return spec, nil
}

func (spec fieldSpec) value(s *FormState, p Path) reflect.Value {
	v := reflect.ValueOf(s).Elem().Field(spec.index)
	switch spec.kind {
	case kindItems:
		return v.Index(p.Index)
	case kindRows:
		return v.Index(p.Index).Field(spec.subIdx[p.Sub])
	}
	return v
}

// Get reads the value at p. Booleans are rendered as "true" or "false".
func Get(s *FormState, p Path) (string, error) {
	spec, err := lookup(p)
	if err != nil {
		return "", err
	}
	v := spec.value(s, p)
	if spec.kind == kindBool {
		return strconv.FormatBool(v.Bool()), nil
	}
	return v.String(), nil
}

// Set writes value at p without any normalization.
func Set(s *FormState, p Path, value string) error {
	spec, err := lookup(p)
	if err != nil {
		return err
	}
	v := spec.value(s, p)
	if spec.kind == kindBool {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("field %s expects a boolean: %w", p, err)
		}
		v.SetBool(b)
		return nil
	}
	v.SetString(value)
	return nil
}

// IsBool reports whether the named field holds a boolean.
func IsBool(field string) bool {
	spec, ok := fieldSpecs[field]
	return ok && spec.kind == kindBool
}

// ListLength returns the fixed length of a list field, or 0 for scalars.
func ListLength(field string) int {
	return fieldSpecs[field].length
}

// Expand lists every addressable path of field: one path for a scalar, one
// per slot for a digit list, and row-major slot/sub-field paths for a
// record list.
func Expand(field string) []Path {
	spec, ok := fieldSpecs[field]
	if !ok {
		return nil
	}
	switch spec.kind {
	case kindItems:
		out := make([]Path, 0, spec.length)
		for i := 0; i < spec.length; i++ {
			out = append(out, ItemPath(field, i))
		}
		return out
	case kindRows:
		out := make([]Path, 0, spec.length*len(spec.subs))
		for i := 0; i < spec.length; i++ {
			for _, sub := range spec.subs {
				out = append(out, RowPath(field, i, sub))
			}
		}
		return out
	}
	return []Path{FieldPath(field)}
}

// Fields returns every field name in declaration order.
func Fields() []string {
	return append([]string(nil), fieldOrder...)
}
