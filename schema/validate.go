package schema

import (
	"strings"

	"github.com/wippyai/avro-runtime/errors"
)

// Validate checks the structural invariants of d and everything reachable
// from it:
//
//   - names are dot-separated identifiers, and one full name denotes one type
//   - enum symbols are valid identifiers and unique
//   - fixed sizes are non-negative
//   - record field names are unique and defaults fit their field type
//   - unions have no union members and no two members with the same type
//     name (which rules out structurally equal members)
func Validate(d *Descriptor) error {
	v := &validator{names: make(map[string]*Descriptor), done: make(map[*Descriptor]bool)}
	return v.check(d, nil)
}

type validator struct {
	names map[string]*Descriptor
	done  map[*Descriptor]bool
}

func invalid(path []string, detail string, args ...any) error {
	return errors.New(errors.PhaseSchema, errors.KindInvalidInput).
		Path(path...).
		Detail(detail, args...).
		Build()
}

func (v *validator) check(d *Descriptor, path []string) error {
	if d == nil {
		return invalid(path, "nil descriptor")
	}
	if v.done[d] {
		return nil
	}
	v.done[d] = true

	if d.Kind.IsNamed() {
		if !ValidFullName(d.Name) {
			return invalid(path, "invalid %s name %q", d.Kind, d.Name)
		}
		if prev, ok := v.names[d.Name]; ok && prev != d && Canonical(prev) != Canonical(d) {
			return invalid(path, "name %q redefined with a different shape", d.Name)
		}
		v.names[d.Name] = d
	}

	switch d.Kind {
	case Null, Boolean, Byte, Int, Long, Float, Double, String, Bytes:
		return nil

	case Array:
		return v.check(d.Items, sub(path, "[]"))

	case Map:
		return v.check(d.Values, sub(path, "{}"))

	case Fixed:
		if d.Size < 0 {
			return invalid(path, "fixed %s has negative size %d", d.Name, d.Size)
		}
		return nil

	case Enum:
		if len(d.Symbols) == 0 {
			return invalid(path, "enum %s has no symbols", d.Name)
		}
		seen := make(map[string]bool, len(d.Symbols))
		for _, s := range d.Symbols {
			if !validName(s) {
				return invalid(path, "enum %s: invalid symbol %q", d.Name, s)
			}
			if seen[s] {
				return invalid(path, "enum %s: duplicate symbol %q", d.Name, s)
			}
			seen[s] = true
		}
		return nil

	case Record:
		seen := make(map[string]bool, len(d.Fields))
		for _, f := range d.Fields {
			fpath := sub(path, f.Name)
			if !validName(f.Name) {
				return invalid(fpath, "record %s: invalid field name %q", d.Name, f.Name)
			}
			if seen[f.Name] {
				return invalid(fpath, "record %s: duplicate field %q", d.Name, f.Name)
			}
			seen[f.Name] = true
			if err := v.check(f.Type, fpath); err != nil {
				return err
			}
			if f.HasDefault {
				if err := checkDefault(f.Type, f.Default, fpath); err != nil {
					return err
				}
			}
		}
		return nil

	case Union:
		if len(d.Members) == 0 {
			return invalid(path, "union has no members")
		}
		seen := make(map[string]int, len(d.Members))
		for i, m := range d.Members {
			if m == nil {
				return invalid(path, "union member %d is nil", i)
			}
			if m.Kind == Union {
				return invalid(path, "union member %d is itself a union", i)
			}
			name := m.TypeName()
			if j, ok := seen[name]; ok {
				return invalid(path, "union members %d and %d are both %s", j, i, name)
			}
			seen[name] = i
			if err := v.check(m, path); err != nil {
				return err
			}
		}
		return nil
	}
	return invalid(path, "unknown kind %d", d.Kind)
}

// checkDefault verifies the JSON shape of a default value. Union defaults
// must match the first member.
func checkDefault(t *Descriptor, val any, path []string) error {
	bad := func() error {
		return invalid(path, "default %v does not match type %s", val, t.TypeName())
	}
	switch t.Kind {
	case Null:
		if val != nil {
			return bad()
		}
	case Boolean:
		if _, ok := val.(bool); !ok {
			return bad()
		}
	case Byte, Int, Long, Float, Double:
		if !isNumber(val) {
			return bad()
		}
	case String, Bytes, Fixed, Enum:
		s, ok := val.(string)
		if !ok {
			return bad()
		}
		if t.Kind == Enum && t.Symbol(s) < 0 {
			return bad()
		}
	case Array:
		items, ok := val.([]any)
		if !ok {
			return bad()
		}
		for _, it := range items {
			if err := checkDefault(t.Items, it, path); err != nil {
				return err
			}
		}
	case Map:
		m, ok := val.(map[string]any)
		if !ok {
			return bad()
		}
		for _, it := range m {
			if err := checkDefault(t.Values, it, path); err != nil {
				return err
			}
		}
	case Record:
		m, ok := val.(map[string]any)
		if !ok {
			return bad()
		}
		for _, f := range t.Fields {
			fv, present := m[f.Name]
			if !present {
				if f.HasDefault {
					continue
				}
				return invalid(path, "default for record %s lacks field %q", t.Name, f.Name)
			}
			if err := checkDefault(f.Type, fv, sub(path, f.Name)); err != nil {
				return err
			}
		}
	case Union:
		return checkDefault(t.Members[0], val, path)
	}
	return nil
}

func sub(path []string, seg string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}

type number interface {
	Int64() (int64, error)
	Float64() (float64, error)
}

func isNumber(v any) bool {
	switch v.(type) {
	case float64, float32, int, int8, int16, int32, int64, uint8, uint16, uint32, number:
		return true
	}
	return false
}

// ValidFullName reports whether s is a dot-separated sequence of identifiers.
func ValidFullName(s string) bool {
	if s == "" {
		return false
	}
	for _, part := range strings.Split(s, ".") {
		if !validName(part) {
			return false
		}
	}
	return true
}

func validName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
