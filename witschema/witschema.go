// Package witschema converts schema descriptors into WebAssembly Interface
// Type definitions.
//
// Mapping:
//
//	null          case without payload (union member only)
//	boolean       bool
//	int, byte     s32, s8
//	long          s64
//	float, double f32, f64
//	string        string
//	bytes, fixed  list<u8>
//	array         list<T>
//	map           list<tuple<string, T>>
//	enum          enum
//	record        record
//	["null", T]   option<T>
//	union         variant, one case per member
//
// WIT has no recursive types, so recursive records are rejected.
package witschema

import (
	"strings"
	"unicode"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/avro-runtime/errors"
	"github.com/wippyai/avro-runtime/schema"
)

// Converter turns descriptors into WIT types. Named descriptors become
// named type definitions, shared between all conversions of one Converter.
type Converter struct {
	defs    map[string]*wit.TypeDef
	order   []*wit.TypeDef
	pending map[string]bool
}

// NewConverter creates an empty Converter.
func NewConverter() *Converter {
	return &Converter{
		defs:    make(map[string]*wit.TypeDef),
		pending: make(map[string]bool),
	}
}

// ToWIT converts d with a fresh Converter.
func ToWIT(d *schema.Descriptor) (wit.Type, error) {
	return NewConverter().Convert(d)
}

// Convert returns the WIT type for d.
func (c *Converter) Convert(d *schema.Descriptor) (wit.Type, error) {
	return c.convert(d, nil)
}

// Definitions returns the named type definitions created so far, each
// after the definitions it refers to.
func (c *Converter) Definitions() []*wit.TypeDef {
	return c.order
}

func unsupported(d *schema.Descriptor, path []string, detail string, args ...any) error {
	return errors.New(errors.PhaseSchema, errors.KindUnsupportedType).
		Path(path...).
		Schema(d.TypeName()).
		Detail(detail, args...).
		Build()
}

func sub(path []string, seg string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}

func (c *Converter) convert(d *schema.Descriptor, path []string) (wit.Type, error) {
	switch d.Kind {
	case schema.Null:
		return nil, unsupported(d, path, "null has no WIT equivalent outside a union")
	case schema.Boolean:
		return wit.Bool{}, nil
	case schema.Byte:
		return wit.S8{}, nil
	case schema.Int:
		return wit.S32{}, nil
	case schema.Long:
		return wit.S64{}, nil
	case schema.Float:
		return wit.F32{}, nil
	case schema.Double:
		return wit.F64{}, nil
	case schema.String:
		return wit.String{}, nil
	case schema.Bytes:
		return &wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}}, nil
	case schema.Array:
		items, err := c.convert(d.Items, sub(path, "[]"))
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.List{Type: items}}, nil
	case schema.Map:
		values, err := c.convert(d.Values, sub(path, "{}"))
		if err != nil {
			return nil, err
		}
		entry := &wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{wit.String{}, values}}}
		return &wit.TypeDef{Kind: &wit.List{Type: entry}}, nil
	case schema.Union:
		return c.union(d, path)
	case schema.Fixed, schema.Enum, schema.Record:
		return c.named(d, path)
	default:
		return nil, unsupported(d, path, "unknown kind %d", d.Kind)
	}
}

func (c *Converter) named(d *schema.Descriptor, path []string) (wit.Type, error) {
	if td, ok := c.defs[d.Name]; ok {
		return td, nil
	}
	if c.pending[d.Name] {
		return nil, unsupported(d, path, "recursive type %s cannot be expressed in WIT", d.Name)
	}
	c.pending[d.Name] = true
	defer delete(c.pending, d.Name)

	name := Ident(schema.ShortName(d.Name))
	td := &wit.TypeDef{Name: &name}
	switch d.Kind {
	case schema.Fixed:
		td.Kind = &wit.List{Type: wit.U8{}}
	case schema.Enum:
		cases := make([]wit.EnumCase, len(d.Symbols))
		for i, sym := range d.Symbols {
			cases[i] = wit.EnumCase{Name: Ident(sym)}
		}
		td.Kind = &wit.Enum{Cases: cases}
	case schema.Record:
		fields := make([]wit.Field, len(d.Fields))
		for i, f := range d.Fields {
			ft, err := c.convert(f.Type, sub(path, f.Name))
			if err != nil {
				return nil, err
			}
			fields[i] = wit.Field{Name: Ident(f.Name), Type: ft}
		}
		td.Kind = &wit.Record{Fields: fields}
	}
	c.defs[d.Name] = td
	c.order = append(c.order, td)
	return td, nil
}

func (c *Converter) union(d *schema.Descriptor, path []string) (wit.Type, error) {
	if d.IsOption() {
		inner, err := c.convert(d.Members[1], sub(path, d.Members[1].TypeName()))
		if err != nil {
			return nil, err
		}
		return &wit.TypeDef{Kind: &wit.Option{Type: inner}}, nil
	}
	cases := make([]wit.Case, len(d.Members))
	for i, m := range d.Members {
		cases[i].Name = Ident(schema.ShortName(m.TypeName()))
		if m.Kind == schema.Null {
			continue
		}
		mt, err := c.convert(m, sub(path, m.TypeName()))
		if err != nil {
			return nil, err
		}
		cases[i].Type = mt
	}
	return &wit.TypeDef{Kind: &wit.Variant{Cases: cases}}, nil
}

// Ident converts a name to a WIT identifier: lower-case words joined by
// hyphens, each word starting with a letter.
//
//	HTTPServer -> http-server
//	user_id    -> user-id
//	v2         -> v2
func Ident(s string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	rs := []rune(s)
	for i, r := range rs {
		switch {
		case !unicode.IsLetter(r) && !unicode.IsDigit(r):
			flush()
			continue
		case unicode.IsUpper(r) && len(cur) > 0:
			prev := rs[i-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, unicode.ToLower(r))
	}
	flush()
	for i, w := range words {
		if w[0] >= '0' && w[0] <= '9' {
			if i == 0 {
				words[i] = "x" + w
			} else {
				// digits join the previous word
				words[i-1] += w
				words[i] = ""
			}
		}
	}
	out := words[:0]
	for _, w := range words {
		if w != "" {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		return "x"
	}
	return strings.Join(out, "-")
}
