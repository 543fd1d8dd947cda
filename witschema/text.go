package witschema

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/avro-runtime/schema"
)

var keywords = map[string]bool{
	"as": true, "async": true, "bool": true, "borrow": true, "char": true,
	"constructor": true, "enum": true, "export": true, "f32": true, "f64": true,
	"flags": true, "from": true, "func": true, "future": true, "import": true,
	"include": true, "interface": true, "list": true, "option": true, "own": true,
	"package": true, "record": true, "resource": true, "result": true, "s16": true,
	"s32": true, "s64": true, "s8": true, "static": true, "stream": true,
	"string": true, "tuple": true, "type": true, "u16": true, "u32": true,
	"u64": true, "u8": true, "use": true, "variant": true, "with": true, "world": true,
}

func escape(id string) string {
	if keywords[id] {
		return "%" + id
	}
	return id
}

// TypeString renders a type reference as it appears in WIT source.
func TypeString(t wit.Type) string {
	switch v := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		if v.Name != nil {
			return escape(*v.Name)
		}
		switch k := v.Kind.(type) {
		case *wit.List:
			return "list<" + TypeString(k.Type) + ">"
		case *wit.Option:
			return "option<" + TypeString(k.Type) + ">"
		case *wit.Tuple:
			parts := make([]string, len(k.Types))
			for i, et := range k.Types {
				parts[i] = TypeString(et)
			}
			return "tuple<" + strings.Join(parts, ", ") + ">"
		case *wit.Variant:
			parts := make([]string, len(k.Cases))
			for i, c := range k.Cases {
				parts[i] = caseString(c)
			}
			return "variant { " + strings.Join(parts, ", ") + " }"
		}
		return "typedef"
	default:
		return fmt.Sprintf("%T", t)
	}
}

func caseString(c wit.Case) string {
	if c.Type == nil {
		return escape(c.Name)
	}
	return escape(c.Name) + "(" + TypeString(c.Type) + ")"
}

// Render returns WIT source for d: one definition per named type it
// reaches, followed by a type alias for d itself when d is not named.
// Anonymous variants are hoisted into named definitions since WIT only
// allows them at the top level.
func Render(d *schema.Descriptor) (string, error) {
	c := NewConverter()
	root, err := c.Convert(d)
	if err != nil {
		return "", err
	}
	r := &renderer{}
	for _, td := range c.Definitions() {
		r.hoist(td)
	}
	if td, ok := root.(*wit.TypeDef); !ok || td.Name == nil {
		name := Ident(d.TypeName())
		if d.Kind == schema.Union {
			name = "value"
		}
		alias := &wit.TypeDef{Name: &name, Kind: root}
		r.hoist(alias)
	}
	return r.b.String(), nil
}

type renderer struct {
	b      strings.Builder
	hoists int
}

// hoist names every anonymous variant reachable from td, writes their
// definitions, then writes td.
func (r *renderer) hoist(td *wit.TypeDef) {
	switch k := td.Kind.(type) {
	case *wit.Record:
		for i := range k.Fields {
			k.Fields[i].Type = r.name(k.Fields[i].Type)
		}
	case *wit.Variant:
		for i := range k.Cases {
			if k.Cases[i].Type != nil {
				k.Cases[i].Type = r.name(k.Cases[i].Type)
			}
		}
	case wit.Type:
		if inner, ok := k.(*wit.TypeDef); ok && inner.Name == nil {
			if _, isVariant := inner.Kind.(*wit.Variant); isVariant {
				r.hoist(&wit.TypeDef{Name: td.Name, Kind: inner.Kind})
				return
			}
			td.Kind = r.name(inner)
		}
	}
	r.write(td)
}

// name replaces anonymous variants inside t by named definitions.
func (r *renderer) name(t wit.Type) wit.Type {
	td, ok := t.(*wit.TypeDef)
	if !ok || td.Name != nil {
		return t
	}
	switch k := td.Kind.(type) {
	case *wit.Variant:
		r.hoists++
		name := fmt.Sprintf("union%d", r.hoists)
		named := &wit.TypeDef{Name: &name, Kind: k}
		r.hoist(named)
		return named
	case *wit.List:
		return &wit.TypeDef{Kind: &wit.List{Type: r.name(k.Type)}}
	case *wit.Option:
		return &wit.TypeDef{Kind: &wit.Option{Type: r.name(k.Type)}}
	case *wit.Tuple:
		types := make([]wit.Type, len(k.Types))
		for i, et := range k.Types {
			types[i] = r.name(et)
		}
		return &wit.TypeDef{Kind: &wit.Tuple{Types: types}}
	}
	return t
}

func (r *renderer) write(td *wit.TypeDef) {
	name := escape(*td.Name)
	switch k := td.Kind.(type) {
	case *wit.Record:
		fmt.Fprintf(&r.b, "record %s {\n", name)
		for _, f := range k.Fields {
			fmt.Fprintf(&r.b, "    %s: %s,\n", escape(f.Name), TypeString(f.Type))
		}
		r.b.WriteString("}\n\n")
	case *wit.Enum:
		fmt.Fprintf(&r.b, "enum %s {\n", name)
		for _, c := range k.Cases {
			fmt.Fprintf(&r.b, "    %s,\n", escape(c.Name))
		}
		r.b.WriteString("}\n\n")
	case *wit.Variant:
		fmt.Fprintf(&r.b, "variant %s {\n", name)
		for _, c := range k.Cases {
			fmt.Fprintf(&r.b, "    %s,\n", caseString(c))
		}
		r.b.WriteString("}\n\n")
	case *wit.List:
		fmt.Fprintf(&r.b, "type %s = %s;\n\n", name, TypeString(&wit.TypeDef{Kind: k}))
	case wit.Type:
		fmt.Fprintf(&r.b, "type %s = %s;\n\n", name, TypeString(k))
	}
}
