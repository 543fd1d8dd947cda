package schema

import (
	"bytes"
	"io"

	"github.com/segmentio/encoding/json"
	"github.com/tidwall/jsonc"

	"github.com/wippyai/avro-runtime/errors"
)

// Parse reads schema text. Comments and trailing commas are accepted.
// Named types may be referenced by full name or, inside a namespace, by
// short name once they have been defined. The result is validated.
func Parse(data []byte) (*Descriptor, error) {
	tree, err := DecodeJSON(jsonc.ToJSON(data))
	if err != nil {
		return nil, errors.New(errors.PhaseSchema, errors.KindInvalidInput).
			Cause(err).
			Detail("schema text is not valid JSON").
			Build()
	}
	p := &parser{names: make(map[string]*Descriptor)}
	d, err := p.parse(tree, "", nil)
	if err != nil {
		return nil, err
	}
	if err := Validate(d); err != nil {
		return nil, err
	}
	return d, nil
}

// MustParse is like Parse but panics on error.
func MustParse(text string) *Descriptor {
	d, err := Parse([]byte(text))
	if err != nil {
		panic(err)
	}
	return d
}

// DecodeJSON decodes JSON text into a value tree. Integral numbers become
// int64 and other numbers float64.
func DecodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, errors.InvalidInput(errors.PhaseSchema, "unexpected data after JSON value")
	}
	return normalize(v), nil
}

func normalize(v any) any {
	switch x := v.(type) {
	case number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
	case []any:
		for i := range x {
			x[i] = normalize(x[i])
		}
	case map[string]any:
		for k := range x {
			x[k] = normalize(x[k])
		}
	}
	return v
}

type parser struct {
	names map[string]*Descriptor
}

func (p *parser) fail(path []string, detail string, args ...any) error {
	return invalid(path, detail, args...)
}

func (p *parser) parse(node any, ns string, path []string) (*Descriptor, error) {
	switch n := node.(type) {
	case string:
		return p.reference(n, ns, path)
	case []any:
		members := make([]*Descriptor, 0, len(n))
		for _, m := range n {
			d, err := p.parse(m, ns, path)
			if err != nil {
				return nil, err
			}
			members = append(members, d)
		}
		return NewUnion(members...), nil
	case map[string]any:
		return p.object(n, ns, path)
	}
	return nil, p.fail(path, "unexpected schema node %v", node)
}

func (p *parser) reference(name, ns string, path []string) (*Descriptor, error) {
	if k, ok := KindFromName(name); ok {
		return Primitive(k), nil
	}
	if ns != "" {
		if d, ok := p.names[ns+"."+name]; ok {
			return d, nil
		}
	}
	if d, ok := p.names[name]; ok {
		return d, nil
	}
	return nil, errors.New(errors.PhaseSchema, errors.KindNotFound).
		Path(path...).
		Detail("unknown type %q", name).
		Build()
}

func (p *parser) object(n map[string]any, ns string, path []string) (*Descriptor, error) {
	typ, ok := n["type"]
	if !ok {
		return nil, p.fail(path, "schema object has no type")
	}
	name, isName := typ.(string)
	if !isName {
		return p.parse(typ, ns, path)
	}

	switch name {
	case "array":
		items, err := p.parse(n["items"], ns, sub(path, "[]"))
		if err != nil {
			return nil, err
		}
		return NewArray(items), nil

	case "map":
		values, err := p.parse(n["values"], ns, sub(path, "{}"))
		if err != nil {
			return nil, err
		}
		return NewMap(values), nil

	case "fixed", "enum", "record", "error":
		return p.named(name, n, ns, path)
	}

	if k, ok := KindFromName(name); ok {
		if k == Int && n["logicalType"] == "byte" {
			return Primitive(Byte), nil
		}
		return Primitive(k), nil
	}
	return p.reference(name, ns, path)
}

func (p *parser) named(typ string, n map[string]any, ns string, path []string) (*Descriptor, error) {
	short, _ := n["name"].(string)
	if short == "" {
		return nil, p.fail(path, "%s has no name", typ)
	}
	full := short
	if Namespace(short) == "" {
		if explicit, ok := n["namespace"].(string); ok {
			ns = explicit
		}
		if ns != "" {
			full = ns + "." + short
		}
	} else {
		ns = Namespace(short)
	}
	if _, dup := p.names[full]; dup {
		return nil, p.fail(path, "type %q defined twice", full)
	}
	doc, _ := n["doc"].(string)

	switch typ {
	case "fixed":
		size, ok := n["size"].(int64)
		if !ok {
			return nil, p.fail(path, "fixed %s needs an integer size", full)
		}
		d := NewFixed(full, int(size))
		d.Doc = doc
		p.names[full] = d
		return d, nil

	case "enum":
		raw, _ := n["symbols"].([]any)
		symbols := make([]string, 0, len(raw))
		for _, s := range raw {
			sym, ok := s.(string)
			if !ok {
				return nil, p.fail(path, "enum %s has a non-string symbol", full)
			}
			symbols = append(symbols, sym)
		}
		d := NewEnum(full, symbols...)
		d.Doc = doc
		p.names[full] = d
		return d, nil
	}

	// Register before parsing fields so the record can refer to itself.
	d := NewRecord(full)
	d.Doc = doc
	p.names[full] = d
	raw, ok := n["fields"].([]any)
	if !ok {
		return nil, p.fail(path, "record %s needs a fields array", full)
	}
	for _, rf := range raw {
		fm, ok := rf.(map[string]any)
		if !ok {
			return nil, p.fail(path, "record %s has a malformed field", full)
		}
		fname, _ := fm["name"].(string)
		ft, err := p.parse(fm["type"], ns, sub(path, fname))
		if err != nil {
			return nil, err
		}
		f := NewField(fname, ft)
		f.Doc, _ = fm["doc"].(string)
		if def, ok := fm["default"]; ok {
			f.WithDefault(def)
		}
		d.Fields = append(d.Fields, f)
	}
	return d, nil
}
