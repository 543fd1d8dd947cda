package schema

import (
	"strconv"
	"strings"

	"github.com/segmentio/encoding/json"
)

// Canonical returns the Parsing Canonical Form of d: full names, no
// whitespace, only the attributes that affect the wire format, and each
// named type spelled out once and referenced by name afterwards.
func Canonical(d *Descriptor) string {
	var b strings.Builder
	r := renderer{b: &b, seen: make(map[string]bool), canonical: true}
	r.write(d)
	return b.String()
}

// String returns the full JSON schema text of d, including docs, defaults
// and the byte logical type.
func (d *Descriptor) String() string {
	var b strings.Builder
	r := renderer{b: &b, seen: make(map[string]bool)}
	r.write(d)
	return b.String()
}

// MarshalJSON renders d as schema text.
func (d *Descriptor) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON parses schema text into d.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}

// Key returns the text that identifies d among cached schema-driven codecs.
// Descriptors with equal keys have the same wire format and the same JSON
// defaults.
func Key(d *Descriptor) string {
	return d.String()
}

// Equal reports whether a and b are structurally identical.
func Equal(a, b *Descriptor) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return Canonical(a) == Canonical(b)
}

type renderer struct {
	b         *strings.Builder
	seen      map[string]bool
	canonical bool
}

func (r *renderer) str(s string) {
	if isPlain(s) {
		r.b.WriteByte('"')
		r.b.WriteString(s)
		r.b.WriteByte('"')
		return
	}
	data, err := json.Marshal(s)
	if err != nil {
		r.b.WriteString(strconv.Quote(s))
		return
	}
	r.b.Write(data)
}

func isPlain(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < 0x20 || c >= 0x7f || c == '"' || c == '\\' || c == '<' || c == '>' || c == '&' {
			return false
		}
	}
	return true
}

func (r *renderer) key(k string) {
	r.str(k)
	r.b.WriteByte(':')
}

func (r *renderer) write(d *Descriptor) {
	if d == nil {
		r.b.WriteString("null")
		return
	}
	if d.Kind.IsNamed() {
		if r.seen[d.Name] {
			r.str(d.Name)
			return
		}
		r.seen[d.Name] = true
	}

	switch d.Kind {
	case Byte:
		if r.canonical {
			r.str("int")
			return
		}
		r.b.WriteString(`{"type":"int","logicalType":"byte"}`)

	case Null, Boolean, Int, Long, Float, Double, String, Bytes:
		r.str(d.Kind.String())

	case Array:
		r.b.WriteString(`{"type":"array","items":`)
		r.write(d.Items)
		r.b.WriteByte('}')

	case Map:
		r.b.WriteString(`{"type":"map","values":`)
		r.write(d.Values)
		r.b.WriteByte('}')

	case Fixed:
		r.named(d)
		r.b.WriteString(`,"size":`)
		r.b.WriteString(strconv.Itoa(d.Size))
		r.b.WriteByte('}')

	case Enum:
		r.named(d)
		r.b.WriteString(`,"symbols":[`)
		for i, s := range d.Symbols {
			if i > 0 {
				r.b.WriteByte(',')
			}
			r.str(s)
		}
		r.b.WriteString("]}")

	case Record:
		r.named(d)
		r.b.WriteString(`,"fields":[`)
		for i, f := range d.Fields {
			if i > 0 {
				r.b.WriteByte(',')
			}
			r.field(f)
		}
		r.b.WriteString("]}")

	case Union:
		r.b.WriteByte('[')
		for i, m := range d.Members {
			if i > 0 {
				r.b.WriteByte(',')
			}
			r.write(m)
		}
		r.b.WriteByte(']')
	}
}

// named opens the object of a named type. Canonical form orders name
// before type.
func (r *renderer) named(d *Descriptor) {
	r.b.WriteByte('{')
	if r.canonical {
		r.key("name")
		r.str(d.Name)
		r.b.WriteByte(',')
		r.key("type")
		r.str(d.Kind.String())
		return
	}
	r.key("type")
	r.str(d.Kind.String())
	r.b.WriteByte(',')
	r.key("name")
	r.str(d.Name)
	if d.Doc != "" {
		r.b.WriteByte(',')
		r.key("doc")
		r.str(d.Doc)
	}
}

func (r *renderer) field(f *Field) {
	r.b.WriteByte('{')
	r.key("name")
	r.str(f.Name)
	r.b.WriteByte(',')
	r.key("type")
	r.write(f.Type)
	if r.canonical {
		r.b.WriteByte('}')
		return
	}
	if f.Doc != "" {
		r.b.WriteByte(',')
		r.key("doc")
		r.str(f.Doc)
	}
	if f.HasDefault {
		r.b.WriteByte(',')
		r.key("default")
		data, err := json.Marshal(f.Default)
		if err != nil {
			data = []byte("null")
		}
		r.b.Write(data)
	}
	r.b.WriteByte('}')
}
