package schema

import "strings"

// Descriptor describes the structural shape of a serializable type.
//
// Named kinds (Record, Enum, Fixed) carry a full name "namespace.Name".
// Record descriptors may be cyclic: a field type can point back at an
// enclosing record.
type Descriptor struct {
	Kind    Kind
	Name    string
	Doc     string
	Fields  []*Field
	Symbols []string
	Size    int
	Items   *Descriptor
	Values  *Descriptor
	Members []*Descriptor
}

// Field is one positional field of a record.
type Field struct {
	Name string
	Type *Descriptor
	Doc  string
	// Default is the default value in JSON value-tree form. It is only
	// meaningful when HasDefault is set, since null is a valid default.
	Default    any
	HasDefault bool
}

var primitives = [...]*Descriptor{
	Null:    {Kind: Null},
	Boolean: {Kind: Boolean},
	Byte:    {Kind: Byte},
	Int:     {Kind: Int},
	Long:    {Kind: Long},
	Float:   {Kind: Float},
	Double:  {Kind: Double},
	String:  {Kind: String},
	Bytes:   {Kind: Bytes},
}

// Primitive returns the shared descriptor for a primitive kind.
// It panics for non-primitive kinds.
func Primitive(k Kind) *Descriptor {
	if !k.IsPrimitive() {
		panic("schema: Primitive called with " + k.String())
	}
	return primitives[k]
}

// NewArray returns an array descriptor over items.
func NewArray(items *Descriptor) *Descriptor {
	return &Descriptor{Kind: Array, Items: items}
}

// NewMap returns a map descriptor with string keys and the given values.
func NewMap(values *Descriptor) *Descriptor {
	return &Descriptor{Kind: Map, Values: values}
}

// NewFixed returns a fixed descriptor of size bytes.
func NewFixed(name string, size int) *Descriptor {
	return &Descriptor{Kind: Fixed, Name: name, Size: size}
}

// NewEnum returns an enum descriptor with symbols in the given order.
func NewEnum(name string, symbols ...string) *Descriptor {
	return &Descriptor{Kind: Enum, Name: name, Symbols: symbols}
}

// NewRecord returns a record descriptor. Fields may be assigned later to
// close a recursive reference.
func NewRecord(name string, fields ...*Field) *Descriptor {
	return &Descriptor{Kind: Record, Name: name, Fields: fields}
}

// NewUnion returns a union over members. Member order is the branch index.
func NewUnion(members ...*Descriptor) *Descriptor {
	return &Descriptor{Kind: Union, Members: members}
}

// Option returns the union [null, inner].
func Option(inner *Descriptor) *Descriptor {
	return NewUnion(Primitive(Null), inner)
}

// Either returns the two-member union [left, right].
func Either(left, right *Descriptor) *Descriptor {
	return NewUnion(left, right)
}

// NewField returns a field without a default.
func NewField(name string, t *Descriptor) *Field {
	return &Field{Name: name, Type: t}
}

// WithDefault sets the field's default value and returns the field.
func (f *Field) WithDefault(v any) *Field {
	f.Default = v
	f.HasDefault = true
	return f
}

// Field returns the record field with the given name, or nil.
func (d *Descriptor) Field(name string) *Field {
	for _, f := range d.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Symbol returns the index of sym in an enum, or -1.
func (d *Descriptor) Symbol(sym string) int {
	for i, s := range d.Symbols {
		if s == sym {
			return i
		}
	}
	return -1
}

// IsOption reports whether d is a two-member union whose first member is null.
func (d *Descriptor) IsOption() bool {
	return d.Kind == Union && len(d.Members) == 2 && d.Members[0].Kind == Null
}

// TypeName is the name that identifies d as a union branch in JSON: the
// full name for named types and the Avro type name otherwise.
func (d *Descriptor) TypeName() string {
	if d.Kind.IsNamed() {
		return d.Name
	}
	return d.Kind.AvroName()
}

// ShortName returns the last dot-separated component of a full name.
func ShortName(full string) string {
	if i := strings.LastIndexByte(full, '.'); i >= 0 {
		return full[i+1:]
	}
	return full
}

// Namespace returns everything before the last dot of a full name.
func Namespace(full string) string {
	if i := strings.LastIndexByte(full, '.'); i >= 0 {
		return full[:i]
	}
	return ""
}

// Walk visits d and every descriptor reachable from it once, in depth-first
// order. Recursive references are not revisited.
func Walk(d *Descriptor, visit func(*Descriptor) bool) {
	seen := make(map[*Descriptor]bool)
	var walk func(*Descriptor)
	walk = func(d *Descriptor) {
		if d == nil || seen[d] {
			return
		}
		seen[d] = true
		if !visit(d) {
			return
		}
		switch d.Kind {
		case Array:
			walk(d.Items)
		case Map:
			walk(d.Values)
		case Record:
			for _, f := range d.Fields {
				walk(f.Type)
			}
		case Union:
			for _, m := range d.Members {
				walk(m)
			}
		}
	}
	walk(d)
}
