package codec

import (
	"reflect"

	"github.com/wippyai/avro-runtime/schema"
)

var genericTypes = [...]reflect.Type{
	schema.Null:    anyType,
	schema.Boolean: reflect.TypeOf(false),
	schema.Byte:    reflect.TypeOf(int8(0)),
	schema.Int:     reflect.TypeOf(int32(0)),
	schema.Long:    reflect.TypeOf(int64(0)),
	schema.Float:   reflect.TypeOf(float32(0)),
	schema.Double:  reflect.TypeOf(float64(0)),
	schema.String:  reflect.TypeOf(""),
	schema.Bytes:   bytesType,
}

// genericBuilder builds schema-driven codecs over plain Go data. A
// descriptor shared within the schema, recursive records included, maps to
// one codec.
type genericBuilder struct {
	built map[*schema.Descriptor]Codec
}

// build expects a validated descriptor.
func (g *genericBuilder) build(d *schema.Descriptor) Codec {
	if c, ok := g.built[d]; ok {
		return c
	}
	switch d.Kind {
	case schema.Array:
		c := &arrayCodec{desc: d, typ: anySliceType, source: fromSlice, build: sliceFactory{}}
		g.built[d] = c
		c.items = g.build(d.Items)
		return c
	case schema.Map:
		c := &mapCodec{desc: d, typ: anyMapType}
		g.built[d] = c
		c.values = g.build(d.Values)
		return c
	case schema.Fixed:
		c := &fixedCodec{desc: d, typ: bytesType}
		g.built[d] = c
		return c
	case schema.Enum:
		c := &enumCodec{desc: d, typ: genericTypes[schema.String]}
		g.built[d] = c
		return c
	case schema.Record:
		c := &recordCodec{desc: d, typ: anyMapType, isMap: true}
		g.built[d] = c
		names := make([]string, len(d.Fields))
		c.fields = make([]recordField, len(d.Fields))
		for i, f := range d.Fields {
			names[i] = f.Name
			c.fields[i] = recordField{name: f.Name, codec: g.build(f.Type), desc: f}
		}
		c.build = mapRecordBuilder{names: names}
		return c
	case schema.Union:
		c := &unionCodec{desc: d, typ: anyType, generic: true}
		g.built[d] = c
		c.members = make([]unionMember, len(d.Members))
		for i, m := range d.Members {
			mc := g.build(m)
			c.members[i] = unionMember{host: mc.Type(), codec: mc, null: m.Kind == schema.Null}
		}
		return c
	}
	c := &primitiveCodec{desc: d, typ: genericTypes[d.Kind]}
	g.built[d] = c
	return c
}
