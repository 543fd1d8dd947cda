// Package schema defines the descriptor model that drives encoding.
//
// A Descriptor is the in-memory form of an Avro schema. Descriptors are
// built by hand with the constructors in this package, derived from Go
// types by the codec package, or parsed from schema text:
//
//	point := schema.NewRecord("geo.Point",
//	    schema.NewField("x", schema.Primitive(schema.Double)),
//	    schema.NewField("y", schema.Primitive(schema.Double)).WithDefault(0.0),
//	)
//	d, err := schema.Parse([]byte(`{"type":"array","items":"long"}`))
//
// Two descriptors are the same type when their Parsing Canonical Forms are
// equal (see Canonical and Equal). Named types appear once in the canonical
// form and by name afterwards, so recursive records have finite text.
//
// Byte is a distinct kind in memory but travels as an Avro int; schema text
// marks it with "logicalType":"byte" and the canonical form drops the marker.
package schema
