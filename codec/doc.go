// Package codec derives Avro codecs from Go types and reads and writes
// values with them.
//
// A Registry maps each Go type to exactly one Codec, derived on first use
// and cached for the registry's lifetime:
//
//	r := codec.NewRegistry()
//	data, err := codec.Encode(r, Order{ID: 7, Items: []Item{{SKU: "a"}}})
//	out, err := codec.Decode[Order](r, data)
//
// # Derivation Rules
//
//	Go type                     Schema
//	─────────────────────────────────────────────────────────
//	Null                        null
//	bool                        boolean
//	int8                        byte (an int on the wire)
//	int16 uint8 uint16 int32    int
//	uint32 int int64            long
//	float32 / float64           float / double
//	string                      string
//	[]byte                      bytes
//	[N]byte                     fixed of size N
//	[]T, [N]T                   array of T
//	map[K]struct{}              array of K, sorted by encoded bytes
//	map[string]T                map of T
//	*T                          union [null, T]
//	Either[L, R]                union [L, R]
//	struct                      record of its exported fields
//	interface                   union of registered members
//	EnumSymbols, RegisterEnum   enum
//	Elements() []E              array of E (custom collection)
//
// uint64, uint, uintptr, complex numbers, channels and functions have no
// schema and fail with an unsupported type error.
//
// # Records
//
// Fields follow declaration order. Struct tags adjust them:
//
//	avro:"name"     field name in the schema
//	avro:"-"        field is skipped
//	doc:"text"      field documentation
//	default:"json"  field default as JSON text
//
// Record names come from RegisterName, a SchemaName method, or the package
// and type name. Recursive types are allowed when the cycle passes through
// a record; type L []L is rejected.
//
// # Unions
//
// RegisterUnion declares a closed union with members in priority order.
// Without it an interface is an open union over every type passed to
// RegisterType that implements it, ordered by full schema name. A value is
// written as the first member it matches, where a value also matches any
// member of the same kind it converts to. Wrap it in Union to pick a branch
// explicitly.
//
// Decoding charges one nesting level per record against the source's
// depth limit (wire.DefaultMaxDepth), so corrupt input cannot recurse
// without bound.
//
// # Construction
//
// Decoded values are rebuilt by one of three strategies, fixed at
// derivation time: a direct constructor (RegisterConstructor, or plain
// field assignment), a variadic factory (RegisterFactory, or slice
// creation), or an incremental builder ((*T).Append plus an optional
// (*T).Finish() error).
//
// # Schema-Driven Codecs
//
// CodecForSchema returns a codec for a schema with no Go type behind it.
// Its values are plain Go data: map[string]any, []any, strings, numbers and
// byte slices.
package codec
