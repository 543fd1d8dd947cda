package codec

import (
	"reflect"

	"github.com/segmentio/encoding/json"

	"github.com/wippyai/avro-runtime/errors"
	"github.com/wippyai/avro-runtime/schema"
	"github.com/wippyai/avro-runtime/wire"
)

// Codec reads and writes values of one Go type in the shape of one schema.
//
// Values passed to Write and ToJSON must have type Type(), a type
// convertible to it, or an interface holding one. Read and FromJSON always
// return a value of type Type(). Codecs are immutable once returned by a
// Registry and safe for concurrent use.
type Codec interface {
	Schema() *schema.Descriptor
	Type() reflect.Type
	Write(w wire.Sink, v reflect.Value) error
	Read(r wire.Source) (reflect.Value, error)
	ToJSON(v reflect.Value) (any, error)
	FromJSON(j any) (reflect.Value, error)
}

// Null is the Go type of the null schema. It may be listed as a union
// member, where a nil interface value selects it.
type Null struct{}

// Union is a schema-driven union value with an explicit branch index.
// Schema-driven codecs also accept bare values and pick the first member
// whose shape fits.
type Union struct {
	Index int
	Value any
}

// SchemaNamer overrides the derived full name of a record, enum or fixed type.
type SchemaNamer interface {
	SchemaName() string
}

// EnumSymbols marks an integer or string type as an enumeration. Integer
// values are symbol indexes; string values are the symbols themselves.
type EnumSymbols interface {
	EnumSymbols() []string
}

// FieldDefaulter supplies default values for record fields, keyed by field
// name. Each thunk is invoked once when the codec is derived.
type FieldDefaulter interface {
	FieldDefaults() map[string]func() any
}

var (
	anyType      = reflect.TypeOf((*any)(nil)).Elem()
	errorType    = reflect.TypeOf((*error)(nil)).Elem()
	nullType     = reflect.TypeOf(Null{})
	unionType    = reflect.TypeOf(Union{})
	bytesType    = reflect.TypeOf([]byte(nil))
	anySliceType = reflect.TypeOf([]any(nil))
	anyMapType   = reflect.TypeOf(map[string]any(nil))

	namerType     = reflect.TypeOf((*SchemaNamer)(nil)).Elem()
	symbolsType   = reflect.TypeOf((*EnumSymbols)(nil)).Elem()
	defaulterType = reflect.TypeOf((*FieldDefaulter)(nil)).Elem()
	eitherType    = reflect.TypeOf((*eitherValue)(nil)).Elem()
)

// TypeOf returns the reflect.Type of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// CodecOf returns the codec for T.
func CodecOf[T any](r *Registry) (Codec, error) {
	return r.CodecFor(TypeOf[T]())
}

// Encode writes v in binary form. Use Encode rather than Registry.Marshal
// for interface types, whose codec depends on the static type.
func Encode[T any](r *Registry, v T) ([]byte, error) {
	c, err := CodecOf[T](r)
	if err != nil {
		return nil, err
	}
	w := wire.NewWriter()
	if err := c.Write(w, reflect.ValueOf(&v).Elem()); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Decode reads a T from data. All of data must be consumed.
func Decode[T any](r *Registry, data []byte) (T, error) {
	var zero T
	c, err := CodecOf[T](r)
	if err != nil {
		return zero, err
	}
	rv, err := readAll(c, data)
	if err != nil {
		return zero, err
	}
	out, _ := rv.Interface().(T)
	return out, nil
}

// EncodeJSON writes v as Avro JSON text.
func EncodeJSON[T any](r *Registry, v T) ([]byte, error) {
	c, err := CodecOf[T](r)
	if err != nil {
		return nil, err
	}
	return marshalJSON(c, reflect.ValueOf(&v).Elem())
}

// DecodeJSON reads a T from Avro JSON text.
func DecodeJSON[T any](r *Registry, data []byte) (T, error) {
	var zero T
	c, err := CodecOf[T](r)
	if err != nil {
		return zero, err
	}
	rv, err := unmarshalJSON(c, data)
	if err != nil {
		return zero, err
	}
	out, _ := rv.Interface().(T)
	return out, nil
}

// Marshal writes v in binary form using the codec of v's dynamic type.
func (r *Registry) Marshal(v any) ([]byte, error) {
	if v == nil {
		return nil, errors.InvalidInput(errors.PhaseEncode, "cannot marshal untyped nil")
	}
	c, err := r.CodecFor(reflect.TypeOf(v))
	if err != nil {
		return nil, err
	}
	w := wire.NewWriter()
	if err := c.Write(w, reflect.ValueOf(v)); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Unmarshal decodes data into the value ptr points to. Trailing bytes are
// an error.
func (r *Registry) Unmarshal(data []byte, ptr any) error {
	target, err := pointerTarget(ptr)
	if err != nil {
		return err
	}
	c, err := r.CodecFor(target.Type())
	if err != nil {
		return err
	}
	rv, err := readAll(c, data)
	if err != nil {
		return err
	}
	target.Set(rv)
	return nil
}

// EncodeJSON renders v as Avro JSON text.
func (r *Registry) EncodeJSON(v any) ([]byte, error) {
	if v == nil {
		return nil, errors.InvalidInput(errors.PhaseEncode, "cannot marshal untyped nil")
	}
	c, err := r.CodecFor(reflect.TypeOf(v))
	if err != nil {
		return nil, err
	}
	return marshalJSON(c, reflect.ValueOf(v))
}

// DecodeJSON decodes Avro JSON text into the value ptr points to.
func (r *Registry) DecodeJSON(data []byte, ptr any) error {
	target, err := pointerTarget(ptr)
	if err != nil {
		return err
	}
	c, err := r.CodecFor(target.Type())
	if err != nil {
		return err
	}
	rv, err := unmarshalJSON(c, data)
	if err != nil {
		return err
	}
	target.Set(rv)
	return nil
}

// MarshalValue writes v with c. It is the entry point for schema-driven
// codecs, whose host values are map[string]any, []any, Union and scalars.
func MarshalValue(c Codec, v any) ([]byte, error) {
	w := wire.NewWriter()
	if err := c.Write(w, hostValue(c, v)); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// UnmarshalValue reads one value with c. All of data must be consumed.
func UnmarshalValue(c Codec, data []byte) (any, error) {
	rv, err := readAll(c, data)
	if err != nil {
		return nil, err
	}
	return rv.Interface(), nil
}

// ValueToJSON converts v to its JSON value tree.
func ValueToJSON(c Codec, v any) (any, error) {
	return c.ToJSON(hostValue(c, v))
}

// ValueFromJSON converts a JSON value tree into a host value.
func ValueFromJSON(c Codec, j any) (any, error) {
	rv, err := c.FromJSON(j)
	if err != nil {
		return nil, err
	}
	return rv.Interface(), nil
}

func hostValue(c Codec, v any) reflect.Value {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		switch c.Type().Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice:
			return reflect.Zero(c.Type())
		}
	}
	return rv
}

func pointerTarget(ptr any) (reflect.Value, error) {
	rv := reflect.ValueOf(ptr)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, errors.InvalidInput(errors.PhaseDecode, "target must be a non-nil pointer, got %T", ptr)
	}
	return rv.Elem(), nil
}

func readAll(c Codec, data []byte) (reflect.Value, error) {
	r := wire.NewReader(data)
	rv, err := c.Read(r)
	if err != nil {
		return reflect.Value{}, err
	}
	if r.Remaining() != 0 {
		return reflect.Value{}, errors.MalformedInput(errors.PhaseDecode,
			"%d trailing bytes after %s value", r.Remaining(), c.Schema().TypeName())
	}
	return rv, nil
}

func marshalJSON(c Codec, v reflect.Value) ([]byte, error) {
	tree, err := c.ToJSON(v)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(tree)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidValue, err, "rendering JSON text")
	}
	return data, nil
}

func unmarshalJSON(c Codec, data []byte) (reflect.Value, error) {
	tree, err := schema.DecodeJSON(data)
	if err != nil {
		return reflect.Value{}, errors.Wrap(errors.PhaseDecode, errors.KindMalformedInput, err, "parsing JSON text")
	}
	return c.FromJSON(tree)
}
