package avroruntime

import (
	"reflect"

	"github.com/wippyai/avro-runtime/codec"
	"github.com/wippyai/avro-runtime/errors"
	"github.com/wippyai/avro-runtime/schema"
)

// Marshal encodes v in the Avro binary format using the default registry.
func Marshal(v any) ([]byte, error) {
	return codec.Default().Marshal(v)
}

// Unmarshal decodes data into the value ptr points to using the default
// registry.
func Unmarshal(data []byte, ptr any) error {
	return codec.Default().Unmarshal(data, ptr)
}

// MarshalJSON encodes v in the Avro JSON form using the default registry.
func MarshalJSON(v any) ([]byte, error) {
	return codec.Default().EncodeJSON(v)
}

// UnmarshalJSON decodes Avro JSON into the value ptr points to using the
// default registry.
func UnmarshalJSON(data []byte, ptr any) error {
	return codec.Default().DecodeJSON(data, ptr)
}

// SchemaOf returns the schema derived for v's type.
func SchemaOf(v any) (*schema.Descriptor, error) {
	t := reflect.TypeOf(v)
	if t == nil {
		return nil, errors.InvalidInput(errors.PhaseDerive, "SchemaOf called with nil")
	}
	c, err := codec.Default().CodecFor(t)
	if err != nil {
		return nil, err
	}
	return c.Schema(), nil
}
