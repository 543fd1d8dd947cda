package codec

import (
	"math"
	"reflect"

	"github.com/wippyai/avro-runtime/codec/internal/coerce"
	"github.com/wippyai/avro-runtime/errors"
	"github.com/wippyai/avro-runtime/schema"
	"github.com/wippyai/avro-runtime/wire"
)

// primitiveCodec handles the atomic kinds. Host types may be any Go type
// of a compatible reflect kind; schema-driven codecs use int8, int32,
// int64, float32, float64, string and []byte, and an empty interface for
// null.
type primitiveCodec struct {
	desc *schema.Descriptor
	typ  reflect.Type
}

func newPrimitive(k schema.Kind, t reflect.Type) *primitiveCodec {
	return &primitiveCodec{desc: schema.Primitive(k), typ: t}
}

func (c *primitiveCodec) Schema() *schema.Descriptor { return c.desc }
func (c *primitiveCodec) Type() reflect.Type         { return c.typ }

func (c *primitiveCodec) Write(w wire.Sink, v reflect.Value) error {
	v = unwrap(v)
	switch c.desc.Kind {
	case schema.Null:
		return nil
	case schema.Boolean:
		if !v.IsValid() || v.Kind() != reflect.Bool {
			return mismatch(errors.PhaseEncode, c, v)
		}
		return wire.WriteBoolean(w, v.Bool())
	case schema.Byte, schema.Int:
		n, err := c.integer(v)
		if err != nil {
			return err
		}
		return wire.WriteInt(w, int32(n))
	case schema.Long:
		n, err := c.integer(v)
		if err != nil {
			return err
		}
		return wire.WriteLong(w, n)
	case schema.Float:
		f, err := c.float(v)
		if err != nil {
			return err
		}
		if !coerce.FitsFloat32(f) {
			return errors.Overflow(errors.PhaseEncode, nil, f, "float")
		}
		return wire.WriteFloat(w, float32(f))
	case schema.Double:
		f, err := c.float(v)
		if err != nil {
			return err
		}
		return wire.WriteDouble(w, f)
	case schema.String:
		if !v.IsValid() || v.Kind() != reflect.String {
			return mismatch(errors.PhaseEncode, c, v)
		}
		return wire.WriteString(w, v.String())
	case schema.Bytes:
		if !isByteSlice(v) {
			return mismatch(errors.PhaseEncode, c, v)
		}
		return wire.WriteBytes(w, v.Bytes())
	}
	return mismatch(errors.PhaseEncode, c, v)
}

func (c *primitiveCodec) Read(r wire.Source) (reflect.Value, error) {
	out := reflect.New(c.typ).Elem()
	switch c.desc.Kind {
	case schema.Null:
		return out, nil
	case schema.Boolean:
		b, err := wire.ReadBoolean(r)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBool(b)
	case schema.Byte:
		n, err := wire.ReadInt(r)
		if err != nil {
			return reflect.Value{}, err
		}
		if n < math.MinInt8 || n > math.MaxInt8 {
			return reflect.Value{}, errors.Overflow(errors.PhaseDecode, nil, n, "byte")
		}
		return c.setInt(out, int64(n))
	case schema.Int:
		n, err := wire.ReadInt(r)
		if err != nil {
			return reflect.Value{}, err
		}
		return c.setInt(out, int64(n))
	case schema.Long:
		n, err := wire.ReadLong(r)
		if err != nil {
			return reflect.Value{}, err
		}
		return c.setInt(out, n)
	case schema.Float:
		f, err := wire.ReadFloat(r)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(float64(f))
	case schema.Double:
		f, err := wire.ReadDouble(r)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetFloat(f)
	case schema.String:
		s, err := wire.ReadString(r)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetString(s)
	case schema.Bytes:
		b, err := wire.ReadBytes(r)
		if err != nil {
			return reflect.Value{}, err
		}
		out.SetBytes(b)
	}
	return out, nil
}

func (c *primitiveCodec) ToJSON(v reflect.Value) (any, error) {
	v = unwrap(v)
	switch c.desc.Kind {
	case schema.Null:
		return nil, nil
	case schema.Boolean:
		if !v.IsValid() || v.Kind() != reflect.Bool {
			return nil, mismatch(errors.PhaseEncode, c, v)
		}
		return v.Bool(), nil
	case schema.Byte, schema.Int, schema.Long:
		return c.integer(v)
	case schema.Float:
		f, err := c.float(v)
		return float64(float32(f)), err
	case schema.Double:
		return c.float(v)
	case schema.String:
		if !v.IsValid() || v.Kind() != reflect.String {
			return nil, mismatch(errors.PhaseEncode, c, v)
		}
		return v.String(), nil
	case schema.Bytes:
		if !isByteSlice(v) {
			return nil, mismatch(errors.PhaseEncode, c, v)
		}
		return latin1(v.Bytes()), nil
	}
	return nil, mismatch(errors.PhaseEncode, c, v)
}

func (c *primitiveCodec) FromJSON(j any) (reflect.Value, error) {
	out := reflect.New(c.typ).Elem()
	switch c.desc.Kind {
	case schema.Null:
		if j != nil {
			return reflect.Value{}, jsonMismatch(c, j)
		}
		return out, nil
	case schema.Boolean:
		b, ok := j.(bool)
		if !ok {
			return reflect.Value{}, jsonMismatch(c, j)
		}
		out.SetBool(b)
	case schema.Byte, schema.Int, schema.Long:
		lo, hi := intRange(c.desc.Kind)
		if !isJSONNumber(j) {
			return reflect.Value{}, jsonMismatch(c, j)
		}
		n, ok := coerce.IntRange(j, lo, hi)
		if !ok {
			return reflect.Value{}, errors.InvalidValue(errors.PhaseDecode, nil, j,
				"%v is not a %s", j, c.desc.Kind)
		}
		return c.setInt(out, n)
	case schema.Float, schema.Double:
		if !isJSONNumber(j) {
			return reflect.Value{}, jsonMismatch(c, j)
		}
		f, ok := coerce.Float(j)
		if !ok {
			return reflect.Value{}, errors.InvalidValue(errors.PhaseDecode, nil, j,
				"%v is not a %s", j, c.desc.Kind)
		}
		if (c.desc.Kind == schema.Float || out.Kind() == reflect.Float32) && !coerce.FitsFloat32(f) {
			return reflect.Value{}, errors.Overflow(errors.PhaseDecode, nil, j, "float")
		}
		out.SetFloat(f)
	case schema.String:
		s, ok := j.(string)
		if !ok {
			return reflect.Value{}, jsonMismatch(c, j)
		}
		out.SetString(s)
	case schema.Bytes:
		s, ok := j.(string)
		if !ok {
			return reflect.Value{}, jsonMismatch(c, j)
		}
		b, ok := fromLatin1(s)
		if !ok {
			return reflect.Value{}, errors.InvalidValue(errors.PhaseDecode, nil, s, "bytes string has code points above U+00FF")
		}
		out.SetBytes(b)
	}
	return out, nil
}

// integer extracts an integer from a host value and checks it against the
// schema kind's range.
func (c *primitiveCodec) integer(v reflect.Value) (int64, error) {
	if !v.IsValid() {
		return 0, mismatch(errors.PhaseEncode, c, v)
	}
	n, ok := coerce.Value(v)
	if !ok {
		if isNumberKind(v.Kind()) {
			return 0, errors.InvalidValue(errors.PhaseEncode, nil, v.Interface(),
				"%v is not a %s", v.Interface(), c.desc.Kind)
		}
		if num, isNum := v.Interface().(coerce.Number); isNum {
			if n, ok = coerce.Int(num); !ok {
				return 0, errors.InvalidValue(errors.PhaseEncode, nil, num, "%v is not a %s", num, c.desc.Kind)
			}
		} else {
			return 0, mismatch(errors.PhaseEncode, c, v)
		}
	}
	lo, hi := intRange(c.desc.Kind)
	if n < lo || n > hi {
		return 0, errors.Overflow(errors.PhaseEncode, nil, n, c.desc.Kind.String())
	}
	return n, nil
}

func (c *primitiveCodec) float(v reflect.Value) (float64, error) {
	if !v.IsValid() {
		return 0, mismatch(errors.PhaseEncode, c, v)
	}
	f, ok := coerce.Float(v.Interface())
	if !ok {
		return 0, mismatch(errors.PhaseEncode, c, v)
	}
	return f, nil
}

// setInt stores n in out after checking it fits out's kind.
func (c *primitiveCodec) setInt(out reflect.Value, n int64) (reflect.Value, error) {
	if !coerce.Fits(n, out.Kind()) {
		return reflect.Value{}, errors.Overflow(errors.PhaseDecode, nil, n, out.Type().String())
	}
	switch out.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		out.SetInt(n)
	default:
		out.SetUint(uint64(n))
	}
	return out, nil
}

func intRange(k schema.Kind) (int64, int64) {
	switch k {
	case schema.Byte:
		return math.MinInt8, math.MaxInt8
	case schema.Int:
		return math.MinInt32, math.MaxInt32
	}
	return math.MinInt64, math.MaxInt64
}

func isNumberKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func isJSONNumber(j any) bool {
	if _, ok := j.(coerce.Number); ok {
		return true
	}
	return j != nil && isNumberKind(reflect.TypeOf(j).Kind())
}

func isByteSlice(v reflect.Value) bool {
	return v.IsValid() && v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
}

// latin1 renders bytes as a string of code points U+0000..U+00FF, the Avro
// JSON form of bytes and fixed.
func latin1(b []byte) string {
	r := make([]rune, len(b))
	for i, c := range b {
		r[i] = rune(c)
	}
	return string(r)
}

func fromLatin1(s string) ([]byte, bool) {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xff {
			return nil, false
		}
		out = append(out, byte(r))
	}
	return out, true
}

// unwrap strips interface layers. A nil interface becomes the invalid Value.
func unwrap(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func typeString(v reflect.Value) string {
	if !v.IsValid() {
		return "nil"
	}
	return v.Type().String()
}

func mismatch(phase errors.Phase, c Codec, v reflect.Value) error {
	return errors.TypeMismatch(phase, nil, typeString(v), c.Schema().TypeName())
}

func jsonMismatch(c Codec, j any) error {
	return errors.InvalidValue(errors.PhaseDecode, nil, j, "expected JSON %s, got %T", c.Schema().TypeName(), j)
}
