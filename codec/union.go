package codec

import (
	"reflect"

	"github.com/wippyai/avro-runtime/codec/internal/coerce"
	"github.com/wippyai/avro-runtime/errors"
	"github.com/wippyai/avro-runtime/schema"
	"github.com/wippyai/avro-runtime/wire"
)

// unionMember is one branch of a union. host is the type stored in the
// interface value; when ptr is set host is *T and codec handles T.
type unionMember struct {
	host  reflect.Type
	codec Codec
	ptr   bool
	null  bool
}

// unionCodec resolves the branch of a value by walking members in declared
// order; the first match wins.
type unionCodec struct {
	desc    *schema.Descriptor
	typ     reflect.Type
	members []unionMember
	// generic unions match on value shape rather than Go type.
	generic bool
	open    bool
}

func (c *unionCodec) Schema() *schema.Descriptor { return c.desc }
func (c *unionCodec) Type() reflect.Type         { return c.typ }

// resolve picks the branch for v and returns the value to hand to that
// branch's codec.
func (c *unionCodec) resolve(v reflect.Value) (int, reflect.Value, error) {
	v = unwrap(v)
	if v.IsValid() && v.Type() == unionType {
		u := v.Interface().(Union)
		if u.Index < 0 || u.Index >= len(c.members) {
			return 0, reflect.Value{}, errors.InvalidDiscriminant(errors.PhaseEncode, nil, int64(u.Index), len(c.members))
		}
		return u.Index, unwrap(reflect.ValueOf(u.Value)), nil
	}
	for i, m := range c.members {
		if m.null {
			if !v.IsValid() || (v.Kind() == reflect.Pointer && v.IsNil()) {
				return i, reflect.Value{}, nil
			}
			continue
		}
		if !v.IsValid() {
			continue
		}
		if c.generic {
			if mv, ok := matchShape(m.codec.Schema(), v); ok {
				return i, mv, nil
			}
			continue
		}
		if mv, ok := matchType(m, v); ok {
			return i, mv, nil
		}
	}
	var val any
	if v.IsValid() && v.CanInterface() {
		val = v.Interface()
	}
	return 0, reflect.Value{}, errors.NoMatchingBranch(nil, val, typeString(v))
}

// matchType reports whether v belongs to member m: same type, a
// convertible type of the same kind, or a pointer to the member type.
func matchType(m unionMember, v reflect.Value) (reflect.Value, bool) {
	vt := v.Type()
	target := m.host
	if m.ptr {
		target = m.host.Elem()
		if vt == m.host {
			if v.IsNil() {
				return reflect.Value{}, false
			}
			return v.Elem(), true
		}
	}
	switch {
	case vt == target:
		return v, true
	case vt.Kind() == target.Kind() && vt.ConvertibleTo(target):
		return v.Convert(target), true
	case vt.Kind() == reflect.Pointer && vt.Elem() == target && !v.IsNil():
		return v.Elem(), true
	}
	return reflect.Value{}, false
}

// matchShape is the first-match rule for schema-driven unions, where host
// values are plain Go data.
func matchShape(d *schema.Descriptor, v reflect.Value) (reflect.Value, bool) {
	k := v.Kind()
	switch d.Kind {
	case schema.Boolean:
		return v, k == reflect.Bool
	case schema.Byte, schema.Int, schema.Long:
		if !coerce.IsInteger(v.Interface()) {
			return v, false
		}
		lo, hi := intRange(d.Kind)
		_, ok := coerce.IntRange(v.Interface(), lo, hi)
		return v, ok
	case schema.Float, schema.Double:
		return v, coerce.IsFloat(v.Interface())
	case schema.String:
		return v, k == reflect.String && !isNumberLike(v)
	case schema.Enum:
		return v, k == reflect.String && d.Symbol(v.String()) >= 0
	case schema.Bytes:
		return v, isByteSlice(v)
	case schema.Fixed:
		if isByteSlice(v) || (k == reflect.Array && v.Type().Elem().Kind() == reflect.Uint8) {
			return v, v.Len() == d.Size
		}
	case schema.Array:
		return v, (k == reflect.Slice || k == reflect.Array) && !isByteSlice(v)
	case schema.Map:
		return v, k == reflect.Map && v.Type().Key().Kind() == reflect.String
	case schema.Record:
		return v, k == reflect.Map && v.Type().Key().Kind() == reflect.String && recordShape(d, v)
	}
	return v, false
}

func isNumberLike(v reflect.Value) bool {
	_, ok := v.Interface().(coerce.Number)
	return ok
}

// recordShape reports whether map v has every required field of d and no
// other keys.
func recordShape(d *schema.Descriptor, v reflect.Value) bool {
	for _, f := range d.Fields {
		if !f.HasDefault && !v.MapIndex(reflect.ValueOf(f.Name)).IsValid() {
			return false
		}
	}
	iter := v.MapRange()
	for iter.Next() {
		if d.Field(iter.Key().String()) == nil {
			return false
		}
	}
	return true
}

func (c *unionCodec) Write(w wire.Sink, v reflect.Value) error {
	i, mv, err := c.resolve(v)
	if err != nil {
		return err
	}
	if err := wire.WriteLong(w, int64(i)); err != nil {
		return err
	}
	if err := c.members[i].codec.Write(w, mv); err != nil {
		return errors.WithPath(err, c.members[i].codec.Schema().TypeName())
	}
	return nil
}

// wrap stores a decoded branch value in the union's host type.
func (c *unionCodec) wrap(m unionMember, val reflect.Value) reflect.Value {
	out := reflect.New(c.typ).Elem()
	if m.null {
		return out
	}
	if m.ptr {
		p := reflect.New(m.host.Elem())
		p.Elem().Set(val)
		val = p
	}
	out.Set(val)
	return out
}

func (c *unionCodec) Read(r wire.Source) (reflect.Value, error) {
	n, err := wire.ReadLong(r)
	if err != nil {
		return reflect.Value{}, err
	}
	if n < 0 || n >= int64(len(c.members)) {
		return reflect.Value{}, errors.InvalidDiscriminant(errors.PhaseDecode, nil, n, len(c.members))
	}
	m := c.members[n]
	val, err := m.codec.Read(r)
	if err != nil {
		return reflect.Value{}, errors.WithPath(err, m.codec.Schema().TypeName())
	}
	return c.wrap(m, val), nil
}

func (c *unionCodec) ToJSON(v reflect.Value) (any, error) {
	i, mv, err := c.resolve(v)
	if err != nil {
		return nil, err
	}
	m := c.members[i]
	if m.null {
		return nil, nil
	}
	j, err := m.codec.ToJSON(mv)
	if err != nil {
		return nil, errors.WithPath(err, m.codec.Schema().TypeName())
	}
	return map[string]any{m.codec.Schema().TypeName(): j}, nil
}

func (c *unionCodec) FromJSON(j any) (reflect.Value, error) {
	i, inner, err := branchFromJSON(c.desc, j)
	if err != nil {
		return reflect.Value{}, err
	}
	m := c.members[i]
	if m.null {
		return c.wrap(m, reflect.Value{}), nil
	}
	val, err := m.codec.FromJSON(inner)
	if err != nil {
		return reflect.Value{}, errors.WithPath(err, m.codec.Schema().TypeName())
	}
	return c.wrap(m, val), nil
}

// branchFromJSON decodes the Avro JSON union form: null, or a single-key
// object naming the branch.
func branchFromJSON(d *schema.Descriptor, j any) (int, any, error) {
	if j == nil {
		for i, m := range d.Members {
			if m.Kind == schema.Null {
				return i, nil, nil
			}
		}
		return 0, nil, errors.InvalidValue(errors.PhaseDecode, nil, nil, "union has no null branch")
	}
	obj, ok := j.(map[string]any)
	if !ok || len(obj) != 1 {
		return 0, nil, errors.InvalidValue(errors.PhaseDecode, nil, j, "union JSON must be null or a single-key object")
	}
	for name, inner := range obj {
		for i, m := range d.Members {
			if m.TypeName() == name {
				return i, inner, nil
			}
		}
		return 0, nil, errors.InvalidValue(errors.PhaseDecode, nil, name, "%q is not a branch of the union", name)
	}
	return 0, nil, nil
}

// optionCodec handles *T as the union [null, T].
type optionCodec struct {
	desc  *schema.Descriptor
	typ   reflect.Type
	inner Codec
}

func (c *optionCodec) Schema() *schema.Descriptor { return c.desc }
func (c *optionCodec) Type() reflect.Type         { return c.typ }

// value returns the pointee of v, or the invalid Value for nil.
func (c *optionCodec) value(v reflect.Value) reflect.Value {
	v = unwrap(v)
	if !v.IsValid() {
		return v
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return reflect.Value{}
		}
		return v.Elem()
	}
	return v
}

func (c *optionCodec) Write(w wire.Sink, v reflect.Value) error {
	v = c.value(v)
	if !v.IsValid() {
		return wire.WriteLong(w, 0)
	}
	if err := wire.WriteLong(w, 1); err != nil {
		return err
	}
	return c.inner.Write(w, v)
}

func (c *optionCodec) some(val reflect.Value) reflect.Value {
	p := reflect.New(c.typ.Elem())
	p.Elem().Set(val)
	return p
}

func (c *optionCodec) Read(r wire.Source) (reflect.Value, error) {
	n, err := wire.ReadLong(r)
	if err != nil {
		return reflect.Value{}, err
	}
	switch n {
	case 0:
		return reflect.Zero(c.typ), nil
	case 1:
		val, err := c.inner.Read(r)
		if err != nil {
			return reflect.Value{}, err
		}
		return c.some(val), nil
	}
	return reflect.Value{}, errors.InvalidDiscriminant(errors.PhaseDecode, nil, n, 2)
}

func (c *optionCodec) ToJSON(v reflect.Value) (any, error) {
	v = c.value(v)
	if !v.IsValid() {
		return nil, nil
	}
	j, err := c.inner.ToJSON(v)
	if err != nil {
		return nil, err
	}
	return map[string]any{c.inner.Schema().TypeName(): j}, nil
}

func (c *optionCodec) FromJSON(j any) (reflect.Value, error) {
	i, inner, err := branchFromJSON(c.desc, j)
	if err != nil {
		return reflect.Value{}, err
	}
	if i == 0 {
		return reflect.Zero(c.typ), nil
	}
	val, err := c.inner.FromJSON(inner)
	if err != nil {
		return reflect.Value{}, err
	}
	return c.some(val), nil
}
