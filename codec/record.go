package codec

import (
	"reflect"
	"sort"

	"github.com/wippyai/avro-runtime/errors"
	"github.com/wippyai/avro-runtime/schema"
	"github.com/wippyai/avro-runtime/wire"
)

type recordField struct {
	name  string
	codec Codec
	// index locates the field in a struct host; nil for map hosts.
	index []int
	desc  *schema.Field
}

// recordCodec writes fields positionally and rebuilds the host value
// through its construction strategy.
type recordCodec struct {
	desc   *schema.Descriptor
	typ    reflect.Type
	fields []recordField
	build  builder
	isMap  bool
}

func (c *recordCodec) Schema() *schema.Descriptor { return c.desc }
func (c *recordCodec) Type() reflect.Type         { return c.typ }

// field returns field i of host value v. Absent keys of a map host fall
// back to the field default.
func (c *recordCodec) field(v reflect.Value, i int) (reflect.Value, error) {
	f := &c.fields[i]
	if !c.isMap {
		return v.FieldByIndex(f.index), nil
	}
	fv := v.MapIndex(reflect.ValueOf(f.name))
	if fv.IsValid() {
		return fv, nil
	}
	if !f.desc.HasDefault {
		return reflect.Value{}, errors.FieldMissing(errors.PhaseEncode, nil, f.name)
	}
	return defaultValue(f.codec, f.desc.Default)
}

func (c *recordCodec) host(v reflect.Value) (reflect.Value, error) {
	v = unwrap(v)
	if !v.IsValid() {
		return v, mismatch(errors.PhaseEncode, c, v)
	}
	if c.isMap {
		if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
			return v, mismatch(errors.PhaseEncode, c, v)
		}
		return v, nil
	}
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}
	if v.Type() != c.typ {
		if v.Kind() != reflect.Struct || !v.Type().ConvertibleTo(c.typ) {
			return v, mismatch(errors.PhaseEncode, c, v)
		}
		v = v.Convert(c.typ)
	}
	return v, nil
}

func (c *recordCodec) Write(w wire.Sink, v reflect.Value) error {
	v, err := c.host(v)
	if err != nil {
		return err
	}
	for i := range c.fields {
		fv, err := c.field(v, i)
		if err != nil {
			return err
		}
		if err := c.fields[i].codec.Write(w, fv); err != nil {
			return errors.WithPath(err, c.fields[i].name)
		}
	}
	return nil
}

func (c *recordCodec) Read(r wire.Source) (reflect.Value, error) {
	if err := r.Enter(); err != nil {
		return reflect.Value{}, err
	}
	defer r.Leave()
	parts := make([]reflect.Value, len(c.fields))
	for i := range c.fields {
		v, err := c.fields[i].codec.Read(r)
		if err != nil {
			return reflect.Value{}, errors.WithPath(err, c.fields[i].name)
		}
		parts[i] = v
	}
	return c.build.build(c.typ, parts)
}

func (c *recordCodec) ToJSON(v reflect.Value) (any, error) {
	v, err := c.host(v)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(c.fields))
	for i := range c.fields {
		fv, err := c.field(v, i)
		if err != nil {
			return nil, err
		}
		j, err := c.fields[i].codec.ToJSON(fv)
		if err != nil {
			return nil, errors.WithPath(err, c.fields[i].name)
		}
		out[c.fields[i].name] = j
	}
	return out, nil
}

func (c *recordCodec) FromJSON(j any) (reflect.Value, error) {
	obj, ok := j.(map[string]any)
	if !ok {
		return reflect.Value{}, jsonMismatch(c, j)
	}
	if len(obj) > len(c.fields) || c.hasUnknown(obj) {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			if c.desc.Field(k) == nil {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		return reflect.Value{}, errors.FieldUnknown(errors.PhaseDecode, nil, keys[0])
	}
	parts := make([]reflect.Value, len(c.fields))
	for i := range c.fields {
		f := &c.fields[i]
		fj, present := obj[f.name]
		var (
			v   reflect.Value
			err error
		)
		switch {
		case present:
			v, err = f.codec.FromJSON(fj)
		case f.desc.HasDefault:
			v, err = defaultValue(f.codec, f.desc.Default)
		default:
			return reflect.Value{}, errors.FieldMissing(errors.PhaseDecode, nil, f.name)
		}
		if err != nil {
			return reflect.Value{}, errors.WithPath(err, f.name)
		}
		parts[i] = v
	}
	return c.build.build(c.typ, parts)
}

func (c *recordCodec) hasUnknown(obj map[string]any) bool {
	for k := range obj {
		if c.desc.Field(k) == nil {
			return true
		}
	}
	return false
}

// defaultValue decodes a field default. Union defaults are written in the
// form of the union's first branch, without the branch wrapper.
func defaultValue(c Codec, def any) (reflect.Value, error) {
	d := c.Schema()
	if d.Kind != schema.Union {
		return c.FromJSON(def)
	}
	first := d.Members[0]
	if first.Kind == schema.Null {
		if def != nil {
			return reflect.Value{}, errors.InvalidValue(errors.PhaseDecode, nil, def, "default of a union starting with null must be null")
		}
		return c.FromJSON(nil)
	}
	return c.FromJSON(map[string]any{first.TypeName(): def})
}

// defaultJSON converts a host default to the JSON form stored in a field
// descriptor.
func defaultJSON(c Codec, v reflect.Value) (any, error) {
	j, err := c.ToJSON(v)
	if err != nil || c.Schema().Kind != schema.Union {
		return j, err
	}
	first := c.Schema().Members[0]
	if j == nil {
		if first.Kind == schema.Null {
			return nil, nil
		}
	} else if obj, ok := j.(map[string]any); ok {
		if inner, ok := obj[first.TypeName()]; ok {
			return inner, nil
		}
	}
	return nil, errors.InvalidValue(errors.PhaseDerive, nil, j, "a union default must use the first branch %s", first.TypeName())
}
