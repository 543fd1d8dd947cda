package codec

import (
	"bytes"
	"reflect"
	"slices"
	"sort"
	"strconv"

	"github.com/wippyai/avro-runtime/codec/internal/coerce"
	"github.com/wippyai/avro-runtime/errors"
	"github.com/wippyai/avro-runtime/schema"
	"github.com/wippyai/avro-runtime/wire"
)

// maxZeroWidthItems bounds collections whose items occupy no bytes, where
// the remaining input cannot bound the count.
const maxZeroWidthItems = 1 << 24

// elementSource says where an array codec finds the elements of a host value.
type elementSource uint8

const (
	fromSlice  elementSource = iota // slice or array
	fromSet                         // keys of map[K]struct{}
	fromMethod                      // Elements() []E
)

// arrayCodec writes one block holding every element followed by the zero
// terminator, and reads any sequence of blocks.
type arrayCodec struct {
	desc     *schema.Descriptor
	typ      reflect.Type
	items    Codec
	source   elementSource
	elements int // method index of Elements for fromMethod
	build    builder
}

func (c *arrayCodec) Schema() *schema.Descriptor { return c.desc }
func (c *arrayCodec) Type() reflect.Type         { return c.typ }

// values returns the elements of v in encoding order. Set members are
// ordered by their encoded bytes.
func (c *arrayCodec) values(v reflect.Value) ([]reflect.Value, error) {
	v = unwrap(v)
	if !v.IsValid() {
		return nil, mismatch(errors.PhaseEncode, c, v)
	}
	switch c.source {
	case fromMethod:
		if v.Type() != c.typ {
			return nil, mismatch(errors.PhaseEncode, c, v)
		}
		v = v.Method(c.elements).Call(nil)[0]
	case fromSet:
		if v.Kind() != reflect.Map {
			return nil, mismatch(errors.PhaseEncode, c, v)
		}
		return c.sortedKeys(v)
	}
	if v.Kind() != reflect.Slice && v.Kind() != reflect.Array {
		return nil, mismatch(errors.PhaseEncode, c, v)
	}
	out := make([]reflect.Value, v.Len())
	for i := range out {
		out[i] = v.Index(i)
	}
	return out, nil
}

func (c *arrayCodec) sortedKeys(v reflect.Value) ([]reflect.Value, error) {
	keys := v.MapKeys()
	encoded := make([][]byte, len(keys))
	for i, k := range keys {
		w := wire.NewWriter()
		if err := c.items.Write(w, k); err != nil {
			return nil, errors.WithPath(err, "["+strconv.Itoa(i)+"]")
		}
		encoded[i] = w.Bytes()
	}
	order := make([]int, len(keys))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return bytes.Compare(encoded[order[a]], encoded[order[b]]) < 0
	})
	out := make([]reflect.Value, len(keys))
	for i, j := range order {
		out[i] = keys[j]
	}
	return out, nil
}

func (c *arrayCodec) Write(w wire.Sink, v reflect.Value) error {
	vals, err := c.values(v)
	if err != nil {
		return err
	}
	if len(vals) > 0 {
		if err := wire.WriteLong(w, int64(len(vals))); err != nil {
			return err
		}
		for i, e := range vals {
			if err := c.items.Write(w, e); err != nil {
				return errors.WithPath(err, index(i))
			}
		}
	}
	return wire.WriteLong(w, 0)
}

func (c *arrayCodec) Read(r wire.Source) (reflect.Value, error) {
	var parts []reflect.Value
	for {
		n, err := blockHeader(r, c.items.Schema())
		if err != nil {
			return reflect.Value{}, err
		}
		if n == 0 {
			break
		}
		parts = slices.Grow(parts, int(min(n, int64(r.Remaining())+1)))
		for i := int64(0); i < n; i++ {
			e, err := c.items.Read(r)
			if err != nil {
				return reflect.Value{}, errors.WithPath(err, index(len(parts)))
			}
			parts = append(parts, e)
		}
	}
	return c.build.build(c.typ, parts)
}

func (c *arrayCodec) ToJSON(v reflect.Value) (any, error) {
	vals, err := c.values(v)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(vals))
	for i, e := range vals {
		if out[i], err = c.items.ToJSON(e); err != nil {
			return nil, errors.WithPath(err, index(i))
		}
	}
	return out, nil
}

func (c *arrayCodec) FromJSON(j any) (reflect.Value, error) {
	arr, ok := j.([]any)
	if !ok {
		return reflect.Value{}, jsonMismatch(c, j)
	}
	parts := make([]reflect.Value, len(arr))
	for i, e := range arr {
		v, err := c.items.FromJSON(e)
		if err != nil {
			return reflect.Value{}, errors.WithPath(err, index(i))
		}
		parts[i] = v
	}
	return c.build.build(c.typ, parts)
}

// blockHeader reads an array or map block count and rejects counts the
// remaining input cannot hold.
func blockHeader(r wire.Source, item *schema.Descriptor) (int64, error) {
	n, _, err := wire.BlockCount(r)
	if err != nil {
		return 0, err
	}
	limit := int64(r.Remaining())
	if zeroWidth(item) {
		limit = maxZeroWidthItems
	}
	if n > limit {
		return 0, errors.MalformedInput(errors.PhaseDecode, "block of %d items exceeds %d remaining bytes", n, r.Remaining())
	}
	return n, nil
}

// zeroWidth reports whether values of d may encode to no bytes at all.
func zeroWidth(d *schema.Descriptor) bool {
	return zeroWidthSeen(d, nil)
}

func zeroWidthSeen(d *schema.Descriptor, seen map[*schema.Descriptor]bool) bool {
	switch d.Kind {
	case schema.Null:
		return true
	case schema.Fixed:
		return d.Size == 0
	case schema.Record:
		if seen[d] {
			return false
		}
		if seen == nil {
			seen = make(map[*schema.Descriptor]bool)
		}
		seen[d] = true
		for _, f := range d.Fields {
			if !zeroWidthSeen(f.Type, seen) {
				return false
			}
		}
		return true
	}
	return false
}

func index(i int) string {
	return "[" + strconv.Itoa(i) + "]"
}

// mapCodec handles map[string]V. Keys are written in sorted order.
type mapCodec struct {
	desc   *schema.Descriptor
	typ    reflect.Type
	values Codec
}

func (c *mapCodec) Schema() *schema.Descriptor { return c.desc }
func (c *mapCodec) Type() reflect.Type         { return c.typ }

func (c *mapCodec) entries(v reflect.Value) ([]reflect.Value, error) {
	v = unwrap(v)
	if !v.IsValid() || v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return nil, mismatch(errors.PhaseEncode, c, v)
	}
	keys := v.MapKeys()
	sort.Slice(keys, func(a, b int) bool { return keys[a].String() < keys[b].String() })
	return keys, nil
}

func (c *mapCodec) Write(w wire.Sink, v reflect.Value) error {
	keys, err := c.entries(v)
	if err != nil {
		return err
	}
	v = unwrap(v)
	if len(keys) > 0 {
		if err := wire.WriteLong(w, int64(len(keys))); err != nil {
			return err
		}
		for _, k := range keys {
			if err := wire.WriteString(w, k.String()); err != nil {
				return err
			}
			if err := c.values.Write(w, v.MapIndex(k)); err != nil {
				return errors.WithPath(err, k.String())
			}
		}
	}
	return wire.WriteLong(w, 0)
}

func (c *mapCodec) Read(r wire.Source) (reflect.Value, error) {
	out := reflect.MakeMap(c.typ)
	keyType := c.typ.Key()
	for {
		n, _, err := wire.BlockCount(r)
		if err != nil {
			return reflect.Value{}, err
		}
		if n == 0 {
			return out, nil
		}
		// Every entry carries at least its key length byte.
		if n > int64(r.Remaining()) {
			return reflect.Value{}, errors.MalformedInput(errors.PhaseDecode, "block of %d entries exceeds %d remaining bytes", n, r.Remaining())
		}
		for i := int64(0); i < n; i++ {
			k, err := wire.ReadString(r)
			if err != nil {
				return reflect.Value{}, err
			}
			val, err := c.values.Read(r)
			if err != nil {
				return reflect.Value{}, errors.WithPath(err, k)
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(keyType), val)
		}
	}
}

func (c *mapCodec) ToJSON(v reflect.Value) (any, error) {
	keys, err := c.entries(v)
	if err != nil {
		return nil, err
	}
	v = unwrap(v)
	out := make(map[string]any, len(keys))
	for _, k := range keys {
		j, err := c.values.ToJSON(v.MapIndex(k))
		if err != nil {
			return nil, errors.WithPath(err, k.String())
		}
		out[k.String()] = j
	}
	return out, nil
}

func (c *mapCodec) FromJSON(j any) (reflect.Value, error) {
	m, ok := j.(map[string]any)
	if !ok {
		return reflect.Value{}, jsonMismatch(c, j)
	}
	out := reflect.MakeMapWithSize(c.typ, len(m))
	keyType := c.typ.Key()
	for k, e := range m {
		val, err := c.values.FromJSON(e)
		if err != nil {
			return reflect.Value{}, errors.WithPath(err, k)
		}
		out.SetMapIndex(reflect.ValueOf(k).Convert(keyType), val)
	}
	return out, nil
}

// fixedCodec handles [N]byte hosts, and []byte for schema-driven codecs.
type fixedCodec struct {
	desc *schema.Descriptor
	typ  reflect.Type
}

func (c *fixedCodec) Schema() *schema.Descriptor { return c.desc }
func (c *fixedCodec) Type() reflect.Type         { return c.typ }

func (c *fixedCodec) bytes(v reflect.Value) ([]byte, error) {
	v = unwrap(v)
	if !v.IsValid() {
		return nil, mismatch(errors.PhaseEncode, c, v)
	}
	var b []byte
	switch {
	case isByteSlice(v):
		b = v.Bytes()
	case v.Kind() == reflect.Array && v.Type().Elem().Kind() == reflect.Uint8:
		b = make([]byte, v.Len())
		reflect.Copy(reflect.ValueOf(b), v)
	default:
		return nil, mismatch(errors.PhaseEncode, c, v)
	}
	if len(b) != c.desc.Size {
		return nil, errors.InvalidValue(errors.PhaseEncode, nil, len(b),
			"fixed %s needs %d bytes, got %d", c.desc.Name, c.desc.Size, len(b))
	}
	return b, nil
}

func (c *fixedCodec) host(b []byte) reflect.Value {
	out := reflect.New(c.typ).Elem()
	if c.typ.Kind() == reflect.Array {
		reflect.Copy(out, reflect.ValueOf(b))
	} else {
		out.SetBytes(b)
	}
	return out
}

func (c *fixedCodec) Write(w wire.Sink, v reflect.Value) error {
	b, err := c.bytes(v)
	if err != nil {
		return err
	}
	return wire.WriteFixed(w, b)
}

func (c *fixedCodec) Read(r wire.Source) (reflect.Value, error) {
	b, err := wire.ReadFixed(r, c.desc.Size)
	if err != nil {
		return reflect.Value{}, err
	}
	return c.host(b), nil
}

func (c *fixedCodec) ToJSON(v reflect.Value) (any, error) {
	b, err := c.bytes(v)
	if err != nil {
		return nil, err
	}
	return latin1(b), nil
}

func (c *fixedCodec) FromJSON(j any) (reflect.Value, error) {
	s, ok := j.(string)
	if !ok {
		return reflect.Value{}, jsonMismatch(c, j)
	}
	b, ok := fromLatin1(s)
	if !ok || len(b) != c.desc.Size {
		return reflect.Value{}, errors.InvalidValue(errors.PhaseDecode, nil, s,
			"fixed %s needs %d bytes", c.desc.Name, c.desc.Size)
	}
	return c.host(b), nil
}

// enumCodec handles integer hosts (value = index) and string hosts
// (value = symbol).
type enumCodec struct {
	desc *schema.Descriptor
	typ  reflect.Type
}

func (c *enumCodec) Schema() *schema.Descriptor { return c.desc }
func (c *enumCodec) Type() reflect.Type         { return c.typ }

func (c *enumCodec) index(v reflect.Value) (int, error) {
	v = unwrap(v)
	if !v.IsValid() {
		return 0, mismatch(errors.PhaseEncode, c, v)
	}
	if v.Kind() == reflect.String {
		i := c.desc.Symbol(v.String())
		if i < 0 {
			return 0, errors.InvalidValue(errors.PhaseEncode, nil, v.String(),
				"%q is not a symbol of %s", v.String(), c.desc.Name)
		}
		return i, nil
	}
	n, ok := coerce.Value(v)
	if !ok {
		return 0, mismatch(errors.PhaseEncode, c, v)
	}
	if n < 0 || n >= int64(len(c.desc.Symbols)) {
		return 0, errors.InvalidDiscriminant(errors.PhaseEncode, nil, n, len(c.desc.Symbols))
	}
	return int(n), nil
}

func (c *enumCodec) host(i int) reflect.Value {
	out := reflect.New(c.typ).Elem()
	switch c.typ.Kind() {
	case reflect.String:
		out.SetString(c.desc.Symbols[i])
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		out.SetInt(int64(i))
	default:
		out.SetUint(uint64(i))
	}
	return out
}

func (c *enumCodec) Write(w wire.Sink, v reflect.Value) error {
	i, err := c.index(v)
	if err != nil {
		return err
	}
	return wire.WriteLong(w, int64(i))
}

func (c *enumCodec) Read(r wire.Source) (reflect.Value, error) {
	n, err := wire.ReadLong(r)
	if err != nil {
		return reflect.Value{}, err
	}
	if n < 0 || n >= int64(len(c.desc.Symbols)) {
		return reflect.Value{}, errors.InvalidDiscriminant(errors.PhaseDecode, nil, n, len(c.desc.Symbols))
	}
	return c.host(int(n)), nil
}

func (c *enumCodec) ToJSON(v reflect.Value) (any, error) {
	i, err := c.index(v)
	if err != nil {
		return nil, err
	}
	return c.desc.Symbols[i], nil
}

func (c *enumCodec) FromJSON(j any) (reflect.Value, error) {
	s, ok := j.(string)
	if !ok {
		return reflect.Value{}, jsonMismatch(c, j)
	}
	i := c.desc.Symbol(s)
	if i < 0 {
		return reflect.Value{}, errors.InvalidValue(errors.PhaseDecode, nil, s, "%q is not a symbol of %s", s, c.desc.Name)
	}
	return c.host(i), nil
}
