package codec

import (
	"reflect"

	"github.com/wippyai/avro-runtime/errors"
)

// Strategy is the way a decoded host value is rebuilt from its decoded
// fields or elements. It is chosen once, when the codec is derived.
type Strategy uint8

const (
	// DirectConstructor builds a record from all of its fields at once,
	// through a registered constructor or by assigning struct fields.
	DirectConstructor Strategy = iota + 1
	// VariadicFactory builds a collection from all of its elements at once.
	VariadicFactory
	// IncrementalBuilder appends elements one at a time, then finishes.
	IncrementalBuilder
)

var strategyNames = [...]string{
	DirectConstructor:  "direct-constructor",
	VariadicFactory:    "variadic-factory",
	IncrementalBuilder: "incremental-builder",
}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) && strategyNames[s] != "" {
		return strategyNames[s]
	}
	return "none"
}

// builder rebuilds a host value of type t from decoded parts.
type builder interface {
	strategy() Strategy
	build(t reflect.Type, parts []reflect.Value) (reflect.Value, error)
}

// StrategyOf reports the construction strategy a codec decodes with, or 0
// for codecs that need none.
func StrategyOf(c Codec) Strategy {
	switch c := c.(type) {
	case *recordCodec:
		return c.build.strategy()
	case *arrayCodec:
		return c.build.strategy()
	}
	return 0
}

// structAssign sets exported struct fields in declaration order.
type structAssign struct {
	index [][]int
}

func (structAssign) strategy() Strategy { return DirectConstructor }

func (b structAssign) build(t reflect.Type, parts []reflect.Value) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	for i, idx := range b.index {
		out.FieldByIndex(idx).Set(parts[i])
	}
	return out, nil
}

// ctorFunc calls a registered func(f1, ..., fn) T or (T, error).
type ctorFunc struct {
	fn reflect.Value
}

func (ctorFunc) strategy() Strategy { return DirectConstructor }

func (b ctorFunc) build(t reflect.Type, parts []reflect.Value) (reflect.Value, error) {
	return callBuilder(b.fn, t, parts)
}

// sliceFactory makes a slice, or fills a fixed-length array, in one step.
type sliceFactory struct{}

func (sliceFactory) strategy() Strategy { return VariadicFactory }

func (sliceFactory) build(t reflect.Type, parts []reflect.Value) (reflect.Value, error) {
	var out reflect.Value
	if t.Kind() == reflect.Array {
		if len(parts) != t.Len() {
			return reflect.Value{}, errors.InvalidValue(errors.PhaseDecode, nil, len(parts),
				"%s needs exactly %d elements, got %d", t, t.Len(), len(parts))
		}
		out = reflect.New(t).Elem()
	} else {
		out = reflect.MakeSlice(t, len(parts), len(parts))
	}
	for i, p := range parts {
		out.Index(i).Set(p)
	}
	return out, nil
}

// funcFactory calls a registered func(...E) T or (T, error).
type funcFactory struct {
	fn reflect.Value
}

func (funcFactory) strategy() Strategy { return VariadicFactory }

func (b funcFactory) build(t reflect.Type, parts []reflect.Value) (reflect.Value, error) {
	return callBuilder(b.fn, t, parts)
}

// appender builds a collection through (*T).Append(E) and an optional
// (*T).Finish() error.
type appender struct {
	appendIdx int
	finishIdx int
}

func (appender) strategy() Strategy { return IncrementalBuilder }

func (b appender) build(t reflect.Type, parts []reflect.Value) (reflect.Value, error) {
	p := reflect.New(t)
	add := p.Method(b.appendIdx)
	arg := make([]reflect.Value, 1)
	for _, e := range parts {
		arg[0] = e
		add.Call(arg)
	}
	if b.finishIdx >= 0 {
		res := p.Method(b.finishIdx).Call(nil)
		if err, _ := res[0].Interface().(error); err != nil {
			return reflect.Value{}, errors.New(errors.PhaseDecode, errors.KindInvalidValue).
				GoType(t.String()).
				Cause(err).
				Detail("Finish rejected the decoded elements").
				Build()
		}
	}
	return p.Elem(), nil
}

// setBuilder inserts each element as a key of a map[K]struct{}.
type setBuilder struct{}

func (setBuilder) strategy() Strategy { return IncrementalBuilder }

func (setBuilder) build(t reflect.Type, parts []reflect.Value) (reflect.Value, error) {
	out := reflect.MakeMapWithSize(t, len(parts))
	member := reflect.Zero(t.Elem())
	for _, p := range parts {
		out.SetMapIndex(p, member)
	}
	return out, nil
}

// mapRecordBuilder stores fields of a schema-driven record by name.
type mapRecordBuilder struct {
	names []string
}

func (mapRecordBuilder) strategy() Strategy { return IncrementalBuilder }

func (b mapRecordBuilder) build(t reflect.Type, parts []reflect.Value) (reflect.Value, error) {
	out := reflect.MakeMapWithSize(t, len(parts))
	for i, p := range parts {
		out.SetMapIndex(reflect.ValueOf(b.names[i]), p)
	}
	return out, nil
}

func callBuilder(fn reflect.Value, t reflect.Type, args []reflect.Value) (reflect.Value, error) {
	res := fn.Call(args)
	if len(res) == 2 {
		if err, _ := res[1].Interface().(error); err != nil {
			return reflect.Value{}, errors.New(errors.PhaseDecode, errors.KindInvalidValue).
				GoType(t.String()).
				Cause(err).
				Detail("constructor rejected the decoded value").
				Build()
		}
	}
	return res[0], nil
}

// constructorFor validates a registered constructor against the record's
// field types.
func constructorFor(fn reflect.Value, t reflect.Type, fields []reflect.Type) (builder, error) {
	ft := fn.Type()
	if ft.IsVariadic() || ft.NumIn() != len(fields) {
		return nil, errors.UnsupportedType(nil, t.String(),
			"constructor %s takes %d parameters, record has %d fields", ft, ft.NumIn(), len(fields))
	}
	for i, f := range fields {
		if ft.In(i) != f {
			return nil, errors.UnsupportedType(nil, t.String(),
				"constructor parameter %d is %s, field is %s", i, ft.In(i), f)
		}
	}
	return ctorFunc{fn: fn}, nil
}

// factoryFor validates a registered func(...E) T factory.
func factoryFor(fn reflect.Value, t, elem reflect.Type) (builder, error) {
	ft := fn.Type()
	if !ft.IsVariadic() || ft.NumIn() != 1 || ft.In(0).Elem() != elem {
		return nil, errors.UnsupportedType(nil, t.String(), "factory %s does not accept ...%s", ft, elem)
	}
	return funcFactory{fn: fn}, nil
}

// appenderFor looks for (*T).Append(E) and (*T).Finish() error.
func appenderFor(t, elem reflect.Type) (builder, bool) {
	pt := reflect.PointerTo(t)
	m, ok := pt.MethodByName("Append")
	if !ok || m.Type.NumIn() != 2 || m.Type.In(1) != elem || m.Type.NumOut() != 0 {
		return nil, false
	}
	b := appender{appendIdx: m.Index, finishIdx: -1}
	if f, ok := pt.MethodByName("Finish"); ok &&
		f.Type.NumIn() == 1 && f.Type.NumOut() == 1 && f.Type.Out(0) == errorType {
		b.finishIdx = f.Index
	}
	return b, true
}

// checkBuilderFunc verifies that fn returns t or (t, error).
func checkBuilderFunc(ft reflect.Type) (reflect.Type, bool) {
	switch ft.NumOut() {
	case 1:
		return ft.Out(0), true
	case 2:
		if ft.Out(1) == errorType {
			return ft.Out(0), true
		}
	}
	return nil, false
}
