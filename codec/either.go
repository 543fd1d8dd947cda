package codec

import (
	"reflect"

	"github.com/wippyai/avro-runtime/errors"
	"github.com/wippyai/avro-runtime/schema"
	"github.com/wippyai/avro-runtime/wire"
)

// Either holds exactly one of an L or an R. It derives to the two-member
// union [L, R]; the branch is the stored tag, never a type test.
type Either[L, R any] struct {
	left    L
	right   R
	isRight bool
}

// Left returns an Either holding the left branch.
func Left[L, R any](v L) Either[L, R] {
	return Either[L, R]{left: v}
}

// Right returns an Either holding the right branch.
func Right[L, R any](v R) Either[L, R] {
	return Either[L, R]{right: v, isRight: true}
}

// IsRight reports whether e holds the right branch.
func (e Either[L, R]) IsRight() bool { return e.isRight }

// Left returns the left value and whether e holds it.
func (e Either[L, R]) Left() (L, bool) { return e.left, !e.isRight }

// Right returns the right value and whether e holds it.
func (e Either[L, R]) Right() (R, bool) { return e.right, e.isRight }

// Value returns whichever branch e holds.
func (e Either[L, R]) Value() any {
	if e.isRight {
		return e.right
	}
	return e.left
}

func (e Either[L, R]) eitherTypes() (reflect.Type, reflect.Type) {
	return TypeOf[L](), TypeOf[R]()
}

func (e Either[L, R]) eitherBranch() (int, reflect.Value) {
	if e.isRight {
		return 1, reflect.ValueOf(&e.right).Elem()
	}
	return 0, reflect.ValueOf(&e.left).Elem()
}

func (e Either[L, R]) eitherWith(branch int, v reflect.Value) any {
	var out Either[L, R]
	if branch == 1 {
		reflect.ValueOf(&out.right).Elem().Set(v)
		out.isRight = true
	} else {
		reflect.ValueOf(&out.left).Elem().Set(v)
	}
	return out
}

// eitherValue is implemented by every Either instantiation.
type eitherValue interface {
	eitherTypes() (reflect.Type, reflect.Type)
	eitherBranch() (int, reflect.Value)
	eitherWith(branch int, v reflect.Value) any
}

type eitherCodec struct {
	desc     *schema.Descriptor
	typ      reflect.Type
	branches [2]Codec
}

func (c *eitherCodec) Schema() *schema.Descriptor { return c.desc }
func (c *eitherCodec) Type() reflect.Type         { return c.typ }

func (c *eitherCodec) branch(v reflect.Value) (int, reflect.Value, error) {
	v = unwrap(v)
	if !v.IsValid() || v.Type() != c.typ {
		return 0, reflect.Value{}, mismatch(errors.PhaseEncode, c, v)
	}
	i, bv := v.Interface().(eitherValue).eitherBranch()
	return i, bv, nil
}

func (c *eitherCodec) hold(i int, v reflect.Value) reflect.Value {
	zero := reflect.Zero(c.typ).Interface().(eitherValue)
	return reflect.ValueOf(zero.eitherWith(i, v))
}

func (c *eitherCodec) Write(w wire.Sink, v reflect.Value) error {
	i, bv, err := c.branch(v)
	if err != nil {
		return err
	}
	if err := wire.WriteLong(w, int64(i)); err != nil {
		return err
	}
	if err := c.branches[i].Write(w, bv); err != nil {
		return errors.WithPath(err, c.branches[i].Schema().TypeName())
	}
	return nil
}

func (c *eitherCodec) Read(r wire.Source) (reflect.Value, error) {
	n, err := wire.ReadLong(r)
	if err != nil {
		return reflect.Value{}, err
	}
	if n < 0 || n > 1 {
		return reflect.Value{}, errors.InvalidDiscriminant(errors.PhaseDecode, nil, n, 2)
	}
	val, err := c.branches[n].Read(r)
	if err != nil {
		return reflect.Value{}, errors.WithPath(err, c.branches[n].Schema().TypeName())
	}
	return c.hold(int(n), val), nil
}

func (c *eitherCodec) ToJSON(v reflect.Value) (any, error) {
	i, bv, err := c.branch(v)
	if err != nil {
		return nil, err
	}
	b := c.branches[i]
	if b.Schema().Kind == schema.Null {
		return nil, nil
	}
	j, err := b.ToJSON(bv)
	if err != nil {
		return nil, errors.WithPath(err, b.Schema().TypeName())
	}
	return map[string]any{b.Schema().TypeName(): j}, nil
}

func (c *eitherCodec) FromJSON(j any) (reflect.Value, error) {
	i, inner, err := branchFromJSON(c.desc, j)
	if err != nil {
		return reflect.Value{}, err
	}
	val, err := c.branches[i].FromJSON(inner)
	if err != nil {
		return reflect.Value{}, errors.WithPath(err, c.branches[i].Schema().TypeName())
	}
	return c.hold(i, val), nil
}
