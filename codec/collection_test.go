package codec

import (
	"fmt"
	"reflect"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/avro-runtime/errors"
)

type bag struct{ items []int32 }

func (b bag) Elements() []int32 { return b.items }
func (b *bag) Append(v int32)   { b.items = append(b.items, v) }

type sortedBag struct{ items []int32 }

func (b sortedBag) Elements() []int32 { return b.items }
func (b *sortedBag) Append(v int32)   { b.items = append(b.items, v) }

func (b *sortedBag) Finish() error {
	if !slices.IsSorted(b.items) {
		return fmt.Errorf("items out of order: %v", b.items)
	}
	return nil
}

type strStack struct{ vals []string }

func (s strStack) Elements() []string { return s.vals }

type frozen struct{ v []int32 }

func (f frozen) Elements() []int32 { return f.v }

type ids []int64

func TestIncrementalBuilder(t *testing.T) {
	r := NewRegistry()
	c, err := CodecOf[bag](r)
	if err != nil {
		t.Fatalf("CodecOf failed: %v", err)
	}
	if got := StrategyOf(c); got != IncrementalBuilder {
		t.Errorf("StrategyOf = %v, want %v", got, IncrementalBuilder)
	}

	data, err := Encode(r, bag{items: []int32{1, 2}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if got := hexBytes(data); got != "04 02 04 00" {
		t.Errorf("Encode = %s, want 04 02 04 00", got)
	}
	back, err := Decode[bag](r, data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff([]int32{1, 2}, back.items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}

	empty, err := Decode[bag](r, []byte{0x00})
	if err != nil || len(empty.items) != 0 {
		t.Errorf("Decode(empty) = %v, %v", empty.items, err)
	}
}

func TestBuilderFinish(t *testing.T) {
	r := NewRegistry()
	data, err := Encode(r, sortedBag{items: []int32{2, 1}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if _, err := Decode[sortedBag](r, data); !errors.IsKind(err, errors.KindInvalidValue) {
		t.Errorf("unsorted Finish error = %v, want invalid_value", err)
	}
	data, _ = Encode(r, sortedBag{items: []int32{1, 2}})
	if _, err := Decode[sortedBag](r, data); err != nil {
		t.Errorf("sorted Decode failed: %v", err)
	}
}

func TestVariadicFactory(t *testing.T) {
	r := NewRegistry()
	if err := r.RegisterFactory(func(v ...string) strStack { return strStack{vals: v} }); err != nil {
		t.Fatalf("RegisterFactory failed: %v", err)
	}
	err := r.RegisterFactory(func(v ...int64) (ids, error) {
		if slices.Contains(v, 0) {
			return nil, fmt.Errorf("zero id")
		}
		return ids(v), nil
	})
	if err != nil {
		t.Fatalf("RegisterFactory failed: %v", err)
	}

	c, err := CodecOf[strStack](r)
	if err != nil {
		t.Fatalf("CodecOf failed: %v", err)
	}
	if got := StrategyOf(c); got != VariadicFactory {
		t.Errorf("StrategyOf = %v, want %v", got, VariadicFactory)
	}
	data, _ := Encode(r, strStack{vals: []string{"a", "b"}})
	back, err := Decode[strStack](r, data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, back.vals); diff != "" {
		t.Errorf("vals mismatch (-want +got):\n%s", diff)
	}

	data, _ = Encode(r, ids{1, 0})
	if _, err := Decode[ids](r, data); !errors.IsKind(err, errors.KindInvalidValue) {
		t.Errorf("factory rejection error = %v, want invalid_value", err)
	}
	data, _ = Encode(r, ids{5})
	if got, err := Decode[ids](r, data); err != nil || !slices.Equal(got, ids{5}) {
		t.Errorf("Decode = %v, %v; want [5]", got, err)
	}
}

func TestNoConstructionStrategy(t *testing.T) {
	r := NewRegistry()
	if _, err := CodecOf[frozen](r); !errors.IsKind(err, errors.KindUnsupportedType) {
		t.Errorf("CodecOf[frozen] error = %v, want unsupported_type", err)
	}
	if err := r.RegisterFactory(func(int32) frozen { return frozen{} }); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("non-variadic factory error = %v, want invalid_input", err)
	}
}

func TestStrategyOf(t *testing.T) {
	r := NewRegistry()
	tests := []struct {
		typ  reflect.Type
		want Strategy
	}{
		{reflect.TypeOf([]int32(nil)), VariadicFactory},
		{reflect.TypeOf(map[string]struct{}(nil)), IncrementalBuilder},
		{reflect.TypeOf(person{}), DirectConstructor},
		{reflect.TypeOf(""), 0},
	}
	for _, tt := range tests {
		c, err := r.CodecFor(tt.typ)
		if err != nil {
			t.Fatalf("CodecFor(%s) failed: %v", tt.typ, err)
		}
		if got := StrategyOf(c); got != tt.want {
			t.Errorf("StrategyOf(%s) = %v, want %v", tt.typ, got, tt.want)
		}
	}
	if got := Strategy(0).String(); got != "none" {
		t.Errorf("Strategy(0) = %q, want none", got)
	}
}
