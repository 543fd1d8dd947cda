package coerce

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
)

type level int16

func TestInt(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  int64
		ok    bool
	}{
		{"int64", int64(-5), -5, true},
		{"int", 7, 7, true},
		{"uint8", uint8(255), 255, true},
		{"uint64 max", uint64(math.MaxUint64), 0, false},
		{"float integral", 3.0, 3, true},
		{"float fraction", 3.5, 0, false},
		{"float too big", 1e19, 0, false},
		{"float 2^63", float64(1 << 63), 0, false},
		{"json number", json.Number("42"), 42, true},
		{"json number float", json.Number("4.0"), 4, true},
		{"json number fraction", json.Number("4.2"), 0, false},
		{"named", level(-3), -3, true},
		{"string", "1", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Int(tt.value)
			if ok != tt.ok || got != tt.want {
				t.Errorf("Int(%v) = %d, %v; want %d, %v", tt.value, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestIntRange(t *testing.T) {
	if _, ok := IntRange(128.0, -128, 127); ok {
		t.Error("IntRange(128) accepted for byte range")
	}
	if n, ok := IntRange(-128.0, -128, 127); !ok || n != -128 {
		t.Errorf("IntRange(-128) = %d, %v", n, ok)
	}
}

func TestFloat(t *testing.T) {
	tests := []struct {
		value any
		want  float64
		ok    bool
	}{
		{1.5, 1.5, true},
		{float32(0.5), 0.5, true},
		{int64(2), 2, true},
		{json.Number("2.25"), 2.25, true},
		{"x", 0, false},
	}
	for _, tt := range tests {
		got, ok := Float(tt.value)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Float(%v) = %v, %v; want %v, %v", tt.value, got, ok, tt.want, tt.ok)
		}
	}
}

func TestFits(t *testing.T) {
	tests := []struct {
		n    int64
		kind reflect.Kind
		want bool
	}{
		{127, reflect.Int8, true},
		{128, reflect.Int8, false},
		{-1, reflect.Uint8, false},
		{65535, reflect.Uint16, true},
		{math.MaxInt32 + 1, reflect.Int32, false},
		{math.MaxInt64, reflect.Int64, true},
		{-1, reflect.Uint32, false},
	}
	for _, tt := range tests {
		if got := Fits(tt.n, tt.kind); got != tt.want {
			t.Errorf("Fits(%d, %s) = %v, want %v", tt.n, tt.kind, got, tt.want)
		}
	}
}

func TestShapes(t *testing.T) {
	if !IsInteger(int8(1)) || IsInteger(1.0) || !IsInteger(json.Number("3")) {
		t.Error("IsInteger misclassified a value")
	}
	if !IsFloat(float32(1)) || IsFloat(1) {
		t.Error("IsFloat misclassified a value")
	}
}

func TestFitsFloat32(t *testing.T) {
	tests := []struct {
		f    float64
		want bool
	}{
		{0, true},
		{math.MaxFloat32, true},
		{-math.MaxFloat32, true},
		{1e39, false},
		{-1e300, false},
		{math.Inf(1), true},
		{math.NaN(), true},
	}
	for _, tt := range tests {
		if got := FitsFloat32(tt.f); got != tt.want {
			t.Errorf("FitsFloat32(%v) = %v, want %v", tt.f, got, tt.want)
		}
	}
}
