package coerce

import (
	"math"
	"reflect"
)

// Number is implemented by json.Number and compatible types.
type Number interface {
	Int64() (int64, error)
	Float64() (float64, error)
}

// Int converts value to int64. Floats must be integral and in range.
func Int(value any) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint:
		if uint64(v) <= math.MaxInt64 {
			return int64(v), true
		}
		return 0, false
	case uint64:
		if v <= math.MaxInt64 {
			return int64(v), true
		}
		return 0, false
	case float64:
		return floatToInt(v)
	case float32:
		return floatToInt(float64(v))
	case Number:
		if i, err := v.Int64(); err == nil {
			return i, true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case nil:
		return 0, false
	}
	return Value(reflect.ValueOf(value))
}

// Value is Int for a reflect.Value of any named numeric kind.
func Value(rv reflect.Value) (int64, bool) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		return floatToInt(rv.Float())
	case reflect.Interface, reflect.Pointer:
		if rv.IsNil() {
			return 0, false
		}
		return Int(rv.Elem().Interface())
	}
	return 0, false
}

// floatToInt accepts only integral values inside the int64 range. 2^63 is
// exactly representable as a float64 but does not fit.
func floatToInt(f float64) (int64, bool) {
	if f != math.Trunc(f) || f < -(1<<63) || f >= 1<<63 {
		return 0, false
	}
	return int64(f), true
}

// IntRange is Int with an inclusive range check.
func IntRange(value any, lo, hi int64) (int64, bool) {
	n, ok := Int(value)
	if !ok || n < lo || n > hi {
		return 0, false
	}
	return n, true
}

// Float converts value to float64. Integers are accepted.
func Float(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int64:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case Number:
		f, err := v.Float64()
		return f, err == nil
	case nil:
		return 0, false
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}

// IsInteger reports whether value is a Go integer or an integral Number.
// Floats are excluded even when integral.
func IsInteger(value any) bool {
	if n, ok := value.(Number); ok {
		_, err := n.Int64()
		return err == nil
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// IsFloat reports whether value is a Go float or a Number.
func IsFloat(value any) bool {
	if _, ok := value.(Number); ok {
		return true
	}
	switch reflect.ValueOf(value).Kind() {
	case reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// Fits reports whether n is representable in a Go integer kind.
func Fits(n int64, kind reflect.Kind) bool {
	switch kind {
	case reflect.Int8:
		return n >= math.MinInt8 && n <= math.MaxInt8
	case reflect.Int16:
		return n >= math.MinInt16 && n <= math.MaxInt16
	case reflect.Int32:
		return n >= math.MinInt32 && n <= math.MaxInt32
	case reflect.Uint8:
		return n >= 0 && n <= math.MaxUint8
	case reflect.Uint16:
		return n >= 0 && n <= math.MaxUint16
	case reflect.Uint32:
		return n >= 0 && n <= math.MaxUint32
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return n >= 0
	case reflect.Int, reflect.Int64:
		return true
	}
	return false
}

// FitsFloat32 reports whether f survives conversion to float32 without
// becoming infinite. NaN and the infinities map to themselves.
func FitsFloat32(f float64) bool {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return true
	}
	return math.Abs(f) <= math.MaxFloat32
}
