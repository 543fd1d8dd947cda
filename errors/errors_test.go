package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseEncode,
				Kind:   KindInvalidValue,
				Path:   []string{"user", "address", "zip"},
				GoType: "int64",
				Schema: "int",
				Detail: "out of range",
			},
			contains: []string{"[encode]", "invalid_value", "user.address.zip", "int64", "int", "out of range"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseDecode,
				Kind:  KindMalformedInput,
			},
			contains: []string{"[decode]", "malformed_input"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseContainer,
				Kind:   KindMalformedInput,
				Detail: "bad block",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[container]", "malformed_input", "bad block", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindInvalidValue,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}

	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseEncode,
		Kind:  KindNoMatchingBranch,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseEncode, Kind: KindNoMatchingBranch}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindNoMatchingBranch}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseEncode, Kind: KindInvalidValue}) {
		t.Error("Is should not match different kind")
	}

	wrapped := fmt.Errorf("outer: %w", err)
	if !errors.Is(wrapped, &Error{Phase: PhaseEncode, Kind: KindNoMatchingBranch}) {
		t.Error("errors.Is should match through fmt wrapping")
	}
}

func TestIsKind(t *testing.T) {
	inner := FieldMissing(PhaseDecode, nil, "x")
	outer := Wrap(PhaseContainer, KindMalformedInput, inner, "read block")

	if !IsKind(outer, KindMalformedInput) {
		t.Error("IsKind should match outer kind")
	}
	if !IsKind(outer, KindFieldMissing) {
		t.Error("IsKind should match a kind further down the cause chain")
	}
	if IsKind(outer, KindUnsupportedType) {
		t.Error("IsKind matched an absent kind")
	}
	if IsKind(errors.New("plain"), KindInvalidValue) {
		t.Error("IsKind matched a plain error")
	}

	kind, ok := KindOf(fmt.Errorf("ctx: %w", inner))
	if !ok || kind != KindFieldMissing {
		t.Errorf("KindOf = %v, %v; want field_missing, true", kind, ok)
	}
}

func TestWithPath(t *testing.T) {
	err := InvalidValue(PhaseDecode, []string{"zip"}, 7, "bad")
	got := WithPath(WithPath(err, "address"), "user")

	var e *Error
	if !errors.As(got, &e) {
		t.Fatal("WithPath lost the *Error")
	}
	if strings.Join(e.Path, ".") != "user.address.zip" {
		t.Errorf("Path = %v, want user.address.zip", e.Path)
	}

	plain := errors.New("plain")
	if WithPath(plain, "x") != plain {
		t.Error("WithPath should return non-structured errors unchanged")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseEncode, KindTypeMismatch).
		Path("user", "name").
		GoType("string").
		Schema("int").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "string", "int").
		Build()

	if err.Phase != PhaseEncode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseEncode)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "user" || err.Path[1] != "name" {
		t.Errorf("Path = %v, want [user name]", err.Path)
	}
	if err.GoType != "string" {
		t.Errorf("GoType = %v, want 'string'", err.GoType)
	}
	if err.Schema != "int" {
		t.Errorf("Schema = %v, want 'int'", err.Schema)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected string, got int" {
		t.Errorf("Detail = %v, want 'expected string, got int'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("MalformedInput", func(t *testing.T) {
		err := MalformedInput(PhaseDecode, "need %d bytes", 4)
		if err.Kind != KindMalformedInput {
			t.Errorf("Kind = %v, want %v", err.Kind, KindMalformedInput)
		}
		if err.Detail != "need 4 bytes" {
			t.Errorf("Detail = %q", err.Detail)
		}
	})

	t.Run("InvalidUTF8", func(t *testing.T) {
		err := InvalidUTF8(PhaseDecode, []string{"str"}, []byte{0xff, 0xfe})
		if err.Kind != KindInvalidValue {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidValue)
		}
	})

	t.Run("FieldMissing", func(t *testing.T) {
		err := FieldMissing(PhaseDecode, []string{"record"}, "name")
		if err.Kind != KindFieldMissing {
			t.Errorf("Kind = %v, want %v", err.Kind, KindFieldMissing)
		}
		if err.Value != "name" {
			t.Errorf("Value = %v, want name", err.Value)
		}
	})

	t.Run("FieldUnknown", func(t *testing.T) {
		err := FieldUnknown(PhaseDecode, []string{"record"}, "extra")
		if err.Kind != KindFieldUnknown {
			t.Errorf("Kind = %v, want %v", err.Kind, KindFieldUnknown)
		}
	})

	t.Run("InvalidDiscriminant", func(t *testing.T) {
		err := InvalidDiscriminant(PhaseDecode, []string{"shape"}, 3, 3)
		if err.Kind != KindInvalidValue {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidValue)
		}
		if !strings.Contains(err.Detail, "[0, 3)") {
			t.Errorf("Detail = %q, should mention the range", err.Detail)
		}
	})

	t.Run("NoMatchingBranch", func(t *testing.T) {
		err := NoMatchingBranch([]string{"shape"}, 1.5, "float64")
		if err.Kind != KindNoMatchingBranch || err.Phase != PhaseEncode {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		err := UnsupportedType(nil, "chan int", "channels cannot be serialized")
		if err.Kind != KindUnsupportedType || err.Phase != PhaseDerive {
			t.Errorf("got %v/%v", err.Phase, err.Kind)
		}
	})

	t.Run("DerivationConflict", func(t *testing.T) {
		err := DerivationConflict("main.T", "two codecs")
		if err.Kind != KindDerivationConflict {
			t.Errorf("Kind = %v, want %v", err.Kind, KindDerivationConflict)
		}
	})

	t.Run("NilPointer", func(t *testing.T) {
		err := NilPointer(PhaseEncode, []string{"ptr"}, "*User")
		if err.Kind != KindNilPointer {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNilPointer)
		}
		if err.GoType != "*User" {
			t.Errorf("GoType = %v, want '*User'", err.GoType)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseDecode, []string{"val"}, 300, "byte")
		if err.Kind != KindInvalidValue {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidValue)
		}
		if err.Value != 300 {
			t.Errorf("Value = %v, want 300", err.Value)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		err := NotFound(PhaseSchema, "type", "com.example.User")
		if err.Kind != KindNotFound || !strings.Contains(err.Detail, "com.example.User") {
			t.Errorf("unexpected error %v", err)
		}
	})
}

func TestWithPathCopies(t *testing.T) {
	err := FieldMissing(PhaseDecode, nil, "x")
	wrapped := WithPath(err, "outer")
	if len(err.Path) != 0 {
		t.Errorf("original Path = %v, want empty", err.Path)
	}
	if !errors.Is(wrapped, err) {
		t.Error("copy should match the original by phase and kind")
	}
}
