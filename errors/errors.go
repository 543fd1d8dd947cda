package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseDerive    Phase = "derive"    // Go type to codec
	PhaseEncode    Phase = "encode"    // Go value to wire/JSON
	PhaseDecode    Phase = "decode"    // wire/JSON to Go value
	PhaseRegister  Phase = "register"  // registration API
	PhaseSchema    Phase = "schema"    // schema text and validation
	PhaseContainer Phase = "container" // object container files
	PhaseConfig    Phase = "config"    // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindMalformedInput     Kind = "malformed_input"
	KindInvalidValue       Kind = "invalid_value"
	KindNoMatchingBranch   Kind = "no_matching_branch"
	KindFieldMissing       Kind = "field_missing"
	KindFieldUnknown       Kind = "field_unknown"
	KindUnsupportedType    Kind = "unsupported_type"
	KindDerivationConflict Kind = "derivation_conflict"
	KindTypeMismatch       Kind = "type_mismatch"
	KindNilPointer         Kind = "nil_pointer"
	KindNotFound           Kind = "not_found"
	KindInvalidInput       Kind = "invalid_input"
)

// Error is the structured error type used throughout the module
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Schema string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.Schema != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.Schema != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", schema ")
			b.WriteString(e.Schema)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("schema ")
			b.WriteString(e.Schema)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.Schema != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// IsKind reports whether any *Error in err's chain has the given kind,
// regardless of phase.
func IsKind(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if stderrors.As(err, &e) {
			if e.Kind == kind {
				return true
			}
			err = e.Cause
			continue
		}
		return false
	}
	return false
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

// WithPath returns a copy of err with path segments prepended when err is
// an *Error. Other errors are returned unchanged.
func WithPath(err error, segments ...string) error {
	e, ok := err.(*Error)
	if !ok || len(segments) == 0 {
		return err
	}
	cp := *e
	cp.Path = make([]string, 0, len(segments)+len(e.Path))
	cp.Path = append(cp.Path, segments...)
	cp.Path = append(cp.Path, e.Path...)
	return &cp
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Schema sets the schema type name
func (b *Builder) Schema(t string) *Builder {
	b.err.Schema = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// MalformedInput creates an error for truncated or corrupt binary input
func MalformedInput(phase Phase, detail string, args ...any) *Error {
	return New(phase, KindMalformedInput).Detail(detail, args...).Build()
}

// InvalidValue creates an error for a value outside its type's domain
func InvalidValue(phase Phase, path []string, value any, detail string, args ...any) *Error {
	return New(phase, KindInvalidValue).Path(path...).Value(value).Detail(detail, args...).Build()
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, schemaType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		GoType: goType,
		Schema: schemaType,
	}
}

// NoMatchingBranch creates an error for a value with no compatible union member
func NoMatchingBranch(path []string, value any, goType string) *Error {
	return &Error{
		Phase:  PhaseEncode,
		Kind:   KindNoMatchingBranch,
		Path:   path,
		GoType: goType,
		Value:  value,
		Detail: "no union member matches the value",
	}
}

// FieldMissing creates a missing field error
func FieldMissing(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldMissing,
		Path:   path,
		Detail: fmt.Sprintf("required field %q not found", fieldName),
		Value:  fieldName,
	}
}

// FieldUnknown creates an unknown field error
func FieldUnknown(phase Phase, path []string, fieldName string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindFieldUnknown,
		Path:   path,
		Detail: fmt.Sprintf("unknown field %q", fieldName),
		Value:  fieldName,
	}
}

// InvalidDiscriminant creates an error for an out-of-range union or enum index
func InvalidDiscriminant(phase Phase, path []string, index int64, count int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidValue,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of range [0, %d)", index, count),
		Value:  index,
	}
}

// Overflow creates an error for a number that does not fit its target type
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidValue,
		Path:   path,
		Schema: targetType,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:  value,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidValue,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// UnsupportedType creates an error for a Go type no derivation rule accepts
func UnsupportedType(path []string, goType string, detail string, args ...any) *Error {
	return New(PhaseDerive, KindUnsupportedType).
		Path(path...).
		GoType(goType).
		Detail(detail, args...).
		Build()
}

// DerivationConflict creates an error for two derivations that disagree
func DerivationConflict(goType string, detail string, args ...any) *Error {
	return New(PhaseDerive, KindDerivationConflict).
		GoType(goType).
		Detail(detail, args...).
		Build()
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string, args ...any) *Error {
	return New(phase, KindInvalidInput).Detail(detail, args...).Build()
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}
