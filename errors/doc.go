// Package errors provides structured error types for the avro-runtime library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: field path, Go/schema type names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindInvalidValue).
//		Path("user", "age").
//		GoType("int64").
//		Schema("int").
//		Detail("value does not fit in 32 bits").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.FieldMissing(errors.PhaseDecode, path, "name")
//	err := errors.InvalidDiscriminant(errors.PhaseDecode, path, 4, 3)
//
// The kinds map onto the codec failure taxonomy: malformed_input for truncated
// or corrupt streams, invalid_value for values outside a type's domain,
// no_matching_branch for union values without a member, field_missing and
// field_unknown for JSON record shape mismatches, unsupported_type for Go types
// no derivation rule accepts, and derivation_conflict for registry invariants.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
