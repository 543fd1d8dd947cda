// Package coerce converts host and JSON numbers between Go types with range
// checks. JSON value trees carry numbers as float64, int64 or a json.Number,
// and host values may be any named integer or float kind.
package coerce
