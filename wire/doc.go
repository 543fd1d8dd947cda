// Package wire implements the Avro binary encoding of scalar values.
//
// Integers use zig-zag variable-length encoding: n is mapped to
// (n << 1) ^ (n >> 63) and emitted as base-128 groups, least significant
// group first, with the high bit set on every byte but the last.
//
//	value   zig-zag   bytes
//	─────────────────────────
//	0       0         00
//	-1      1         01
//	1       2         02
//	-64     127       7f
//	64      128       80 01
//
// Floats are 4 bytes and doubles 8 bytes, little-endian IEEE-754. Booleans
// are one byte. Strings and bytes are a long length followed by the raw bytes.
//
// Codecs write to a Sink (any io.ByteWriter that is also an io.Writer, such
// as *Writer, *bytes.Buffer or *bufio.Writer) and read from a Source, a
// forward-only cursor that knows how many bytes remain. Reader is the
// in-memory Source.
package wire
