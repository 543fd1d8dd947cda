package wire

import (
	"encoding/binary"
	"io"
	"math"
)

// Sink is the append-only byte sink codecs write to.
type Sink interface {
	io.ByteWriter
	io.Writer
}

// Writer is an in-memory Sink backed by a growable byte slice.
type Writer struct {
	buf []byte
}

// NewWriter creates a new Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// NewWriterSize creates a Writer with the given initial capacity.
func NewWriterSize(n int) *Writer {
	return &Writer{buf: make([]byte, 0, n)}
}

// Bytes returns the written bytes. The slice aliases the Writer's buffer
// until the next write or Reset.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Reset discards the written bytes and keeps the capacity.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}

// WriteByte writes a single byte.
func (w *Writer) WriteByte(b byte) error {
	w.buf = append(w.buf, b)
	return nil
}

// Write appends p.
func (w *Writer) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

// WriteLong writes the zig-zag varint encoding of n.
func WriteLong(s Sink, n int64) error {
	if w, ok := s.(*Writer); ok {
		w.buf = AppendLong(w.buf, n)
		return nil
	}
	var scratch [MaxVarintLen64]byte
	_, err := s.Write(AppendLong(scratch[:0], n))
	return err
}

// WriteInt writes the zig-zag varint encoding of a 32-bit n.
func WriteInt(s Sink, n int32) error {
	if w, ok := s.(*Writer); ok {
		w.buf = AppendInt(w.buf, n)
		return nil
	}
	var scratch [MaxVarintLen64]byte
	_, err := s.Write(AppendInt(scratch[:0], n))
	return err
}

// WriteBoolean writes a single 0 or 1 byte.
func WriteBoolean(s Sink, v bool) error {
	if v {
		return s.WriteByte(1)
	}
	return s.WriteByte(0)
}

// WriteFloat writes a little-endian IEEE-754 float32.
func WriteFloat(s Sink, v float32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
	_, err := s.Write(buf[:])
	return err
}

// WriteDouble writes a little-endian IEEE-754 float64.
func WriteDouble(s Sink, v float64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
	_, err := s.Write(buf[:])
	return err
}

// WriteBytes writes a long length prefix followed by data.
func WriteBytes(s Sink, data []byte) error {
	if err := WriteLong(s, int64(len(data))); err != nil {
		return err
	}
	_, err := s.Write(data)
	return err
}

// WriteString writes a long length prefix followed by the UTF-8 bytes of v.
func WriteString(s Sink, v string) error {
	if err := WriteLong(s, int64(len(v))); err != nil {
		return err
	}
	if sw, ok := s.(io.StringWriter); ok {
		_, err := sw.WriteString(v)
		return err
	}
	_, err := s.Write([]byte(v))
	return err
}

// WriteString appends v without a length prefix.
func (w *Writer) WriteString(v string) (int, error) {
	w.buf = append(w.buf, v...)
	return len(v), nil
}

// WriteFixed writes data verbatim with no prefix.
func WriteFixed(s Sink, data []byte) error {
	_, err := s.Write(data)
	return err
}
