package wire

import (
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"

	"github.com/wippyai/avro-runtime/errors"
)

// Source is the forward-only byte cursor codecs read from.
type Source interface {
	ReadByte() (byte, error)
	// Next returns the next n bytes and advances past them. The returned
	// slice may alias the source's buffer.
	Next(n int) ([]byte, error)
	// Remaining returns the number of unread bytes.
	Remaining() int
	// Enter and Leave bracket each nested record so that corrupt input
	// cannot recurse without bound.
	Enter() error
	Leave()
}

// Reader is an in-memory Source with position tracking.
type Reader struct {
	Depth
	data []byte
	pos  int
}

// NewReader creates a new Reader over data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Position returns the current byte position.
func (r *Reader) Position() int {
	return r.pos
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

// Reset rewinds the reader to read data from the start.
func (r *Reader) Reset(data []byte) {
	r.data = data
	r.pos = 0
	r.cur = 0
}

// ReadByte reads a single byte and advances the position.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.data) {
		return 0, truncated(r.pos, 1)
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

// Next returns the next n bytes without copying.
func (r *Reader) Next(n int) ([]byte, error) {
	if n < 0 {
		return nil, errors.MalformedInput(errors.PhaseDecode, "negative length %d at offset %d", n, r.pos)
	}
	if n > len(r.data)-r.pos {
		return nil, truncated(r.pos, n)
	}
	b := r.data[r.pos : r.pos+n : r.pos+n]
	r.pos += n
	return b, nil
}

func truncated(pos, want int) error {
	return errors.New(errors.PhaseDecode, errors.KindMalformedInput).
		Cause(io.ErrUnexpectedEOF).
		Detail("need %d bytes at offset %d", want, pos).
		Build()
}

// ReadUvarint reads a base-128 unsigned varint.
func ReadUvarint(s Source) (uint64, error) {
	var result uint64
	var shift uint
	for i := 0; i < MaxVarintLen64; i++ {
		b, err := s.ReadByte()
		if err != nil {
			return 0, err
		}
		if i == MaxVarintLen64-1 && b > 1 {
			break
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
	}
	return 0, errors.New(errors.PhaseDecode, errors.KindMalformedInput).
		Cause(ErrOverflow).
		Detail("varint longer than 64 bits").
		Build()
}

// ReadLong reads a zig-zag varint.
func ReadLong(s Source) (int64, error) {
	u, err := ReadUvarint(s)
	if err != nil {
		return 0, err
	}
	return Unzigzag(u), nil
}

// ReadInt reads a zig-zag varint and checks that it fits 32 bits.
func ReadInt(s Source) (int32, error) {
	n, err := ReadLong(s)
	if err != nil {
		return 0, err
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, errors.Overflow(errors.PhaseDecode, nil, n, "int")
	}
	return int32(n), nil
}

// ReadBoolean reads one byte, which must be 0 or 1.
func ReadBoolean(s Source) (bool, error) {
	b, err := s.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, errors.InvalidValue(errors.PhaseDecode, nil, b, "boolean byte must be 0 or 1, got %d", b)
}

// ReadFloat reads a little-endian IEEE-754 float32.
func ReadFloat(s Source) (float32, error) {
	b, err := s.Next(4)
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(b)), nil
}

// ReadDouble reads a little-endian IEEE-754 float64.
func ReadDouble(s Source) (float64, error) {
	b, err := s.Next(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// ReadBytes reads a long length prefix and that many bytes. The result is
// a copy the caller owns.
func ReadBytes(s Source) ([]byte, error) {
	n, err := readLength(s)
	if err != nil {
		return nil, err
	}
	b, err := s.Next(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadString reads a length-prefixed UTF-8 string.
func ReadString(s Source) (string, error) {
	n, err := readLength(s)
	if err != nil {
		return "", err
	}
	b, err := s.Next(n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.InvalidUTF8(errors.PhaseDecode, nil, b)
	}
	return string(b), nil
}

// ReadFixed reads exactly n bytes into a new slice.
func ReadFixed(s Source, n int) ([]byte, error) {
	b, err := s.Next(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// readLength reads a length prefix and rejects values that cannot be
// satisfied by the bytes left in s.
func readLength(s Source) (int, error) {
	n, err := ReadLong(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.MalformedInput(errors.PhaseDecode, "negative length %d", n)
	}
	if n > int64(s.Remaining()) {
		return 0, errors.New(errors.PhaseDecode, errors.KindMalformedInput).
			Cause(io.ErrUnexpectedEOF).
			Detail("length %d exceeds %d remaining bytes", n, s.Remaining()).
			Build()
	}
	return int(n), nil
}

// BlockCount reads an array or map block header. A negative count is
// followed by the block's byte size, which is returned as size; otherwise
// size is -1.
func BlockCount(s Source) (count int64, size int64, err error) {
	count, err = ReadLong(s)
	if err != nil {
		return 0, 0, err
	}
	size = -1
	if count < 0 {
		if count == math.MinInt64 {
			return 0, 0, errors.MalformedInput(errors.PhaseDecode, "block count overflow")
		}
		count = -count
		size, err = ReadLong(s)
		if err != nil {
			return 0, 0, err
		}
		if size < 0 {
			return 0, 0, errors.MalformedInput(errors.PhaseDecode, "negative block size %d", size)
		}
	}
	return count, size, nil
}
