package wire

import (
	"errors"
)

// MaxVarintLen64 is the maximum number of bytes of a zig-zag encoded long.
const MaxVarintLen64 = 10

// ErrOverflow is returned when a varint exceeds 64 bits.
var ErrOverflow = errors.New("varint: overflow")

// Zigzag maps a signed integer onto an unsigned one so that values of small
// magnitude have short encodings.
func Zigzag(n int64) uint64 {
	return uint64((n << 1) ^ (n >> 63))
}

// Unzigzag reverses Zigzag.
func Unzigzag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// AppendUvarint appends the base-128 encoding of v to buf.
func AppendUvarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

// AppendLong appends the zig-zag varint encoding of n to buf.
func AppendLong(buf []byte, n int64) []byte {
	return AppendUvarint(buf, Zigzag(n))
}

// AppendInt appends the zig-zag varint encoding of a 32-bit n to buf.
// The bytes are identical to AppendLong(buf, int64(n)).
func AppendInt(buf []byte, n int32) []byte {
	return AppendUvarint(buf, uint64(uint32((n<<1)^(n>>31))))
}

// EncodeLong returns the zig-zag varint encoding of n.
func EncodeLong(n int64) []byte {
	return AppendLong(make([]byte, 0, MaxVarintLen64), n)
}
