package container

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"
	"sort"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/wippyai/avro-runtime/errors"
)

// Codec names stored under avro.codec.
const (
	Null      = "null"
	Deflate   = "deflate"
	Snappy    = "snappy"
	Zstandard = "zstandard"
	// LZ4 is not part of the Avro standard: blocks are a 4-byte big-endian
	// uncompressed length followed by an LZ4 block, or the raw data when
	// the two lengths match.
	LZ4 = "lz4"
)

// Compression compresses the data section of container blocks.
// Implementations are safe for concurrent use.
type Compression interface {
	Name() string
	Compress(src []byte) ([]byte, error)
	// Decompress fails when the result would exceed limit bytes.
	Decompress(src []byte, limit int) ([]byte, error)
}

var compressions = map[string]Compression{
	Null:      nullCompression{},
	Deflate:   deflateCompression{},
	Snappy:    snappyCompression{},
	Zstandard: zstdCompression{},
	LZ4:       lz4Compression{},
}

// CompressionFor returns the compression registered under name.
func CompressionFor(name string) (Compression, error) {
	c, ok := compressions[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseContainer, "codec", name)
	}
	return c, nil
}

// Compressions lists the supported codec names in sorted order.
func Compressions() []string {
	names := make([]string, 0, len(compressions))
	for name := range compressions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func tooLarge(name string, limit int) error {
	return errors.MalformedInput(errors.PhaseContainer, "%s block inflates beyond %d bytes", name, limit)
}

func corrupt(name string, err error) error {
	return errors.Wrap(errors.PhaseContainer, errors.KindMalformedInput, err, name+" block is corrupt")
}

type nullCompression struct{}

func (nullCompression) Name() string                        { return Null }
func (nullCompression) Compress(src []byte) ([]byte, error) { return src, nil }

func (nullCompression) Decompress(src []byte, limit int) ([]byte, error) {
	if len(src) > limit {
		return nil, tooLarge(Null, limit)
	}
	return src, nil
}

// deflateCompression is raw RFC 1951 deflate without zlib framing.
type deflateCompression struct{}

func (deflateCompression) Name() string { return Deflate }

func (deflateCompression) Compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	fw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(src); err != nil {
		return nil, err
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (deflateCompression) Decompress(src []byte, limit int) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(src))
	defer fr.Close()
	out, err := io.ReadAll(io.LimitReader(fr, int64(limit)+1))
	if err != nil {
		return nil, corrupt(Deflate, err)
	}
	if len(out) > limit {
		return nil, tooLarge(Deflate, limit)
	}
	return out, nil
}

// snappyCompression appends the big-endian CRC-32 of the uncompressed data.
type snappyCompression struct{}

func (snappyCompression) Name() string { return Snappy }

func (snappyCompression) Compress(src []byte) ([]byte, error) {
	out := snappy.Encode(nil, src)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(src)), nil
}

func (snappyCompression) Decompress(src []byte, limit int) ([]byte, error) {
	if len(src) < 4 {
		return nil, errors.MalformedInput(errors.PhaseContainer, "snappy block shorter than its checksum")
	}
	body, sum := src[:len(src)-4], binary.BigEndian.Uint32(src[len(src)-4:])
	n, err := snappy.DecodedLen(body)
	if err != nil {
		return nil, corrupt(Snappy, err)
	}
	if n > limit {
		return nil, tooLarge(Snappy, limit)
	}
	out, err := snappy.Decode(nil, body)
	if err != nil {
		return nil, corrupt(Snappy, err)
	}
	if crc32.ChecksumIEEE(out) != sum {
		return nil, errors.MalformedInput(errors.PhaseContainer, "snappy block checksum mismatch")
	}
	return out, nil
}

// zstdEncoder and zstdDecoder are shared; both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("container: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("container: zstd decoder initialization failed: " + err.Error())
	}
}

type zstdCompression struct{}

func (zstdCompression) Name() string { return Zstandard }

func (zstdCompression) Compress(src []byte) ([]byte, error) {
	return zstdEncoder.EncodeAll(src, nil), nil
}

func (zstdCompression) Decompress(src []byte, limit int) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(src, nil)
	if err != nil {
		return nil, corrupt(Zstandard, err)
	}
	if len(out) > limit {
		return nil, tooLarge(Zstandard, limit)
	}
	return out, nil
}

type lz4Compression struct{}

func (lz4Compression) Name() string { return LZ4 }

func (lz4Compression) Compress(src []byte) ([]byte, error) {
	out := make([]byte, 4+lz4.CompressBlockBound(len(src)))
	binary.BigEndian.PutUint32(out, uint32(len(src)))
	n, err := lz4.CompressBlock(src, out[4:], nil)
	if err != nil {
		return nil, err
	}
	if n == 0 || n >= len(src) {
		// Incompressible: store the raw bytes.
		return append(out[:4], src...), nil
	}
	return out[:4+n], nil
}

func (lz4Compression) Decompress(src []byte, limit int) ([]byte, error) {
	if len(src) < 4 {
		return nil, errors.MalformedInput(errors.PhaseContainer, "lz4 block shorter than its length prefix")
	}
	n := int(binary.BigEndian.Uint32(src))
	if n > limit {
		return nil, tooLarge(LZ4, limit)
	}
	body := src[4:]
	if len(body) == n {
		return body, nil
	}
	out := make([]byte, n)
	read, err := lz4.UncompressBlock(body, out)
	if err != nil {
		return nil, corrupt(LZ4, err)
	}
	if read != n {
		return nil, errors.MalformedInput(errors.PhaseContainer, "lz4 block: got %d bytes, expected %d", read, n)
	}
	return out, nil
}
