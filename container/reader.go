package container

import (
	"bytes"
	"context"
	"io"
	"reflect"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/avro-runtime/codec"
	"github.com/wippyai/avro-runtime/errors"
	"github.com/wippyai/avro-runtime/schema"
	"github.com/wippyai/avro-runtime/wire"
)

type readerConfig struct {
	maxBlockSize int
}

// ReaderOption configures a Reader.
type ReaderOption func(*readerConfig)

// WithMaxBlockSize bounds header metadata, stored block size and
// decompressed block size. The default is DefaultMaxBlockSize.
func WithMaxBlockSize(n int) ReaderOption {
	return func(c *readerConfig) { c.maxBlockSize = n }
}

// Block is one stored block as read from the file, still compressed.
type Block struct {
	Index int
	Count int64
	Raw   []byte
}

// Reader reads an object container file. Values are decoded with the codec
// bound by Bind, BindType or BindSchema, which must describe a schema
// structurally equal to the file's.
type Reader struct {
	src      *wire.StreamReader
	header   *Header
	comp     Compression
	maxBlock int
	codec    codec.Codec

	blocks  int
	current *wire.Reader
	left    int64
	block   int
	done    bool
}

// NewReader reads the header from in.
func NewReader(in io.Reader, opts ...ReaderOption) (*Reader, error) {
	cfg := readerConfig{maxBlockSize: DefaultMaxBlockSize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.maxBlockSize <= 0 {
		return nil, errors.InvalidInput(errors.PhaseContainer, "max block size must be positive, got %d", cfg.maxBlockSize)
	}
	src := wire.NewStreamReader(in, 0)
	h, err := readHeader(src, cfg.maxBlockSize)
	if err != nil {
		return nil, err
	}
	comp, err := CompressionFor(h.Codec)
	if err != nil {
		return nil, err
	}
	Logger().Debug("container opened for reading",
		zap.String("schema", h.Schema.TypeName()),
		zap.String("codec", h.Codec))
	return &Reader{src: src, header: h, comp: comp, maxBlock: cfg.maxBlockSize}, nil
}

// Header returns the decoded file header.
func (r *Reader) Header() *Header { return r.header }

// Schema returns the writer's schema.
func (r *Reader) Schema() *schema.Descriptor { return r.header.Schema }

// Bind sets the codec values are decoded with.
func (r *Reader) Bind(c codec.Codec) error {
	if !schema.Equal(c.Schema(), r.header.Schema) {
		return errors.New(errors.PhaseContainer, errors.KindTypeMismatch).
			GoType(c.Type().String()).
			Schema(r.header.Schema.TypeName()).
			Detail("reader schema %s differs from the file schema", c.Schema().TypeName()).
			Build()
	}
	r.codec = c
	return nil
}

// BindSchema decodes values with a schema-driven codec for the file schema.
func (r *Reader) BindSchema(reg *codec.Registry) error {
	c, err := reg.CodecForSchema(r.header.Schema)
	if err != nil {
		return err
	}
	r.codec = c
	return nil
}

// BindType decodes values as T.
func BindType[T any](r *Reader, reg *codec.Registry) error {
	c, err := codec.CodecOf[T](reg)
	if err != nil {
		return err
	}
	return r.Bind(c)
}

func (r *Reader) needCodec() error {
	if r.codec == nil {
		return errors.InvalidInput(errors.PhaseContainer, "no codec bound; call Bind, BindType or BindSchema")
	}
	return nil
}

// NextBlock reads the next stored block. It returns io.EOF after the last
// block. Values of a partly consumed block are discarded.
func (r *Reader) NextBlock() (*Block, error) {
	if r.done {
		return nil, io.EOF
	}
	r.current, r.left = nil, 0
	if eof, err := r.src.AtEOF(); err != nil {
		return nil, malformed(err, "reading block")
	} else if eof {
		r.done = true
		return nil, io.EOF
	}

	r.src.SetBudget(2 * wire.MaxVarintLen64)
	count, err := wire.ReadLong(r.src)
	if err != nil {
		return nil, malformed(err, "reading count of block %d", r.blocks)
	}
	size, err := wire.ReadLong(r.src)
	if err != nil {
		return nil, malformed(err, "reading size of block %d", r.blocks)
	}
	if count < 0 || size < 0 {
		return nil, malformed(nil, "block %d has count %d and size %d", r.blocks, count, size)
	}
	if size > int64(r.maxBlock) || count > int64(r.maxBlock) {
		return nil, malformed(nil, "block %d exceeds the %d byte limit", r.blocks, r.maxBlock)
	}
	r.src.SetBudget(int(size) + SyncSize)
	raw, err := r.src.Next(int(size))
	if err != nil {
		return nil, malformed(err, "reading data of block %d", r.blocks)
	}
	sync, err := r.src.Next(SyncSize)
	if err != nil {
		return nil, malformed(err, "reading sync marker of block %d", r.blocks)
	}
	if !bytes.Equal(sync, r.header.Sync[:]) {
		return nil, malformed(nil, "sync marker mismatch after block %d", r.blocks)
	}
	b := &Block{Index: r.blocks, Count: count, Raw: raw}
	r.blocks++
	return b, nil
}

// DecodeBlock decompresses b and decodes its values. It is safe to call
// from several goroutines.
func (r *Reader) DecodeBlock(b *Block) ([]any, error) {
	if err := r.needCodec(); err != nil {
		return nil, err
	}
	data, err := r.comp.Decompress(b.Raw, r.maxBlock)
	if err != nil {
		return nil, errors.WithPath(err, blockPath(b.Index))
	}
	src := wire.NewReader(data)
	out := make([]any, 0, min(b.Count, int64(len(data))+1))
	for i := int64(0); i < b.Count; i++ {
		v, err := r.codec.Read(src)
		if err != nil {
			return nil, errors.WithPath(err, blockPath(b.Index), "["+strconv.FormatInt(i, 10)+"]")
		}
		out = append(out, v.Interface())
	}
	if src.Remaining() != 0 {
		return nil, malformed(nil, "block %d has %d bytes after its %d values", b.Index, src.Remaining(), b.Count)
	}
	return out, nil
}

func blockPath(i int) string {
	return "block " + strconv.Itoa(i)
}

// Next returns the next value. It returns io.EOF after the last value.
func (r *Reader) Next() (any, error) {
	if err := r.needCodec(); err != nil {
		return nil, err
	}
	for r.left == 0 {
		b, err := r.NextBlock()
		if err != nil {
			return nil, err
		}
		data, err := r.comp.Decompress(b.Raw, r.maxBlock)
		if err != nil {
			return nil, errors.WithPath(err, blockPath(b.Index))
		}
		r.current, r.left, r.block = wire.NewReader(data), b.Count, b.Index
	}
	v, err := r.codec.Read(r.current)
	if err != nil {
		return nil, errors.WithPath(err, blockPath(r.block))
	}
	r.left--
	if r.left == 0 && r.current.Remaining() != 0 {
		return nil, malformed(nil, "block %d has %d bytes after its values", r.block, r.current.Remaining())
	}
	return v.Interface(), nil
}

// ReadAll reads every remaining value. Blocks are read sequentially and
// decoded by up to workers goroutines; workers <= 0 means no limit.
func ReadAll(ctx context.Context, r *Reader, workers int) ([]any, error) {
	if err := r.needCodec(); err != nil {
		return nil, err
	}
	start := time.Now()
	var out []any
	for r.left > 0 {
		v, err := r.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	var blocks []*Block
	for {
		b, err := r.NextBlock()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}

	results := make([][]any, len(blocks))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, b := range blocks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vals, err := r.DecodeBlock(b)
			if err != nil {
				return err
			}
			results[i] = vals
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, vals := range results {
		out = append(out, vals...)
	}
	Logger().Debug("container read",
		zap.Int("blocks", len(blocks)),
		zap.Int("values", len(out)),
		zap.Int("workers", workers),
		zap.Duration("elapsed", time.Since(start)))
	return out, nil
}

// ReadAllOf reads every remaining value as T. r must be bound to T's codec.
func ReadAllOf[T any](ctx context.Context, r *Reader, workers int) ([]T, error) {
	vals, err := ReadAll(ctx, r, workers)
	if err != nil {
		return nil, err
	}
	out := make([]T, len(vals))
	for i, v := range vals {
		t, ok := v.(T)
		if !ok && v != nil {
			return nil, errors.TypeMismatch(errors.PhaseContainer, nil, typeName(v), codec.TypeOf[T]().String())
		}
		out[i] = t
	}
	return out, nil
}

func typeName(v any) string {
	return reflect.TypeOf(v).String()
}
