package container

import (
	"io"
	"reflect"

	"go.uber.org/zap"

	"github.com/wippyai/avro-runtime/codec"
	"github.com/wippyai/avro-runtime/errors"
	"github.com/wippyai/avro-runtime/wire"
)

// DefaultBlockItems is the number of values buffered per block.
const DefaultBlockItems = 4000

type writerConfig struct {
	compression string
	blockItems  int
	meta        map[string][]byte
	sync        *[SyncSize]byte
}

// WriterOption configures a Writer.
type WriterOption func(*writerConfig)

// WithCompression selects the block codec by name. The default is Null.
func WithCompression(name string) WriterOption {
	return func(c *writerConfig) { c.compression = name }
}

// WithBlockItems sets how many values are buffered before a block is
// written.
func WithBlockItems(n int) WriterOption {
	return func(c *writerConfig) { c.blockItems = n }
}

// WithMetadata adds a user metadata entry. Keys starting with "avro." are
// reserved.
func WithMetadata(key string, value []byte) WriterOption {
	return func(c *writerConfig) { c.meta[key] = value }
}

// WithSyncMarker fixes the sync marker instead of generating a random one.
func WithSyncMarker(sync [SyncSize]byte) WriterOption {
	return func(c *writerConfig) { c.sync = &sync }
}

// Writer writes values of one codec into an object container file. It is
// not safe for concurrent use.
type Writer struct {
	out        io.Writer
	codec      codec.Codec
	comp       Compression
	sync       [SyncSize]byte
	blockItems int

	block   *wire.Writer
	scratch *wire.Writer
	count   int
	blocks  int
	closed  bool
}

// NewWriter writes the file header to out and returns a Writer for values
// of c.
func NewWriter(out io.Writer, c codec.Codec, opts ...WriterOption) (*Writer, error) {
	cfg := writerConfig{
		compression: Null,
		blockItems:  DefaultBlockItems,
		meta:        make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.blockItems <= 0 {
		return nil, errors.InvalidInput(errors.PhaseContainer, "block items must be positive, got %d", cfg.blockItems)
	}
	comp, err := CompressionFor(cfg.compression)
	if err != nil {
		return nil, err
	}
	for k := range cfg.meta {
		if isReserved(k) {
			return nil, errors.InvalidInput(errors.PhaseContainer, "metadata key %q is reserved", k)
		}
	}

	h := &Header{Schema: c.Schema(), Codec: comp.Name(), Meta: cfg.meta}
	h.Meta[MetaSchema] = []byte(c.Schema().String())
	h.Meta[MetaCodec] = []byte(comp.Name())
	if cfg.sync != nil {
		h.Sync = *cfg.sync
	} else if h.Sync, err = newSync(); err != nil {
		return nil, err
	}

	hw := wire.NewWriter()
	if err := appendHeader(hw, h); err != nil {
		return nil, err
	}
	if _, err := out.Write(hw.Bytes()); err != nil {
		return nil, errors.Wrap(errors.PhaseContainer, errors.KindInvalidInput, err, "writing header")
	}
	Logger().Debug("container opened for writing",
		zap.String("schema", c.Schema().TypeName()),
		zap.String("codec", comp.Name()),
		zap.Int("block_items", cfg.blockItems))

	return &Writer{
		out:        out,
		codec:      c,
		comp:       comp,
		sync:       h.Sync,
		blockItems: cfg.blockItems,
		block:      wire.NewWriter(),
		scratch:    wire.NewWriter(),
	}, nil
}

// Append adds v to the current block. A nil v is the zero value of the
// codec's type.
func (w *Writer) Append(v any) error {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		rv = reflect.Zero(w.codec.Type())
	}
	return w.AppendValue(rv)
}

// AppendValue adds v to the current block. A value that fails to encode
// leaves the block unchanged.
func (w *Writer) AppendValue(v reflect.Value) error {
	if w.closed {
		return errors.InvalidInput(errors.PhaseContainer, "writer is closed")
	}
	w.scratch.Reset()
	if err := w.codec.Write(w.scratch, v); err != nil {
		return err
	}
	if _, err := w.block.Write(w.scratch.Bytes()); err != nil {
		return err
	}
	w.count++
	if w.count >= w.blockItems {
		return w.Flush()
	}
	return nil
}

// Append adds v using T's static type, so interface and option values
// keep their union semantics.
func Append[T any](w *Writer, v T) error {
	return w.AppendValue(reflect.ValueOf(&v).Elem())
}

// Flush writes the buffered values as one block. It does nothing when no
// values are buffered.
func (w *Writer) Flush() error {
	if w.count == 0 {
		return nil
	}
	data, err := w.comp.Compress(w.block.Bytes())
	if err != nil {
		return errors.Wrap(errors.PhaseContainer, errors.KindInvalidValue, err, "compressing block")
	}
	frame := wire.NewWriterSize(2*wire.MaxVarintLen64 + len(data) + SyncSize)
	_ = wire.WriteLong(frame, int64(w.count))
	_ = wire.WriteLong(frame, int64(len(data)))
	_, _ = frame.Write(data)
	_, _ = frame.Write(w.sync[:])
	if _, err := w.out.Write(frame.Bytes()); err != nil {
		return errors.Wrap(errors.PhaseContainer, errors.KindInvalidInput, err, "writing block")
	}
	Logger().Debug("block written",
		zap.Int("block", w.blocks),
		zap.Int("items", w.count),
		zap.Int("raw_bytes", w.block.Len()),
		zap.Int("stored_bytes", len(data)))
	w.blocks++
	w.count = 0
	w.block.Reset()
	return nil
}

// Close flushes the last block. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	err := w.Flush()
	w.closed = true
	return err
}
