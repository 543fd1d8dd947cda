package container

import (
	"bytes"
	"crypto/rand"
	"sort"
	"strings"

	"github.com/wippyai/avro-runtime/errors"
	"github.com/wippyai/avro-runtime/schema"
	"github.com/wippyai/avro-runtime/wire"
)

// Magic opens every object container file.
var Magic = [4]byte{'O', 'b', 'j', 1}

// SyncSize is the length of the sync marker that ends the header and
// every block.
const SyncSize = 16

// Reserved metadata keys.
const (
	MetaSchema = "avro.schema"
	MetaCodec  = "avro.codec"
)

// DefaultMaxBlockSize bounds compressed and decompressed block sizes and
// header metadata when reading.
const DefaultMaxBlockSize = 64 << 20

// Header is the decoded file header.
type Header struct {
	Schema *schema.Descriptor
	Codec  string
	// Meta holds every metadata entry, reserved keys included.
	Meta map[string][]byte
	Sync [SyncSize]byte
}

// newSync returns a random sync marker.
func newSync() ([SyncSize]byte, error) {
	var s [SyncSize]byte
	if _, err := rand.Read(s[:]); err != nil {
		return s, errors.Wrap(errors.PhaseContainer, errors.KindInvalidInput, err, "generating sync marker")
	}
	return s, nil
}

func isReserved(key string) bool {
	return strings.HasPrefix(key, "avro.")
}

// appendHeader encodes h, writing metadata keys in sorted order.
func appendHeader(w *wire.Writer, h *Header) error {
	if _, err := w.Write(Magic[:]); err != nil {
		return err
	}
	keys := make([]string, 0, len(h.Meta))
	for k := range h.Meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if err := wire.WriteLong(w, int64(len(keys))); err != nil {
		return err
	}
	for _, k := range keys {
		if err := wire.WriteString(w, k); err != nil {
			return err
		}
		if err := wire.WriteBytes(w, h.Meta[k]); err != nil {
			return err
		}
	}
	if err := wire.WriteLong(w, 0); err != nil {
		return err
	}
	_, err := w.Write(h.Sync[:])
	return err
}

func malformed(cause error, detail string, args ...any) error {
	return errors.New(errors.PhaseContainer, errors.KindMalformedInput).
		Cause(cause).
		Detail(detail, args...).
		Build()
}

// readHeader decodes the file header. The metadata map may use any
// blocking; its total size is bounded by limit.
func readHeader(s *wire.StreamReader, limit int) (*Header, error) {
	s.SetBudget(len(Magic))
	magic, err := s.Next(len(Magic))
	if err != nil {
		return nil, malformed(err, "reading magic")
	}
	if !bytes.Equal(magic, Magic[:]) {
		return nil, malformed(nil, "not an object container file: magic %q", magic)
	}

	s.SetBudget(limit)
	h := &Header{Meta: make(map[string][]byte)}
	for {
		n, _, err := wire.BlockCount(s)
		if err != nil {
			return nil, malformed(err, "reading metadata")
		}
		if n == 0 {
			break
		}
		if n > int64(s.Remaining()) {
			return nil, malformed(nil, "metadata block of %d entries exceeds the size limit", n)
		}
		for i := int64(0); i < n; i++ {
			k, err := wire.ReadString(s)
			if err != nil {
				return nil, malformed(err, "reading metadata key")
			}
			v, err := wire.ReadBytes(s)
			if err != nil {
				return nil, malformed(err, "reading metadata value for %q", k)
			}
			h.Meta[k] = v
		}
	}
	s.SetBudget(SyncSize)
	sync, err := s.Next(SyncSize)
	if err != nil {
		return nil, malformed(err, "reading sync marker")
	}
	copy(h.Sync[:], sync)

	text, ok := h.Meta[MetaSchema]
	if !ok {
		return nil, malformed(nil, "header has no %s", MetaSchema)
	}
	if h.Schema, err = schema.Parse(text); err != nil {
		return nil, malformed(err, "parsing %s", MetaSchema)
	}
	h.Codec = Null
	if c, ok := h.Meta[MetaCodec]; ok && len(c) > 0 {
		h.Codec = string(c)
	}
	return h, nil
}
