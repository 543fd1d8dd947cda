package container

import (
	"bytes"
	"testing"

	"github.com/wippyai/avro-runtime/errors"
)

func TestCompressions(t *testing.T) {
	src := bytes.Repeat([]byte("avro container block "), 200)
	for _, name := range Compressions() {
		t.Run(name, func(t *testing.T) {
			c, err := CompressionFor(name)
			if err != nil {
				t.Fatalf("CompressionFor failed: %v", err)
			}
			if c.Name() != name {
				t.Errorf("Name() = %q, want %q", c.Name(), name)
			}
			packed, err := c.Compress(src)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			got, err := c.Decompress(packed, len(src))
			if err != nil {
				t.Fatalf("Decompress failed: %v", err)
			}
			if !bytes.Equal(got, src) {
				t.Errorf("Decompress returned %d bytes, want %d", len(got), len(src))
			}
			if _, err := c.Decompress(packed, len(src)-1); !errors.IsKind(err, errors.KindMalformedInput) {
				t.Errorf("Decompress over limit error = %v, want malformed_input", err)
			}
		})
	}
}

func TestSnappyChecksum(t *testing.T) {
	c, err := CompressionFor(Snappy)
	if err != nil {
		t.Fatalf("CompressionFor failed: %v", err)
	}
	packed, err := c.Compress([]byte("checked payload"))
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	packed[len(packed)-1] ^= 1
	if _, err := c.Decompress(packed, 1<<10); !errors.IsKind(err, errors.KindMalformedInput) {
		t.Errorf("Decompress error = %v, want malformed_input", err)
	}
}

func TestCompressionForUnknown(t *testing.T) {
	if _, err := CompressionFor("bzip2"); !errors.IsKind(err, errors.KindNotFound) {
		t.Errorf("CompressionFor error = %v, want not_found", err)
	}
}
