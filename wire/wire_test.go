package wire

import (
	"bytes"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/avro-runtime/errors"
)

func TestZigzag(t *testing.T) {
	tests := []struct {
		n    int64
		want uint64
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{-2, 3},
		{63, 126},
		{-64, 127},
		{64, 128},
		{math.MaxInt64, math.MaxUint64 - 1},
		{math.MinInt64, math.MaxUint64},
	}
	for _, tt := range tests {
		if got := Zigzag(tt.n); got != tt.want {
			t.Errorf("Zigzag(%d) = %d, want %d", tt.n, got, tt.want)
		}
		if got := Unzigzag(tt.want); got != tt.n {
			t.Errorf("Unzigzag(%d) = %d, want %d", tt.want, got, tt.n)
		}
	}
}

func TestEncodeLong(t *testing.T) {
	tests := []struct {
		name string
		n    int64
		want []byte
	}{
		{"zero", 0, []byte{0x00}},
		{"minus one", -1, []byte{0x01}},
		{"one", 1, []byte{0x02}},
		{"63", 63, []byte{0x7e}},
		{"-64", -64, []byte{0x7f}},
		{"64", 64, []byte{0x80, 0x01}},
		{"-65", -65, []byte{0x81, 0x01}},
		{"8192", 8192, []byte{0x80, 0x80, 0x01}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeLong(tt.n)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeLong(%d) = %x, want %x", tt.n, got, tt.want)
			}
			n, err := ReadLong(NewReader(got))
			if err != nil {
				t.Fatalf("ReadLong: %v", err)
			}
			if n != tt.n {
				t.Errorf("ReadLong = %d, want %d", n, tt.n)
			}
		})
	}
}

func TestAppendIntMatchesLong(t *testing.T) {
	for _, n := range []int32{0, 1, -1, 64, -65, math.MaxInt32, math.MinInt32} {
		a := AppendInt(nil, n)
		b := AppendLong(nil, int64(n))
		if !bytes.Equal(a, b) {
			t.Errorf("AppendInt(%d) = %x, AppendLong = %x", n, a, b)
		}
	}
}

func TestLongExtremes(t *testing.T) {
	for _, n := range []int64{math.MaxInt64, math.MinInt64} {
		enc := EncodeLong(n)
		if len(enc) != MaxVarintLen64 {
			t.Errorf("len(EncodeLong(%d)) = %d, want %d", n, len(enc), MaxVarintLen64)
		}
		got, err := ReadLong(NewReader(enc))
		if err != nil {
			t.Fatalf("ReadLong(%x): %v", enc, err)
		}
		if got != n {
			t.Errorf("ReadLong = %d, want %d", got, n)
		}
	}
}

func TestReadLongErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", []byte{0x80}},
		{"overlong", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x02}},
		{"eleven bytes", bytes.Repeat([]byte{0x80}, 11)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadLong(NewReader(tt.data))
			if !errors.IsKind(err, errors.KindMalformedInput) {
				t.Errorf("ReadLong(%x) error = %v, want malformed_input", tt.data, err)
			}
		})
	}
}

func TestReadIntOverflow(t *testing.T) {
	_, err := ReadInt(NewReader(EncodeLong(math.MaxInt32 + 1)))
	if !errors.IsKind(err, errors.KindInvalidValue) {
		t.Errorf("ReadInt error = %v, want invalid_value", err)
	}
}

func TestWriterPrimitives(t *testing.T) {
	w := NewWriter()
	_ = WriteBoolean(w, true)
	_ = WriteInt(w, -3)
	_ = WriteLong(w, 300)
	_ = WriteFloat(w, 1.5)
	_ = WriteDouble(w, -2.25)
	_ = WriteString(w, "héllo")
	_ = WriteBytes(w, []byte{0xde, 0xad})
	_ = WriteFixed(w, []byte{1, 2, 3})

	r := NewReader(w.Bytes())
	b, err := ReadBoolean(r)
	if err != nil || !b {
		t.Fatalf("ReadBoolean = %v, %v", b, err)
	}
	i, err := ReadInt(r)
	if err != nil || i != -3 {
		t.Fatalf("ReadInt = %d, %v", i, err)
	}
	l, err := ReadLong(r)
	if err != nil || l != 300 {
		t.Fatalf("ReadLong = %d, %v", l, err)
	}
	f, err := ReadFloat(r)
	if err != nil || f != 1.5 {
		t.Fatalf("ReadFloat = %v, %v", f, err)
	}
	d, err := ReadDouble(r)
	if err != nil || d != -2.25 {
		t.Fatalf("ReadDouble = %v, %v", d, err)
	}
	s, err := ReadString(r)
	if err != nil || s != "héllo" {
		t.Fatalf("ReadString = %q, %v", s, err)
	}
	bs, err := ReadBytes(r)
	if err != nil {
		t.Fatalf("ReadBytes: %v", err)
	}
	if diff := cmp.Diff([]byte{0xde, 0xad}, bs); diff != "" {
		t.Errorf("ReadBytes mismatch (-want +got):\n%s", diff)
	}
	fx, err := ReadFixed(r, 3)
	if err != nil {
		t.Fatalf("ReadFixed: %v", err)
	}
	if diff := cmp.Diff([]byte{1, 2, 3}, fx); diff != "" {
		t.Errorf("ReadFixed mismatch (-want +got):\n%s", diff)
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining = %d, want 0", r.Remaining())
	}
}

func TestFloatLittleEndian(t *testing.T) {
	w := NewWriter()
	_ = WriteFloat(w, 1.0)
	if want := []byte{0x00, 0x00, 0x80, 0x3f}; !bytes.Equal(w.Bytes(), want) {
		t.Errorf("WriteFloat(1.0) = %x, want %x", w.Bytes(), want)
	}
	w.Reset()
	_ = WriteDouble(w, 1.0)
	if want := []byte{0, 0, 0, 0, 0, 0, 0xf0, 0x3f}; !bytes.Equal(w.Bytes(), want) {
		t.Errorf("WriteDouble(1.0) = %x, want %x", w.Bytes(), want)
	}
}

func TestSinkIsBuffer(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteString(&buf, "ab"); err != nil {
		t.Fatal(err)
	}
	if err := WriteLong(&buf, 64); err != nil {
		t.Fatal(err)
	}
	if want := []byte{0x04, 'a', 'b', 0x80, 0x01}; !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("buffer = %x, want %x", buf.Bytes(), want)
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		read func(*Reader) error
		data []byte
		kind errors.Kind
	}{
		{"bool 2", func(r *Reader) error { _, err := ReadBoolean(r); return err }, []byte{2}, errors.KindInvalidValue},
		{"short float", func(r *Reader) error { _, err := ReadFloat(r); return err }, []byte{1, 2}, errors.KindMalformedInput},
		{"short double", func(r *Reader) error { _, err := ReadDouble(r); return err }, []byte{1, 2, 3, 4}, errors.KindMalformedInput},
		{"string past end", func(r *Reader) error { _, err := ReadString(r); return err }, []byte{0x0a, 'a'}, errors.KindMalformedInput},
		{"negative length", func(r *Reader) error { _, err := ReadBytes(r); return err }, []byte{0x01}, errors.KindMalformedInput},
		{"bad utf8", func(r *Reader) error { _, err := ReadString(r); return err }, []byte{0x02, 0xff}, errors.KindInvalidValue},
		{"short fixed", func(r *Reader) error { _, err := ReadFixed(r, 4); return err }, []byte{1}, errors.KindMalformedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.read(NewReader(tt.data))
			if !errors.IsKind(err, tt.kind) {
				t.Errorf("error = %v, want %s", err, tt.kind)
			}
		})
	}
}

func TestBlockCount(t *testing.T) {
	w := NewWriter()
	_ = WriteLong(w, 3)
	_ = WriteLong(w, -2)
	_ = WriteLong(w, 10)
	r := NewReader(w.Bytes())

	n, size, err := BlockCount(r)
	if err != nil || n != 3 || size != -1 {
		t.Fatalf("BlockCount = %d, %d, %v; want 3, -1", n, size, err)
	}
	n, size, err = BlockCount(r)
	if err != nil || n != 2 || size != 10 {
		t.Fatalf("BlockCount = %d, %d, %v; want 2, 10", n, size, err)
	}
}

func TestReaderPosition(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4})
	if _, err := r.Next(3); err != nil {
		t.Fatal(err)
	}
	if r.Position() != 3 || r.Remaining() != 1 {
		t.Errorf("Position, Remaining = %d, %d; want 3, 1", r.Position(), r.Remaining())
	}
	r.Reset([]byte{9})
	b, err := r.ReadByte()
	if err != nil || b != 9 {
		t.Errorf("ReadByte after Reset = %d, %v", b, err)
	}
}

func TestStreamReader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter()
	if err := WriteLong(w, 300); err != nil {
		t.Fatal(err)
	}
	if err := WriteString(w, "abc"); err != nil {
		t.Fatal(err)
	}
	buf.Write(w.Bytes())

	s := NewStreamReader(&buf, 64)
	n, err := ReadLong(s)
	if err != nil || n != 300 {
		t.Fatalf("ReadLong = %d, %v; want 300", n, err)
	}
	str, err := ReadString(s)
	if err != nil || str != "abc" {
		t.Fatalf("ReadString = %q, %v; want abc", str, err)
	}
	if s.Position() != int64(len(w.Bytes())) {
		t.Errorf("Position = %d, want %d", s.Position(), len(w.Bytes()))
	}
	if eof, err := s.AtEOF(); !eof || err != nil {
		t.Errorf("AtEOF = %v, %v; want true", eof, err)
	}
	if _, err := s.ReadByte(); !errors.IsKind(err, errors.KindMalformedInput) {
		t.Errorf("ReadByte at EOF error = %v, want malformed_input", err)
	}
}

func TestStreamReaderBudget(t *testing.T) {
	// A length prefix of 100 with a 10 byte budget must not allocate.
	s := NewStreamReader(bytes.NewReader(EncodeLong(100)), 10)
	if _, err := ReadBytes(s); !errors.IsKind(err, errors.KindMalformedInput) {
		t.Errorf("ReadBytes over budget error = %v, want malformed_input", err)
	}
	s = NewStreamReader(bytes.NewReader([]byte{1, 2, 3}), 2)
	if _, err := s.Next(3); !errors.IsKind(err, errors.KindMalformedInput) {
		t.Errorf("Next over budget error = %v, want malformed_input", err)
	}
	s.SetBudget(3)
	if b, err := s.Next(3); err != nil || len(b) != 3 {
		t.Errorf("Next after SetBudget = %v, %v", b, err)
	}
}

func TestDepth(t *testing.T) {
	r := NewReader(nil)
	r.SetMaxDepth(2)
	if err := r.Enter(); err != nil {
		t.Fatalf("Enter 1 failed: %v", err)
	}
	if err := r.Enter(); err != nil {
		t.Fatalf("Enter 2 failed: %v", err)
	}
	if err := r.Enter(); !errors.IsKind(err, errors.KindMalformedInput) {
		t.Errorf("Enter 3 error = %v, want malformed_input", err)
	}
	r.Leave()
	if err := r.Enter(); err != nil {
		t.Errorf("Enter after Leave failed: %v", err)
	}

	var s StreamReader
	for i := 0; i < DefaultMaxDepth; i++ {
		if err := s.Enter(); err != nil {
			t.Fatalf("Enter %d failed: %v", i+1, err)
		}
	}
	if err := s.Enter(); !errors.IsKind(err, errors.KindMalformedInput) {
		t.Errorf("Enter past default error = %v, want malformed_input", err)
	}
}
