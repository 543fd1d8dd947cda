package valuefmt

import (
	"io"

	"github.com/fxamacker/cbor/v2"
	"github.com/segmentio/encoding/json"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/avro-runtime/errors"
)

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithIndent indents JSON output and sets the YAML indent width.
func WithIndent(n int) WriterOption {
	return func(w *Writer) { w.indent = n }
}

// Writer writes a sequence of values: JSON one value per line, YAML as a
// document stream, CBOR as a CBOR sequence and diagnostic notation one
// item per line.
type Writer struct {
	out    io.Writer
	format Format
	indent int
	yaml   *yaml.Encoder
	cbor   *cbor.Encoder
	count  int
}

// NewWriter creates a Writer for format f.
func NewWriter(out io.Writer, f Format, opts ...WriterOption) (*Writer, error) {
	if _, err := ParseFormat(string(f)); err != nil {
		return nil, err
	}
	w := &Writer{out: out, format: f}
	for _, opt := range opts {
		opt(w)
	}
	switch f {
	case YAML:
		w.yaml = yaml.NewEncoder(out)
		if w.indent > 0 {
			w.yaml.SetIndent(w.indent)
		}
	case CBOR:
		w.cbor = encMode.NewEncoder(out)
	}
	return w, nil
}

// Write writes one value.
func (w *Writer) Write(v any) error {
	var err error
	switch w.format {
	case YAML:
		err = w.yaml.Encode(v)
	case CBOR:
		err = w.cbor.Encode(v)
	case JSON:
		var data []byte
		if w.indent > 0 {
			data, err = json.MarshalIndent(v, "", spaces(w.indent))
		} else {
			data, err = json.Marshal(v)
		}
		if err == nil {
			_, err = w.out.Write(append(data, '\n'))
		}
	case Diag:
		var data []byte
		if data, err = Marshal(Diag, v); err == nil {
			_, err = w.out.Write(append(data, '\n'))
		}
	}
	if err != nil {
		return encodeErr(w.format, err)
	}
	w.count++
	return nil
}

// Count returns the number of values written.
func (w *Writer) Count() int { return w.count }

// Close finishes the stream. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.yaml != nil {
		if err := w.yaml.Close(); err != nil {
			return encodeErr(w.format, err)
		}
	}
	return nil
}

func spaces(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	return string(b)
}

// Decoder reads a sequence of values written by a Writer.
type Decoder struct {
	format Format
	next   func() (any, error)
}

// NewDecoder creates a Decoder for format f. Diagnostic notation cannot be
// decoded.
func NewDecoder(in io.Reader, f Format) (*Decoder, error) {
	d := &Decoder{format: f}
	switch f {
	case JSON:
		dec := json.NewDecoder(in)
		dec.UseNumber()
		d.next = func() (any, error) {
			var v any
			err := dec.Decode(&v)
			return v, err
		}
	case YAML:
		dec := yaml.NewDecoder(in)
		d.next = func() (any, error) {
			var v any
			err := dec.Decode(&v)
			return v, err
		}
	case CBOR:
		dec := decMode.NewDecoder(in)
		d.next = func() (any, error) {
			var v any
			err := dec.Decode(&v)
			return v, err
		}
	default:
		return nil, errors.InvalidInput(errors.PhaseDecode, "format %q cannot be decoded", f)
	}
	return d, nil
}

// Decode returns the next value in value tree form, or io.EOF after the
// last one.
func (d *Decoder) Decode() (any, error) {
	v, err := d.next()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, decodeErr(d.format, err)
	}
	return Normalize(v), nil
}
