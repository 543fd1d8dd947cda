// Package valuefmt renders and parses JSON value trees in several text and
// binary notations. A value tree is built from nil, bool, int64, float64,
// json.Number, string, []any and map[string]any, as produced by
// codec.ValueToJSON.
package valuefmt

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/segmentio/encoding/json"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/avro-runtime/errors"
)

// Format names a notation.
type Format string

const (
	JSON Format = "json"
	YAML Format = "yaml"
	CBOR Format = "cbor"
	// Diag is CBOR diagnostic notation (RFC 8949 section 8). It can be
	// written but not parsed.
	Diag Format = "diag"
)

var formats = []Format{CBOR, Diag, JSON, YAML}

// Formats returns every supported format in sorted order.
func Formats() []Format {
	return append([]Format(nil), formats...)
}

// ParseFormat returns the format named s.
func ParseFormat(s string) (Format, error) {
	for _, f := range formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", errors.NotFound(errors.PhaseConfig, "output format", s)
}

// Binary reports whether f produces non-text output.
func (f Format) Binary() bool { return f == CBOR }

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("valuefmt: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("valuefmt: CBOR decoder initialization failed: " + err.Error())
	}
}

func encodeErr(f Format, err error) error {
	return errors.Wrap(errors.PhaseEncode, errors.KindInvalidValue, err, "rendering "+string(f))
}

func decodeErr(f Format, err error) error {
	return errors.Wrap(errors.PhaseDecode, errors.KindMalformedInput, err, "parsing "+string(f))
}

// Marshal renders v in format f. JSON output is compact; YAML output ends
// with a newline.
func Marshal(f Format, v any) ([]byte, error) {
	var (
		out []byte
		err error
	)
	switch f {
	case JSON:
		out, err = json.Marshal(v)
	case YAML:
		out, err = yaml.Marshal(v)
	case CBOR:
		out, err = encMode.Marshal(v)
	case Diag:
		var data []byte
		if data, err = encMode.Marshal(v); err == nil {
			var s string
			s, err = cbor.Diagnose(data)
			out = []byte(s)
		}
	default:
		return nil, errors.NotFound(errors.PhaseEncode, "format", string(f))
	}
	if err != nil {
		return nil, encodeErr(f, err)
	}
	return out, nil
}

// Unmarshal parses data in format f into a value tree.
func Unmarshal(f Format, data []byte) (any, error) {
	dec, err := NewDecoder(bytes.NewReader(data), f)
	if err != nil {
		return nil, err
	}
	v, err := dec.Decode()
	if err == io.EOF {
		return nil, decodeErr(f, io.ErrUnexpectedEOF)
	}
	return v, err
}

// Normalize converts a tree decoded by a third-party decoder into value
// tree form: integers become int64 when they fit, maps with non-string
// keys get their keys formatted, and nested slices become []any.
func Normalize(v any) any {
	switch t := v.(type) {
	case nil, bool, int64, float64, string, json.Number:
		return t
	case int:
		return int64(t)
	case int8:
		return int64(t)
	case int16:
		return int64(t)
	case int32:
		return int64(t)
	case uint8:
		return int64(t)
	case uint16:
		return int64(t)
	case uint32:
		return int64(t)
	case uint:
		return normalizeUint(uint64(t))
	case uint64:
		return normalizeUint(t)
	case float32:
		return float64(t)
	case []byte:
		return string(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Normalize(e)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[fmt.Sprint(k)] = Normalize(e)
		}
		return out
	}
	return v
}

func normalizeUint(n uint64) any {
	if n > math.MaxInt64 {
		return float64(n)
	}
	return int64(n)
}
