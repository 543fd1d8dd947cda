package valuefmt

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/avro-runtime/errors"
)

var sample = map[string]any{
	"name": "gauge",
	"id":   int64(7),
	"tags": []any{"a", "b"},
	"ok":   true,
	"note": nil,
}

func TestMarshal(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{JSON, `{"id":7,"name":"gauge","note":null,"ok":true,"tags":["a","b"]}`},
		{YAML, "id: 7\nname: gauge\nnote: null\nok: true\ntags:\n    - a\n    - b\n"},
		{Diag, `{"id": 7, "ok": true, "name": "gauge", "note": null, "tags": ["a", "b"]}`},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			got, err := Marshal(tt.format, sample)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, f := range []Format{JSON, YAML, CBOR} {
		t.Run(string(f), func(t *testing.T) {
			data, err := Marshal(f, sample)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			got, err := Unmarshal(f, data)
			if err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			m, ok := got.(map[string]any)
			if !ok {
				t.Fatalf("Unmarshal returned %T, want map[string]any", got)
			}
			// JSON keeps numbers as json.Number
			if n, isNum := m["id"].(interface{ Int64() (int64, error) }); isNum {
				i, err := n.Int64()
				if err != nil {
					t.Fatalf("Int64 failed: %v", err)
				}
				m["id"] = i
			}
			if diff := cmp.Diff(sample, m); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStream(t *testing.T) {
	values := []any{int64(1), "two", []any{int64(3)}}
	for _, f := range []Format{JSON, YAML, CBOR} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewWriter(&buf, f)
			if err != nil {
				t.Fatalf("NewWriter failed: %v", err)
			}
			for _, v := range values {
				if err := w.Write(v); err != nil {
					t.Fatalf("Write failed: %v", err)
				}
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}
			if w.Count() != len(values) {
				t.Errorf("Count() = %d, want %d", w.Count(), len(values))
			}

			dec, err := NewDecoder(&buf, f)
			if err != nil {
				t.Fatalf("NewDecoder failed: %v", err)
			}
			var got []any
			for {
				v, err := dec.Decode()
				if err == io.EOF {
					break
				}
				if err != nil {
					t.Fatalf("Decode failed: %v", err)
				}
				got = append(got, v)
			}
			if len(got) != len(values) {
				t.Fatalf("decoded %d values, want %d", len(got), len(values))
			}
			if got[1] != "two" {
				t.Errorf("second value = %v, want two", got[1])
			}
		})
	}
}

func TestJSONIndent(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, JSON, WithIndent(2))
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	if err := w.Write(map[string]any{"a": int64(1)}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if want := "{\n  \"a\": 1\n}\n"; buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats() {
		got, err := ParseFormat(string(f))
		if err != nil || got != f {
			t.Errorf("ParseFormat(%q) = %q, %v", f, got, err)
		}
	}
	if _, err := ParseFormat("xml"); !errors.IsKind(err, errors.KindNotFound) {
		t.Errorf("ParseFormat(xml) error = %v, want not_found", err)
	}
	if _, err := NewDecoder(strings.NewReader(""), Diag); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("NewDecoder(diag) error = %v, want invalid_input", err)
	}
}

func TestMalformed(t *testing.T) {
	if _, err := Unmarshal(JSON, []byte(`{"a":`)); !errors.IsKind(err, errors.KindMalformedInput) {
		t.Errorf("Unmarshal error = %v, want malformed_input", err)
	}
}

func TestNormalize(t *testing.T) {
	in := map[any]any{
		"n":    uint64(3),
		1:      int(4),
		"list": []any{float32(0.5), []byte("hi")},
	}
	want := map[string]any{
		"n":    int64(3),
		"1":    int64(4),
		"list": []any{0.5, "hi"},
	}
	if diff := cmp.Diff(want, Normalize(in)); diff != "" {
		t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
	}
}
