package avroruntime

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/avro-runtime/errors"
)

type reading struct {
	Sensor string   `avro:"sensor"`
	Value  float64  `avro:"value"`
	Labels []string `avro:"labels"`
	Prev   *reading `avro:"prev"`
}

func TestRoundTrip(t *testing.T) {
	in := reading{Sensor: "t1", Value: 20.5, Labels: []string{"lab"}, Prev: &reading{Sensor: "t1", Value: 19, Labels: []string{"old"}}}

	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var out reading
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("binary round trip mismatch (-want +got):\n%s", diff)
	}

	text, err := MarshalJSON(in)
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	var back reading
	if err := UnmarshalJSON(text, &back); err != nil {
		t.Fatalf("UnmarshalJSON failed: %v", err)
	}
	if diff := cmp.Diff(in, back); diff != "" {
		t.Errorf("JSON round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestSchemaOf(t *testing.T) {
	d, err := SchemaOf(reading{})
	if err != nil {
		t.Fatalf("SchemaOf failed: %v", err)
	}
	if got, want := d.TypeName(), "avro_runtime.reading"; got != want {
		t.Errorf("TypeName() = %q, want %q", got, want)
	}
	if f := d.Field("prev"); f == nil || !f.Type.IsOption() {
		t.Errorf("prev field = %+v, want an option", f)
	}
	if _, err := SchemaOf(nil); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("SchemaOf(nil) error = %v, want invalid_input", err)
	}
}
