package schema

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/avro-runtime/errors"
)

func TestKindString(t *testing.T) {
	tests := []struct {
		kind Kind
		name string
		avro string
	}{
		{Null, "null", "null"},
		{Byte, "byte", "int"},
		{Long, "long", "long"},
		{Record, "record", "record"},
		{Kind(200), "unknown", "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.name {
			t.Errorf("Kind(%d).String() = %q, want %q", tt.kind, got, tt.name)
		}
		if got := tt.kind.AvroName(); got != tt.avro {
			t.Errorf("Kind(%d).AvroName() = %q, want %q", tt.kind, got, tt.avro)
		}
	}
}

func point() *Descriptor {
	return NewRecord("geo.Point",
		NewField("x", Primitive(Double)),
		NewField("y", Primitive(Double)).WithDefault(int64(0)),
	)
}

func TestCanonical(t *testing.T) {
	tests := []struct {
		name string
		d    *Descriptor
		want string
	}{
		{"primitive", Primitive(Long), `"long"`},
		{"byte", Primitive(Byte), `"int"`},
		{"array", NewArray(Primitive(Int)), `{"type":"array","items":"int"}`},
		{"map", NewMap(Primitive(String)), `{"type":"map","values":"string"}`},
		{"option", Option(Primitive(String)), `["null","string"]`},
		{"fixed", NewFixed("md5", 16), `{"name":"md5","type":"fixed","size":16}`},
		{"enum", NewEnum("a.Suit", "HEARTS", "SPADES"), `{"name":"a.Suit","type":"enum","symbols":["HEARTS","SPADES"]}`},
		{
			"record",
			point(),
			`{"name":"geo.Point","type":"record","fields":[{"name":"x","type":"double"},{"name":"y","type":"double"}]}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Canonical(tt.d); got != tt.want {
				t.Errorf("Canonical() = %s, want %s", got, tt.want)
			}
		})
	}
}

func linkedList() *Descriptor {
	node := NewRecord("list.Node")
	node.Fields = []*Field{
		NewField("value", Primitive(Long)),
		NewField("next", Option(node)),
	}
	return node
}

func TestCanonicalRecursive(t *testing.T) {
	want := `{"name":"list.Node","type":"record","fields":[{"name":"value","type":"long"},{"name":"next","type":["null","list.Node"]}]}`
	if got := Canonical(linkedList()); got != want {
		t.Errorf("Canonical() = %s, want %s", got, want)
	}
	if !Equal(linkedList(), linkedList()) {
		t.Error("independently built recursive records are not Equal")
	}
}

func TestString(t *testing.T) {
	d := point()
	d.Doc = "a point"
	want := `{"type":"record","name":"geo.Point","doc":"a point","fields":[{"name":"x","type":"double"},{"name":"y","type":"double","default":0}]}`
	if got := d.String(); got != want {
		t.Errorf("String() = %s, want %s", got, want)
	}
	if got := Primitive(Byte).String(); got != `{"type":"int","logicalType":"byte"}` {
		t.Errorf("byte String() = %s", got)
	}
	if Key(Primitive(Byte)) == Key(Primitive(Int)) {
		t.Error("byte and int share a key")
	}
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b *Descriptor
		want bool
	}{
		{"nil", point(), nil, false},
		{"records", point(), point(), true},
		{"byte is int", Primitive(Byte), Primitive(Int), true},
		{"long vs int", Primitive(Long), Primitive(Int), false},
		{"renamed record", point(), NewRecord("geo.Other", point().Fields...), false},
		{"union order", NewUnion(Primitive(Int), Primitive(String)), NewUnion(Primitive(String), Primitive(Int)), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	inputs := []*Descriptor{
		Primitive(Boolean),
		Primitive(Byte),
		NewArray(NewMap(Primitive(Bytes))),
		Option(NewEnum("cards.Suit", "HEARTS", "SPADES")),
		point(),
		linkedList(),
		NewRecord("x.Wrap",
			NewField("id", NewFixed("x.ID", 4)),
			NewField("alt", NewUnion(Primitive(Null), Primitive(Long), Primitive(String))).WithDefault(nil),
		),
	}
	for _, d := range inputs {
		t.Run(Canonical(d), func(t *testing.T) {
			text := d.String()
			parsed, err := Parse([]byte(text))
			if err != nil {
				t.Fatalf("Parse(%s): %v", text, err)
			}
			if got := parsed.String(); got != text {
				t.Errorf("round trip:\n got %s\nwant %s", got, text)
			}
		})
	}
}

func TestParseNamespaces(t *testing.T) {
	text := `
	// comments are allowed
	{
		"type": "record",
		"name": "Order",
		"namespace": "shop",
		"fields": [
			{"name": "status", "type": {"type": "enum", "name": "Status", "symbols": ["NEW", "DONE"]}},
			{"name": "previous", "type": "Status"},
			{"name": "lines", "type": {"type": "array", "items": {
				"type": "record", "name": "Line", "fields": [
					{"name": "sku", "type": "string"},
					{"name": "qty", "type": "int", "default": 1},
				]
			}}},
			{"name": "parent", "type": ["null", "shop.Order"], "default": null}
		]
	}`
	d, err := Parse([]byte(text))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Name != "shop.Order" {
		t.Errorf("Name = %q, want shop.Order", d.Name)
	}
	if got := d.Field("previous").Type; got != d.Field("status").Type {
		t.Error("short-name reference did not resolve to the defined enum")
	}
	line := d.Field("lines").Type.Items
	if line.Name != "shop.Line" {
		t.Errorf("nested record name = %q, want shop.Line", line.Name)
	}
	qty := line.Field("qty")
	if diff := cmp.Diff(any(int64(1)), qty.Default); diff != "" || !qty.HasDefault {
		t.Errorf("qty default mismatch (-want +got):\n%s", diff)
	}
	parent := d.Field("parent")
	if parent.Type.Members[1] != d {
		t.Error("recursive reference did not resolve to the enclosing record")
	}
	if !parent.HasDefault || parent.Default != nil {
		t.Errorf("parent default = %v (%v), want null", parent.Default, parent.HasDefault)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		text string
		kind errors.Kind
	}{
		{"not json", `{`, errors.KindInvalidInput},
		{"unknown reference", `"nope.Missing"`, errors.KindNotFound},
		{"no type", `{"name":"x"}`, errors.KindInvalidInput},
		{"fixed without size", `{"type":"fixed","name":"f"}`, errors.KindInvalidInput},
		{"duplicate definition", `["null",{"type":"fixed","name":"f","size":1},{"type":"fixed","name":"f","size":1}]`, errors.KindInvalidInput},
		{"trailing data", `"int" "long"`, errors.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.text))
			if !errors.IsKind(err, tt.kind) {
				t.Errorf("Parse(%s) error = %v, want %s", tt.text, err, tt.kind)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		d    *Descriptor
		ok   bool
	}{
		{"point", point(), true},
		{"recursive", linkedList(), true},
		{"duplicate members", NewUnion(Primitive(Int), Primitive(Int)), false},
		{"byte and int", NewUnion(Primitive(Byte), Primitive(Int)), false},
		{"nested union", NewUnion(Primitive(Null), Option(Primitive(Int))), false},
		{"two records", NewUnion(point(), linkedList()), true},
		{"empty union", NewUnion(), false},
		{"duplicate symbol", NewEnum("e", "A", "A"), false},
		{"bad symbol", NewEnum("e", "1A"), false},
		{"no symbols", NewEnum("e"), false},
		{"bad name", NewFixed("a..b", 1), false},
		{"negative size", NewFixed("f", -1), false},
		{"duplicate field", NewRecord("r", NewField("a", Primitive(Int)), NewField("a", Primitive(Int))), false},
		{"bad default", NewRecord("r", NewField("a", Primitive(Int)).WithDefault("x")), false},
		{"enum default", NewRecord("r", NewField("a", NewEnum("e", "A")).WithDefault("A")), true},
		{"union default", NewRecord("r", NewField("a", Option(Primitive(Int))).WithDefault(int64(1))), false},
		{
			"redefined name",
			NewRecord("r", NewField("a", NewFixed("f", 1)), NewField("b", NewFixed("f", 2))),
			false,
		},
		{"nil items", NewArray(nil), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.d)
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.IsKind(err, errors.KindInvalidInput) {
				t.Errorf("Validate() = %v, want invalid_input", err)
			}
		})
	}
}

func TestFingerprintCRC64(t *testing.T) {
	tests := []struct {
		d    *Descriptor
		want int64
	}{
		{Primitive(Null), 7195948357588979594},
		{Primitive(Int), 8247732601305521295},
	}
	for _, tt := range tests {
		if got := int64(FingerprintCRC64(tt.d)); got != tt.want {
			t.Errorf("FingerprintCRC64(%s) = %d, want %d", Canonical(tt.d), got, tt.want)
		}
	}
	if FingerprintCRC64(Primitive(Byte)) != FingerprintCRC64(Primitive(Int)) {
		t.Error("byte and int fingerprints differ")
	}
}

func TestFingerprintBLAKE3(t *testing.T) {
	a := FingerprintBLAKE3(linkedList())
	b := FingerprintBLAKE3(linkedList())
	if a != b {
		t.Error("equal schemas have different BLAKE3 fingerprints")
	}
	if a == FingerprintBLAKE3(point()) {
		t.Error("different schemas share a BLAKE3 fingerprint")
	}
}

func TestNames(t *testing.T) {
	if got := ShortName("a.b.C"); got != "C" {
		t.Errorf("ShortName = %q", got)
	}
	if got := Namespace("a.b.C"); got != "a.b" {
		t.Errorf("Namespace = %q", got)
	}
	if got := Namespace("C"); got != "" {
		t.Errorf("Namespace = %q", got)
	}
	if !ValidFullName("a.b_1.C") || ValidFullName("a.") || ValidFullName("") {
		t.Error("ValidFullName misclassified a name")
	}
}

func TestWalk(t *testing.T) {
	var kinds []Kind
	Walk(linkedList(), func(d *Descriptor) bool {
		kinds = append(kinds, d.Kind)
		return true
	})
	want := []Kind{Record, Long, Union, Null}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("Walk order mismatch (-want +got):\n%s", diff)
	}
}
