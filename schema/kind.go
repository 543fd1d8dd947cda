package schema

// Kind identifies the shape of a Descriptor.
type Kind uint8

const (
	Null Kind = iota
	Boolean
	Byte
	Int
	Long
	Float
	Double
	String
	Bytes
	Array
	Map
	Fixed
	Enum
	Record
	Union
)

var kindNames = [...]string{
	Null:    "null",
	Boolean: "boolean",
	Byte:    "byte",
	Int:     "int",
	Long:    "long",
	Float:   "float",
	Double:  "double",
	String:  "string",
	Bytes:   "bytes",
	Array:   "array",
	Map:     "map",
	Fixed:   "fixed",
	Enum:    "enum",
	Record:  "record",
	Union:   "union",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// AvroName returns the type name used in schema text. Byte is carried on the
// wire as an int.
func (k Kind) AvroName() string {
	if k == Byte {
		return "int"
	}
	return k.String()
}

// IsPrimitive reports whether k has no child types and no name.
func (k Kind) IsPrimitive() bool {
	return k <= Bytes
}

// IsNamed reports whether descriptors of kind k carry a full name.
func (k Kind) IsNamed() bool {
	return k == Fixed || k == Enum || k == Record
}

// KindFromName returns the primitive kind for an Avro type name.
func KindFromName(name string) (Kind, bool) {
	switch name {
	case "null":
		return Null, true
	case "boolean":
		return Boolean, true
	case "int":
		return Int, true
	case "long":
		return Long, true
	case "float":
		return Float, true
	case "double":
		return Double, true
	case "string":
		return String, true
	case "bytes":
		return Bytes, true
	}
	return 0, false
}
