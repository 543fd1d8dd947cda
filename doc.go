// Package avroruntime encodes Go values in the Avro binary format and its
// JSON form without hand-written codecs.
//
// The schema of a Go type is derived from the type itself: structs become
// records, pointers become ["null", T] unions, interfaces become unions of
// their registered or discovered implementations, and named types with an
// EnumSymbols method become enums. Codecs are derived once per type and
// cached by a codec.Registry.
//
// # Architecture Overview
//
//	avroruntime/         Root package with convenience functions over the default registry
//	├── codec/           Type derivation, codecs and the registry
//	├── schema/          Schema descriptors, validation, JSON schema text, fingerprints
//	├── wire/            Zig-zag varints and the byte sink/source contract
//	├── container/       Object container files with block compression
//	├── witschema/       Schema descriptors as WebAssembly Interface Types
//	├── valuefmt/        JSON value trees as JSON, YAML, CBOR or diagnostic text
//	├── config/          avrotool configuration
//	├── errors/          Structured error types for debugging
//	└── cmd/avrotool/    Command-line tool for container files
//
// # Quick Start
//
//	type Person struct {
//	    Name string `avro:"name"`
//	    Age  int32  `avro:"age"`
//	}
//
//	data, err := avroruntime.Marshal(Person{Name: "Ann", Age: 31})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	var p Person
//	if err := avroruntime.Unmarshal(data, &p); err != nil {
//	    log.Fatal(err)
//	}
//
// Programs that register unions, enums or constructors should create their
// own registry with codec.NewRegistry and pass it around instead of using
// the default one.
//
// # Thread Safety
//
// Registries and the codecs they return are safe for concurrent use.
// Derivation is serialized per registry; encoding and decoding are not.
// Container writers and readers are single-goroutine, except that
// container.ReadAll decodes blocks in parallel.
package avroruntime
