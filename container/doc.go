// Package container reads and writes Avro object container files.
//
// A file is the magic bytes "Obj\x01", a metadata map holding the writer's
// schema under "avro.schema" and the block codec under "avro.codec", and a
// 16-byte sync marker. Blocks follow, each holding a value count, the
// compressed size, the compressed values and the sync marker again.
//
// Supported block codecs are null, deflate, snappy, zstandard and lz4.
//
//	w, err := container.NewWriter(f, c, container.WithCompression(container.Zstandard))
//	for _, v := range values {
//		if err := container.Append(w, v); err != nil { ... }
//	}
//	err = w.Close()
//
// Readers verify every sync marker and bound all sizes taken from the file,
// so corrupt or hostile input fails with a malformed_input error rather than
// exhausting memory. ReadAll decodes blocks in parallel.
package container
