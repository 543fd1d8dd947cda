package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
	"go.uber.org/zap"

	"github.com/wippyai/avro-runtime/codec"
	"github.com/wippyai/avro-runtime/container"
	"github.com/wippyai/avro-runtime/errors"
	"github.com/wippyai/avro-runtime/schema"
	"github.com/wippyai/avro-runtime/valuefmt"
	"github.com/wippyai/avro-runtime/witschema"
)

// readFile decodes every value of a container file with a schema-driven
// codec and returns the values with the codec.
func (a *app) readFile(ctx context.Context, path string, workers int) ([]any, codec.Codec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	r, err := container.NewReader(f)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	c, err := a.reg.CodecForSchema(r.Schema())
	if err != nil {
		return nil, nil, err
	}
	if err := r.Bind(c); err != nil {
		return nil, nil, err
	}
	vals, err := container.ReadAll(ctx, r, workers)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return vals, c, nil
}

// loadSchema reads the schema of a container file, or parses a schema
// file.
func loadSchema(path string) (*schema.Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if bytes.HasPrefix(data, container.Magic[:]) {
		r, err := container.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return r.Schema(), nil
	}
	d, err := schema.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

func runCat(ctx context.Context, out io.Writer, args []string) error {
	fs, cfgPath := newFlags("cat")
	format := fs.StringP("format", "f", "", "output format: cbor, diag, json or yaml (default from config)")
	where := fs.StringP("where", "w", "", "only print values for which this expression is true")
	limit := fs.IntP("limit", "n", 0, "stop after this many values")
	workers := fs.Int("workers", -1, "parallel block decoders (default from config)")
	a, files, err := setup(out, fs, cfgPath, args, "cat [flags] FILE...", -1)
	if err != nil {
		return err
	}

	name := a.cfg.Output.Format
	if *format != "" {
		name = *format
	}
	vf, err := valuefmt.ParseFormat(name)
	if err != nil {
		return err
	}
	var flt *filter
	if *where != "" {
		if flt, err = newFilter(*where); err != nil {
			return err
		}
	}
	nw := a.cfg.Workers
	if *workers >= 0 {
		nw = *workers
	}

	w, err := valuefmt.NewWriter(out, vf, valuefmt.WithIndent(a.cfg.Output.Indent))
	if err != nil {
		return err
	}
	printed := 0
	for _, path := range files {
		vals, c, err := a.readFile(ctx, path, nw)
		if err != nil {
			return err
		}
		for i, v := range vals {
			tree, err := codec.ValueToJSON(c, v)
			if err != nil {
				return errors.WithPath(err, fmt.Sprintf("%s[%d]", filepath.Base(path), i))
			}
			if flt != nil {
				ok, err := flt.match(tree)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
			}
			if err := w.Write(tree); err != nil {
				return err
			}
			printed++
			if *limit > 0 && printed >= *limit {
				return w.Close()
			}
		}
	}
	a.logger.Debug("cat finished", zap.Int("files", len(files)), zap.Int("values", printed))
	return w.Close()
}

func runMeta(ctx context.Context, out io.Writer, args []string) error {
	fs, cfgPath := newFlags("meta")
	a, files, err := setup(out, fs, cfgPath, args, "meta FILE", 1)
	if err != nil {
		return err
	}
	f, err := os.Open(files[0])
	if err != nil {
		return err
	}
	defer f.Close()

	r, err := container.NewReader(f)
	if err != nil {
		return err
	}
	h := r.Header()
	fmt.Fprintf(a.out, "schema:  %s\n", h.Schema.TypeName())
	fmt.Fprintf(a.out, "codec:   %s\n", h.Codec)
	fmt.Fprintf(a.out, "sync:    %x\n", h.Sync)

	keys := make([]string, 0, len(h.Meta))
	for k := range h.Meta {
		if k != container.MetaSchema && k != container.MetaCodec {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := h.Meta[k]
		if utf8.Valid(v) {
			fmt.Fprintf(a.out, "meta:    %s = %s\n", k, v)
		} else {
			fmt.Fprintf(a.out, "meta:    %s = %x\n", k, v)
		}
	}

	var blocks, values, stored int64
	for {
		b, err := r.NextBlock()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		blocks++
		values += b.Count
		stored += int64(len(b.Raw))
	}
	fmt.Fprintf(a.out, "blocks:  %d\n", blocks)
	fmt.Fprintf(a.out, "values:  %d\n", values)
	fmt.Fprintf(a.out, "stored:  %d bytes\n", stored)
	return nil
}

func runSchema(ctx context.Context, out io.Writer, args []string) error {
	fs, cfgPath := newFlags("schema")
	canonical := fs.Bool("canonical", false, "print the Parsing Canonical Form")
	wit := fs.Bool("wit", false, "print WebAssembly Interface Type definitions")
	a, files, err := setup(out, fs, cfgPath, args, "schema [--canonical|--wit] FILE", 1)
	if err != nil {
		return err
	}
	if *canonical && *wit {
		return fmt.Errorf("--canonical and --wit are exclusive")
	}
	d, err := loadSchema(files[0])
	if err != nil {
		return err
	}
	switch {
	case *canonical:
		fmt.Fprintln(a.out, schema.Canonical(d))
	case *wit:
		text, err := witschema.Render(d)
		if err != nil {
			return err
		}
		fmt.Fprint(a.out, text)
	default:
		fmt.Fprintln(a.out, d.String())
	}
	return nil
}

func runFingerprint(ctx context.Context, out io.Writer, args []string) error {
	fs, cfgPath := newFlags("fingerprint")
	a, files, err := setup(out, fs, cfgPath, args, "fingerprint FILE", 1)
	if err != nil {
		return err
	}
	d, err := loadSchema(files[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "crc64-avro  %016x\n", schema.FingerprintCRC64(d))
	fmt.Fprintf(a.out, "blake3      %x\n", schema.FingerprintBLAKE3(d))
	return nil
}

// schemaLines renders d as YAML so that a line diff lines up fields.
func schemaLines(d *schema.Descriptor) (string, error) {
	tree, err := schema.DecodeJSON([]byte(d.String()))
	if err != nil {
		return "", err
	}
	data, err := valuefmt.Marshal(valuefmt.YAML, tree)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// lineDiff returns a unified-style line diff of a and b, or "" when they
// are equal.
func lineDiff(a, b string) string {
	dmp := diffpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)

	var sb strings.Builder
	changed := false
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case diffpatch.DiffInsert:
			prefix, changed = "+ ", true
		case diffpatch.DiffDelete:
			prefix, changed = "- ", true
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			sb.WriteString(prefix)
			sb.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				sb.WriteByte('\n')
			}
		}
	}
	if !changed {
		return ""
	}
	return sb.String()
}

func runDiff(ctx context.Context, out io.Writer, args []string) error {
	fs, cfgPath := newFlags("diff")
	a, files, err := setup(out, fs, cfgPath, args, "diff FILE FILE", 2)
	if err != nil {
		return err
	}
	left, err := loadSchema(files[0])
	if err != nil {
		return err
	}
	right, err := loadSchema(files[1])
	if err != nil {
		return err
	}
	if schema.Equal(left, right) {
		fmt.Fprintln(a.out, "schemas are structurally equal")
		return nil
	}
	lt, err := schemaLines(left)
	if err != nil {
		return err
	}
	rt, err := schemaLines(right)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "--- %s\n+++ %s\n", files[0], files[1])
	fmt.Fprint(a.out, lineDiff(lt, rt))
	return nil
}

// inputFormat guesses the value format from a file extension.
func inputFormat(path string) valuefmt.Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return valuefmt.YAML
	case ".cbor":
		return valuefmt.CBOR
	default:
		return valuefmt.JSON
	}
}

func runPack(ctx context.Context, out io.Writer, args []string) error {
	fs, cfgPath := newFlags("pack")
	schemaPath := fs.StringP("schema", "s", "", "schema file or container file to take the schema from")
	codecName := fs.StringP("codec", "c", "", "block codec (default from config)")
	blockItems := fs.Int("block-items", 0, "values per block (default from config)")
	format := fs.String("input-format", "", "input format: json, yaml or cbor (default from extension)")
	meta := fs.StringToString("meta", nil, "user metadata entries key=value")
	a, files, err := setup(out, fs, cfgPath, args, "pack --schema FILE [flags] INPUT OUTPUT", 2)
	if err != nil {
		return err
	}
	if *schemaPath == "" {
		return fmt.Errorf("--schema is required")
	}
	d, err := loadSchema(*schemaPath)
	if err != nil {
		return err
	}
	c, err := a.reg.CodecForSchema(d)
	if err != nil {
		return err
	}

	inFormat := inputFormat(files[0])
	if *format != "" {
		if inFormat, err = valuefmt.ParseFormat(*format); err != nil {
			return err
		}
	}
	in, err := os.Open(files[0])
	if err != nil {
		return err
	}
	defer in.Close()
	dec, err := valuefmt.NewDecoder(in, inFormat)
	if err != nil {
		return err
	}

	opts := []container.WriterOption{
		container.WithCompression(a.cfg.Container.Codec),
		container.WithBlockItems(a.cfg.Container.BlockItems),
	}
	if *codecName != "" {
		opts = append(opts, container.WithCompression(*codecName))
	}
	if *blockItems > 0 {
		opts = append(opts, container.WithBlockItems(*blockItems))
	}
	for k, v := range *meta {
		opts = append(opts, container.WithMetadata(k, []byte(v)))
	}

	f, err := os.Create(files[1])
	if err != nil {
		return err
	}
	w, err := container.NewWriter(f, c, opts...)
	if err != nil {
		f.Close()
		return err
	}
	n := 0
	for {
		tree, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			f.Close()
			return err
		}
		v, err := codec.ValueFromJSON(c, tree)
		if err != nil {
			f.Close()
			return errors.WithPath(err, fmt.Sprintf("value %d", n))
		}
		if err := w.Append(v); err != nil {
			f.Close()
			return errors.WithPath(err, fmt.Sprintf("value %d", n))
		}
		n++
	}
	if err := w.Close(); err != nil {
		f.Close()
		return err
	}
	a.logger.Info("packed", zap.String("output", files[1]), zap.Int("values", n), zap.String("schema", d.TypeName()))
	return f.Close()
}
