package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/wippyai/avro-runtime/codec"
	"github.com/wippyai/avro-runtime/config"
	"github.com/wippyai/avro-runtime/container"
)

type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, out io.Writer, args []string) error
}

var commands = []command{
	{"cat", "cat [flags] FILE...", "print the values of container files", runCat},
	{"meta", "meta FILE", "print the header and block layout of a container file", runMeta},
	{"schema", "schema [--canonical|--wit] FILE", "print the schema of a container or schema file", runSchema},
	{"fingerprint", "fingerprint FILE", "print the CRC-64-AVRO and BLAKE3 fingerprints of a schema", runFingerprint},
	{"diff", "diff FILE FILE", "compare the schemas of two files", runDiff},
	{"pack", "pack --schema FILE [flags] INPUT OUTPUT", "write JSON, YAML or CBOR values into a container file", runPack},
	{"view", "view FILE", "browse the values of a container file interactively", runView},
}

// app carries what every command needs.
type app struct {
	cfg    *config.Config
	reg    *codec.Registry
	logger *zap.Logger
	out    io.Writer
}

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		printUsage(out)
		return nil
	}
	for _, c := range commands {
		if c.name == args[0] {
			return c.run(ctx, out, args[1:])
		}
	}
	printUsage(os.Stderr)
	return fmt.Errorf("unknown command %q", args[0])
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: avrotool <command> [flags] [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-12s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Every command accepts --config FILE (or AVROTOOL_CONFIG) to load a YAML or TOML config.")
}

// newFlags creates the flag set shared by all commands.
func newFlags(name string) (*pflag.FlagSet, *string) {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	cfgPath := fs.String("config", "", "path to a YAML or TOML config file")
	return fs, cfgPath
}

// setup parses flags, loads config and wires the logger. want is the
// number of positional arguments required, or -1 for at least one.
func setup(out io.Writer, fs *pflag.FlagSet, cfgPath *string, args []string, usage string, want int) (*app, []string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	rest := fs.Args()
	if (want >= 0 && len(rest) != want) || (want < 0 && len(rest) == 0) {
		return nil, nil, fmt.Errorf("usage: avrotool %s", usage)
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.BuildLogger()
	if err != nil {
		return nil, nil, err
	}
	codec.SetLogger(logger)
	container.SetLogger(logger)
	return &app{
		cfg:    cfg,
		reg:    codec.NewRegistry(codec.WithLogger(logger)),
		logger: logger,
		out:    out,
	}, rest, nil
}
