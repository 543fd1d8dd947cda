package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/wippyai/avro-runtime/errors"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	want := Default()
	want.Log.Level = "debug"
	want.Container.Codec = "zstandard"
	want.Container.BlockItems = 100
	want.Output.Format = "yaml"
	want.Workers = 4

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "avrotool.yaml",
			content: `
log:
  level: debug
container:
  codec: zstandard
  block_items: 100
output:
  format: yaml
workers: 4
`,
		},
		{
			name: "toml",
			file: "avrotool.toml",
			content: `
workers = 4

[log]
level = "debug"

[container]
codec = "zstandard"
block_items = 100

[output]
format = "yaml"
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(writeTemp(t, tt.file, tt.content))
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Load mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	got, err := Load(writeTemp(t, "partial.yml", "workers: 2\n"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	want := Default()
	want.Workers = 2
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(EnvVar, writeTemp(t, "env.yaml", "output:\n  format: cbor\n"))
	got, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got.Output.Format != "cbor" {
		t.Errorf("Output.Format = %q, want cbor", got.Output.Format)
	}

	t.Setenv(EnvVar, "")
	got, err = Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(Default(), got); diff != "" {
		t.Errorf("Load without file mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"unknown extension", "cfg.ini", "workers=1"},
		{"bad yaml", "cfg.yaml", "log: [unclosed"},
		{"bad level", "cfg.yaml", "log:\n  level: loud\n"},
		{"bad codec", "cfg.toml", "[container]\ncodec = \"brotli\"\n"},
		{"bad block items", "cfg.yaml", "container:\n  block_items: 0\n"},
		{"bad format", "cfg.yaml", "output:\n  format: xml\n"},
		{"negative workers", "cfg.yaml", "workers: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeTemp(t, tt.file, tt.content))
			if !errors.IsKind(err, errors.KindInvalidInput) {
				t.Errorf("Load error = %v, want invalid_input", err)
			}
		})
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("Load(missing) error = %v, want invalid_input", err)
	}
}

func TestBuildLogger(t *testing.T) {
	cfg := Default()
	cfg.Log.Development = true
	logger, err := cfg.BuildLogger()
	if err != nil {
		t.Fatalf("BuildLogger failed: %v", err)
	}
	if logger == nil {
		t.Fatal("BuildLogger returned nil")
	}
}
