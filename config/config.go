// Package config loads avrotool configuration.
//
// Configuration comes from one file named by the --config flag or the
// AVROTOOL_CONFIG environment variable. The file may be YAML (.yaml, .yml)
// or TOML (.toml); values it leaves out keep their defaults.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/avro-runtime/container"
	"github.com/wippyai/avro-runtime/errors"
	"github.com/wippyai/avro-runtime/valuefmt"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "AVROTOOL_CONFIG"

// Config is the avrotool configuration.
type Config struct {
	Log       LogConfig       `yaml:"log" toml:"log"`
	Container ContainerConfig `yaml:"container" toml:"container"`
	Output    OutputConfig    `yaml:"output" toml:"output"`

	// Workers bounds parallel block decoding. Zero means one per block.
	Workers int `yaml:"workers" toml:"workers"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `yaml:"level" toml:"level"`
	// Development selects zap's development encoder and stack traces.
	Development bool `yaml:"development" toml:"development"`
}

// ContainerConfig configures container files written by pack.
type ContainerConfig struct {
	Codec      string `yaml:"codec" toml:"codec"`
	BlockItems int    `yaml:"block_items" toml:"block_items"`
}

// OutputConfig configures how values are printed.
type OutputConfig struct {
	Format string `yaml:"format" toml:"format"`
	Indent int    `yaml:"indent" toml:"indent"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "warn"},
		Container: ContainerConfig{
			Codec:      container.Null,
			BlockItems: container.DefaultBlockItems,
		},
		Output: OutputConfig{Format: string(valuefmt.JSON)},
	}
}

func configErr(cause error, detail string, args ...any) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Cause(cause).
		Detail(detail, args...).
		Build()
}

// Load reads the file at path over the defaults and validates the result.
// An empty path reads the file named by AVROTOOL_CONFIG, or returns the
// defaults when that is unset too.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, configErr(err, "reading %s", path)
	}
	if err := cfg.decode(filepath.Ext(path), data); err != nil {
		return nil, configErr(err, "parsing %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(ext string, data []byte) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, c)
	case ".toml":
		_, err := toml.Decode(string(data), c)
		return err
	default:
		return errors.InvalidInput(errors.PhaseConfig, "unknown config file extension %q", ext)
	}
}

// Validate checks every field.
func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return configErr(err, "log.level %q", c.Log.Level)
	}
	if _, err := container.CompressionFor(c.Container.Codec); err != nil {
		return configErr(err, "container.codec %q", c.Container.Codec)
	}
	if c.Container.BlockItems <= 0 {
		return configErr(nil, "container.block_items must be positive, got %d", c.Container.BlockItems)
	}
	if _, err := valuefmt.ParseFormat(c.Output.Format); err != nil {
		return configErr(err, "output.format %q", c.Output.Format)
	}
	if c.Output.Indent < 0 {
		return configErr(nil, "output.indent must not be negative, got %d", c.Output.Indent)
	}
	if c.Workers < 0 {
		return configErr(nil, "workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// BuildLogger builds the zap logger described by c.Log. Logs go to stderr.
func (c *Config) BuildLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, configErr(err, "log.level %q", c.Log.Level)
	}
	zc := zap.NewProductionConfig()
	if c.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	logger, err := zc.Build()
	if err != nil {
		return nil, configErr(err, "building logger")
	}
	return logger, nil
}
