// Copyright (C) 2024, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ava-labs/avalanchego/utils/logging"
	"gopkg.in/yaml.v2"

	"github.com/ava-labs/hypercounter/pebble"
	"github.com/ava-labs/hypercounter/server"
	"github.com/ava-labs/hypercounter/trace"
	"github.com/ava-labs/hypercounter/vm"
)

var (
	ErrUnknownFormat = errors.New("unknown config format")
	ErrInvalidConfig = errors.New("invalid config")
)

type LogConfig struct {
	Level        string `json:"level" yaml:"level"`
	DisplayLevel string `json:"displayLevel" yaml:"displayLevel"`
	Format       string `json:"format" yaml:"format"`
	// Directory holds the rotated log files. Defaults to logs/ under the
	// data directory.
	Directory string `json:"directory" yaml:"directory"`
	MaxSize   int    `json:"maxSize" yaml:"maxSize"` // megabytes
	MaxFiles  int    `json:"maxFiles" yaml:"maxFiles"`
	MaxAge    int    `json:"maxAge" yaml:"maxAge"` // days
	Compress  bool   `json:"compress" yaml:"compress"`
}

type Config struct {
	DataDir string `json:"dataDir" yaml:"dataDir"`
	// Genesis is the allocation file applied when the base ledger is
	// created. Optional.
	Genesis string `json:"genesis" yaml:"genesis"`

	HTTPAddress     string            `json:"httpAddress" yaml:"httpAddress"`
	HTTP            server.HTTPConfig `json:"http" yaml:"http"`
	AllowedOrigins  []string          `json:"allowedOrigins" yaml:"allowedOrigins"`
	AllowedHosts    []string          `json:"allowedHosts" yaml:"allowedHosts"`
	ShutdownTimeout time.Duration     `json:"shutdownTimeout" yaml:"shutdownTimeout"`

	Log    LogConfig     `json:"log" yaml:"log"`
	Pebble pebble.Config `json:"pebble" yaml:"pebble"`
	Trace  trace.Config  `json:"trace" yaml:"trace"`
	VM     vm.Config     `json:"vm" yaml:"vm"`
}

func NewDefault() Config {
	return Config{
		DataDir:         ".hypercounter",
		HTTPAddress:     "127.0.0.1:9650",
		HTTP:            server.NewDefaultHTTPConfig(),
		AllowedOrigins:  []string{"*"},
		AllowedHosts:    []string{"localhost"},
		ShutdownTimeout: 10 * time.Second,
		Log: LogConfig{
			Level:        logging.Info.String(),
			DisplayLevel: logging.Info.String(),
			Format:       "auto",
			MaxSize:      8,
			MaxFiles:     7,
			MaxAge:       30,
			Compress:     true,
		},
		Pebble: pebble.NewDefaultConfig(),
		Trace: trace.Config{
			Enabled:         false,
			TraceSampleRate: 1,
			AppName:         "hypercounter",
			Agent:           "hypercounter",
		},
		VM: vm.NewConfig(),
	}
}

// Load reads the file at [path] over the defaults. Files ending in .yaml
// or .yml are YAML, everything else JSON.
func Load(path string) (Config, error) {
	c := NewDefault()
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := Parse(b, filepath.Ext(path), &c); err != nil {
		return Config{}, fmt.Errorf("%w: %s", err, path)
	}
	return c, c.Verify()
}

// Parse decodes [b] into [c] according to the file extension [ext].
func Parse(b []byte, ext string, c *Config) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		return yaml.UnmarshalStrict(b, c)
	case ".json", "":
		return json.Unmarshal(b, c)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, ext)
	}
}

func (c *Config) Verify() error {
	if c.DataDir == "" {
		return fmt.Errorf("%w: empty data directory", ErrInvalidConfig)
	}
	if _, err := logging.ToLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log level: %w", ErrInvalidConfig, err)
	}
	if _, err := logging.ToLevel(c.Log.DisplayLevel); err != nil {
		return fmt.Errorf("%w: display level: %w", ErrInvalidConfig, err)
	}
	if c.VM.SchedulerInterval <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, vm.ErrInvalidSchedulerInterval)
	}
	return nil
}

func (c *Config) BaseDir() string {
	return filepath.Join(c.DataDir, "base")
}

func (c *Config) LogDir() string {
	if c.Log.Directory != "" {
		return c.Log.Directory
	}
	return filepath.Join(c.DataDir, "logs")
}

// Marshal encodes [c] as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// LoggingConfig converts [c.Log] for the log factory.
func (c *Config) LoggingConfig() (logging.Config, error) {
	level, err := logging.ToLevel(c.Log.Level)
	if err != nil {
		return logging.Config{}, err
	}
	displayLevel, err := logging.ToLevel(c.Log.DisplayLevel)
	if err != nil {
		return logging.Config{}, err
	}
	format, err := logging.ToFormat(c.Log.Format, os.Stderr.Fd())
	if err != nil {
		return logging.Config{}, err
	}
	return logging.Config{
		RotatingWriterConfig: logging.RotatingWriterConfig{
			MaxSize:   c.Log.MaxSize,
			MaxFiles:  c.Log.MaxFiles,
			MaxAge:    c.Log.MaxAge,
			Directory: c.LogDir(),
			Compress:  c.Log.Compress,
		},
		LogLevel:     level,
		DisplayLevel: displayLevel,
		LogFormat:    format,
	}, nil
}
