// Package config loads toolmath's file configuration.
//
// The file is YAML:
//
//	engine:
//	  command: /usr/local/bin/wolframscript
//	  args: []
//	  temp_dir: /var/tmp/toolmath
//	  timeout: 5m
//	  probe_args: ["-version"]
//	  env:
//	    WOLFRAMSCRIPT_KERNELPATH: /opt/Wolfram/Executables/WolframKernel
//	probe_ttl: 0s
//	log:
//	  level: info
//	  format: text
//	server:
//	  name: toolmath
//	  instructions: ...
//
// String values may reference environment variables as $VAR or ${VAR}.
// TOOLMATH_ENGINE, TOOLMATH_TIMEOUT and TOOLMATH_LOG_LEVEL override the file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/toolmath/engine"
)

// Environment variables read by ApplyEnv.
const (
	EnvEngine   = "TOOLMATH_ENGINE"
	EnvTimeout  = "TOOLMATH_TIMEOUT"
	EnvLogLevel = "TOOLMATH_LOG_LEVEL"
)

// DefaultTimeout bounds one engine run started from the command line.
const DefaultTimeout = 5 * time.Minute

// ErrInvalid classifies configuration errors.
var ErrInvalid = engine.ErrConfiguration

// Config is the file configuration.
type Config struct {
	Engine   EngineConfig  `yaml:"engine"`
	ProbeTTL time.Duration `yaml:"probe_ttl"`
	Log      LogConfig     `yaml:"log"`
	Server   ServerConfig  `yaml:"server"`
}

// EngineConfig configures the subprocess engine.
type EngineConfig struct {
	Command   string            `yaml:"command,omitempty"`
	Args      []string          `yaml:"args,omitempty"`
	TempDir   string            `yaml:"temp_dir,omitempty"`
	Timeout   time.Duration     `yaml:"timeout,omitempty"`
	ProbeArgs []string          `yaml:"probe_args,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level,omitempty"`

	// Format is text or json.
	Format string `yaml:"format,omitempty"`
}

// ServerConfig configures the advertised MCP server.
type ServerConfig struct {
	Name         string `yaml:"name,omitempty"`
	Instructions string `yaml:"instructions,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Engine: EngineConfig{
			Command: engine.DefaultCommand,
			Timeout: DefaultTimeout,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Unknown keys are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}

	// #nosec G304 -- path is operator supplied.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: parsing config %q: %w", ErrInvalid, path, err)
	}
	cfg.expand()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) expand() {
	c.Engine.Command = os.ExpandEnv(c.Engine.Command)
	c.Engine.TempDir = os.ExpandEnv(c.Engine.TempDir)
	for k, v := range c.Engine.Env {
		c.Engine.Env[k] = os.ExpandEnv(v)
	}
}

// ApplyEnv overrides c from the environment. lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvEngine); ok && strings.TrimSpace(v) != "" {
		c.Engine.Command = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvTimeout); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, EnvTimeout, err)
		}
		c.Engine.Timeout = d
	}
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		c.Log.Level = strings.TrimSpace(v)
	}
	return c.Validate()
}

// Validate checks c for values that cannot work.
func (c *Config) Validate() error {
	if c.Engine.Timeout < 0 {
		return fmt.Errorf("%w: engine.timeout must not be negative", ErrInvalid)
	}
	if c.ProbeTTL < 0 {
		return fmt.Errorf("%w: probe_ttl must not be negative", ErrInvalid)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format must be text or json (got %q)", ErrInvalid, c.Log.Format)
	}
	return nil
}

// EngineConfig converts the engine section to an engine.Config.
func (c *Config) EngineConfig(logger engine.Logger) engine.Config {
	return engine.Config{
		Command:   c.Engine.Command,
		Args:      append([]string(nil), c.Engine.Args...),
		TempDir:   c.Engine.TempDir,
		Timeout:   c.Engine.Timeout,
		ProbeArgs: append([]string(nil), c.Engine.ProbeArgs...),
		Env:       c.Engine.Env,
		Logger:    logger,
	}
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.Log.Level)
	return level
}

// NewLogger returns a logger writing to w in the configured format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("%w: log.level: %w", ErrInvalid, err)
	}
	return level, nil
}
