package engine

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultCommand    = "wolframscript"
	DefaultFilePrefix = "toolmath"
	DefaultFileExt    = ".wls"

	DefaultProbeTimeout = 10 * time.Second
)

// DefaultProbeArgs is the cheap no-op invocation used to check reachability.
var DefaultProbeArgs = []string{"-version"}

// Config configures an Engine.
type Config struct {
	// Command is the engine executable, resolved through PATH when it has no
	// directory component.
	// Default: wolframscript
	Command string

	// Args are leading arguments placed before the engine flags on every
	// invocation, including probes. Useful when the engine is launched
	// through a wrapper.
	Args []string

	// ProbeArgs are the arguments for the reachability probe.
	// Default: -version
	ProbeArgs []string

	// ProbeTimeout bounds a reachability probe.
	// Default: 10s
	ProbeTimeout time.Duration

	// TempDir is the directory for program files.
	// Default: os.TempDir()
	TempDir string

	// FilePrefix and FileExt shape program file names:
	// <prefix>-<unixnano>-<uuid><ext>.
	FilePrefix string
	FileExt    string

	// Timeout bounds a single run when the caller's context carries no
	// deadline. Zero means no bound.
	Timeout time.Duration

	// Env holds extra environment variables for the engine process.
	// The parent environment is inherited.
	Env map[string]string

	// Logger is an optional logger for engine events.
	Logger Logger
}

// applyDefaults sets default values for unset optional fields.
func (c *Config) applyDefaults() {
	c.Command = strings.TrimSpace(c.Command)
	if c.Command == "" {
		c.Command = DefaultCommand
	}
	if len(c.ProbeArgs) == 0 {
		c.ProbeArgs = append([]string(nil), DefaultProbeArgs...)
	}
	if c.ProbeTimeout == 0 {
		c.ProbeTimeout = DefaultProbeTimeout
	}
	if c.TempDir == "" {
		c.TempDir = os.TempDir()
	}
	if c.FilePrefix == "" {
		c.FilePrefix = DefaultFilePrefix
	}
	if c.FileExt == "" {
		c.FileExt = DefaultFileExt
	}
	if c.Logger == nil {
		c.Logger = nopLogger{}
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout must not be negative (got %v)", ErrConfiguration, c.Timeout)
	}
	if c.ProbeTimeout < 0 {
		return fmt.Errorf("%w: probe timeout must not be negative (got %v)", ErrConfiguration, c.ProbeTimeout)
	}
	if strings.ContainsAny(c.FilePrefix, `/\`) || strings.ContainsAny(c.FileExt, `/\`) {
		return fmt.Errorf("%w: file prefix and extension must not contain path separators", ErrConfiguration)
	}
	for k := range c.Env {
		if k == "" || strings.Contains(k, "=") {
			return fmt.Errorf("%w: invalid environment variable name %q", ErrConfiguration, k)
		}
	}
	return nil
}
