// Package config reads .nopanic.yaml and .nopanic.toml files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/mpyw/nopanic/internal/model"
	"github.com/mpyw/nopanic/internal/sink"
)

// FileNames are looked up in this order in each directory.
var FileNames = []string{".nopanic.yaml", ".nopanic.yml", ".nopanic.toml"}

// Sink presets for DefaultSinks.
const (
	PresetPanic = "panic"
	PresetAbort = "abort"
)

// Config is the analyzer configuration.
type Config struct {
	// Sinks are extra panic primitives, e.g. "example.com/must.Do".
	Sinks []string `yaml:"sinks" toml:"sinks"`
	// DefaultSinks selects the built-in table: "panic" or "abort".
	DefaultSinks string `yaml:"default_sinks" toml:"default_sinks"`
	// TrustStdlib treats standard library packages as terminal.
	TrustStdlib bool `yaml:"trust_stdlib" toml:"trust_stdlib"`
	// TerminalUnits are never loaded.
	TerminalUnits []string `yaml:"terminal_units" toml:"terminal_units"`
	// InterfaceFanout resolves interface calls to every implementor
	// declared next to the interface or the caller.
	InterfaceFanout bool `yaml:"interface_fanout" toml:"interface_fanout"`

	// Path is the file the configuration was read from, empty for defaults.
	Path string `yaml:"-" toml:"-"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		DefaultSinks: PresetAbort,
		TrustStdlib:  true,
	}
}

// Load reads the file at path. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.Path = path

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrConfiguration, err)
	}

	switch ext := filepath.Ext(path); ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		_, err = toml.Decode(string(data), cfg)
	default:
		return nil, fmt.Errorf("%w: %s: unknown config format %q", model.ErrConfiguration, path, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrConfiguration, path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// Find looks for a config file in dir and its parents.
func Find(dir string) (string, bool) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", false
	}

	for {
		for _, name := range FileNames {
			p := filepath.Join(dir, name)
			if _, err := os.Stat(p); err == nil {
				return p, true
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// Discover loads the config file governing dir, or the defaults.
func Discover(dir string) (*Config, error) {
	p, ok := Find(dir)
	if !ok {
		return Default(), nil
	}

	return Load(p)
}

// Validate checks preset names and sink specifications.
func (c *Config) Validate() error {
	var errs []error

	switch c.DefaultSinks {
	case "", PresetPanic, PresetAbort:
	default:
		errs = append(errs, fmt.Errorf("%w: default_sinks must be %q or %q, got %q",
			model.ErrConfiguration, PresetPanic, PresetAbort, c.DefaultSinks))
	}

	for _, s := range c.Sinks {
		if _, err := sink.Parse(s); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// AddSinks appends a comma-separated list of sink specifications.
func (c *Config) AddSinks(list string) {
	for part := range strings.SplitSeq(list, ",") {
		if s := strings.TrimSpace(part); s != "" {
			c.Sinks = append(c.Sinks, s)
		}
	}
}

// SinkTable builds the sink table.
func (c *Config) SinkTable() (*sink.Table, error) {
	t := sink.Default()
	if c.DefaultSinks == PresetAbort {
		t = sink.WithAbort()
	}

	for _, s := range c.Sinks {
		e, err := sink.Parse(s)
		if err != nil {
			return nil, err
		}
		t.Add(e)
	}

	return t, nil
}

// TrustedStdlib returns std when TrustStdlib is set and nil otherwise. The
// result is both the terminal part of the standard library and the set of
// packages dependency discovery skips.
func (c *Config) TrustedStdlib(std map[string]bool) map[string]bool {
	if !c.TrustStdlib {
		return nil
	}

	return std
}

// Terminal builds the terminal unit set. std is ignored unless TrustStdlib
// is set.
func (c *Config) Terminal(std map[string]bool) *sink.Terminal {
	return sink.NewTerminal(c.TrustedStdlib(std), c.TerminalUnits...)
}
