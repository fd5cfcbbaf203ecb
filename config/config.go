// Package config handles ilhook.toml configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// FileName is the configuration file looked up by Load and FindAndLoad.
const FileName = "ilhook.toml"

// Config represents an ilhook.toml file.
type Config struct {
	Log     Log     `toml:"log"`
	Rewrite Rewrite `toml:"rewrite"`
	Store   Store   `toml:"store"`

	// Dir is the directory containing the ilhook.toml file (set at load time).
	Dir string `toml:"-"`
}

// Log configures the commonlog backend.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Rewrite configures body rewriting.
type Rewrite struct {
	// StrictOffsets makes a clause boundary on a removed instruction an
	// error instead of a logged fallback.
	StrictOffsets bool `toml:"strict-offsets"`
	Nops          int  `toml:"nops"`
}

// Store configures the method corpus.
type Store struct {
	Path string `toml:"path"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

func (c *Config) applyDefaults() {
	if c.Rewrite.Nops <= 0 {
		c.Rewrite.Nops = 1
	}
}

// Load parses an ilhook.toml file from the given directory.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c Config
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	c.applyDefaults()
	return &c, nil
}

// FindAndLoad walks up from startDir to find an ilhook.toml file and loads
// it. Returns Default() if none is found.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, FileName)); err == nil {
			return Load(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// StorePath returns the configured corpus path, resolved against Dir when
// relative. It is empty when no path is configured.
func (c *Config) StorePath() string {
	return c.resolve(c.Store.Path)
}

// LogFile returns the configured log file, resolved like StorePath.
func (c *Config) LogFile() string {
	return c.resolve(c.Log.File)
}

func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Dir == "" {
		return p
	}
	return filepath.Join(c.Dir, p)
}
