// Package config handles tally.toml configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"tally/internal/runtime"
	"tally/internal/store"
)

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "tally.toml"

// Config represents a tally.toml file.
type Config struct {
	Log       Log                `toml:"log"`
	Resolver  Resolver           `toml:"resolver"`
	Constants map[string]float64 `toml:"constants"`
	Store     Store              `toml:"store"`

	// Dir is the directory containing the tally.toml file (set at load time).
	Dir string `toml:"-"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// Resolver configures how unbound externs are treated.
type Resolver struct {
	Policy  string  `toml:"policy"`
	Default float64 `toml:"default"`
}

// Store configures persistence. An empty driver disables the store.
type Store struct {
	Driver string `toml:"driver"`
	DSN    string `toml:"dsn"`
	Cache  bool   `toml:"cache"`
}

// Default returns the configuration used when no tally.toml exists.
func Default() *Config {
	return &Config{
		Resolver:  Resolver{Policy: runtime.PolicyStrict.String()},
		Constants: map[string]float64{},
	}
}

// Load parses the tally.toml file in dir.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// FindAndLoad walks up from startDir to find a tally.toml file and loads
// it. Without one it returns Default().
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return Default(), nil
		}
		dir = parent
	}
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	if _, err := runtime.ParsePolicy(c.Resolver.Policy); err != nil {
		return err
	}
	switch c.Store.Driver {
	case "", store.DriverSQLite, store.DriverPostgres:
	default:
		return fmt.Errorf("%w: %q", store.ErrUnknownDriver, c.Store.Driver)
	}
	if c.Store.Driver != "" && c.Store.DSN == "" {
		return fmt.Errorf("store driver %s needs a dsn", c.Store.Driver)
	}
	return nil
}

// NewEnv builds the runtime Env described by the resolver section and
// seeded with the constants table.
func (c *Config) NewEnv() *runtime.Env {
	policy, _ := runtime.ParsePolicy(c.Resolver.Policy)
	env := runtime.NewEnv(policy, c.Resolver.Default)
	env.SetAll(c.Constants)
	return env
}

// StoreDSN returns the store DSN; a relative sqlite path is taken relative
// to the directory holding tally.toml.
func (c *Config) StoreDSN() string {
	dsn := c.Store.DSN
	if c.Store.Driver == store.DriverSQLite && c.Dir != "" && dsn != "" &&
		dsn != ":memory:" && !filepath.IsAbs(dsn) {
		return filepath.Join(c.Dir, dsn)
	}
	return dsn
}

// LogFile returns the log file path, relative paths resolved like StoreDSN.
// Empty means stderr.
func (c *Config) LogFile() string {
	if c.Log.File == "" || filepath.IsAbs(c.Log.File) || c.Dir == "" {
		return c.Log.File
	}
	return filepath.Join(c.Dir, c.Log.File)
}
