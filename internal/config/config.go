// Package config resolves where the store lives and how the tool logs and
// stamps lineage markers.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/xoppmerge/xoppmerge/internal/lineage"
)

const (
	// EnvConfig names an alternative config file.
	EnvConfig = "XOPPMERGE_CONFIG"
	// EnvDatabase overrides the store path from the config file.
	EnvDatabase = "XOPPMERGE_DB"
	// EnvLogLevel overrides the log level from the config file.
	EnvLogLevel = "XOPPMERGE_LOG_LEVEL"
)

// Config is the optional HCL config file.
type Config struct {
	Database string        `hcl:"database,optional"`
	LogLevel string        `hcl:"log_level,optional"`
	Marker   *MarkerConfig `hcl:"marker,block"`
}

// MarkerConfig customizes the text item that carries a lineage marker.
type MarkerConfig struct {
	Font  string  `hcl:"font,optional"`
	Size  float64 `hcl:"size,optional"`
	X     float64 `hcl:"x,optional"`
	Y     float64 `hcl:"y,optional"`
	Color string  `hcl:"color,optional"`
}

// Dir returns ~/.config/xoppmerge.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locate home directory: %w", err)
	}
	return filepath.Join(home, ".config", "xoppmerge"), nil
}

// DefaultPath returns the config file used when XOPPMERGE_CONFIG is unset.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.hcl"), nil
}

// Load reads the config file named by XOPPMERGE_CONFIG, or the default
// one. A missing default file is not an error; a missing file named
// explicitly is.
func Load() (*Config, error) {
	if path := os.Getenv(EnvConfig); path != "" {
		return LoadFile(path)
	}
	path, err := DefaultPath()
	if err != nil {
		return &Config{}, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &Config{}, nil
	}
	return LoadFile(path)
}

// LoadFile decodes the HCL file at path.
func LoadFile(path string) (*Config, error) {
	path, err := ExpandHome(path)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", path)
	}

	var cfg Config
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file: %w", err)
	}
	if cfg.LogLevel != "" && hclog.LevelFromString(cfg.LogLevel) == hclog.NoLevel {
		return nil, fmt.Errorf("%s: unknown log_level %q", path, cfg.LogLevel)
	}
	return &cfg, nil
}

// DatabasePath picks the store path: flag, then XOPPMERGE_DB, then the
// config file, then ~/.config/xoppmerge/store.db.
func (c *Config) DatabasePath(flag string) (string, error) {
	path := flag
	if path == "" {
		path = os.Getenv(EnvDatabase)
	}
	if path == "" && c != nil {
		path = c.Database
	}
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "store.db"), nil
	}
	return ExpandHome(path)
}

// Level returns the log level. verbose forces debug output.
func (c *Config) Level(verbose bool) hclog.Level {
	if verbose {
		return hclog.Debug
	}
	name := os.Getenv(EnvLogLevel)
	if name == "" && c != nil {
		name = c.LogLevel
	}
	if lvl := hclog.LevelFromString(name); lvl != hclog.NoLevel {
		return lvl
	}
	return hclog.Warn
}

// MarkerTemplate merges the marker block over the default template.
func (c *Config) MarkerTemplate() lineage.Template {
	t := lineage.DefaultTemplate
	if c == nil || c.Marker == nil {
		return t
	}
	m := c.Marker
	if m.Font != "" {
		t.Font = m.Font
	}
	if m.Size > 0 {
		t.Size = m.Size
	}
	if m.X != 0 {
		t.X = m.X
	}
	if m.Y != 0 {
		t.Y = m.Y
	}
	if m.Color != "" {
		t.Color = m.Color
	}
	return t
}

// ExpandHome replaces a leading ~ with the home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("expand %s: %w", path, err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
