package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tailored-agentic-units/substate/observability"
	"gopkg.in/yaml.v3"
)

// Config holds root node construction parameters. Observer names are
// resolved through the observability registry.
//
// Example JSON:
//
//	{
//	  "tag": "session",
//	  "observer": "slog",
//	  "patches": true
//	}
type Config struct {
	Tag      string `json:"tag,omitempty" yaml:"tag,omitempty"`
	Observer string `json:"observer,omitempty" yaml:"observer,omitempty"`
	Patches  bool   `json:"patches,omitempty" yaml:"patches,omitempty"`
}

// DefaultConfig returns a Config with the "noop" observer and edit lists
// disabled.
func DefaultConfig() Config {
	return Config{
		Observer: "noop",
	}
}

// Merge applies non-zero values from source into c.
func (c *Config) Merge(source *Config) {
	if source.Tag != "" {
		c.Tag = source.Tag
	}
	if source.Observer != "" {
		c.Observer = source.Observer
	}
	if source.Patches {
		c.Patches = true
	}
}

// LoadConfig reads a config file, merges it with defaults, and returns the
// result. Files ending in .yaml or .yml are decoded as YAML, anything else as
// JSON.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &loaded)
	default:
		err = json.Unmarshal(data, &loaded)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}

// NewFromConfig creates a root node from cfg and registers middleware.
// Registering middleware enables edit lists regardless of cfg.Patches.
func NewFromConfig(initial any, cfg Config, middleware ...MiddlewareSource) (*Node, error) {
	name := cfg.Observer
	if name == "" {
		name = "noop"
	}
	observer, err := observability.GetObserver(name)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observer: %w", err)
	}

	opts := []Option{WithObserver(observer), WithTag(cfg.Tag)}
	if cfg.Patches {
		opts = append(opts, WithPatches())
	}

	n := New(initial, opts...)
	if len(middleware) > 0 {
		n.RegisterMiddleware(middleware...)
	}
	return n, nil
}
