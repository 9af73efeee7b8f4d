package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional YAML file, and
// environment variables.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if STRATA_CONFIG is set
//  3. env (prefix STRATA_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("STRATA_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
		}
	}

	// STRATA_ADDR -> addr, STRATA_CONFLICT_RADIUS -> conflict_radius, ...
	envProvider := env.Provider("STRATA_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "strata_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.StoreBackend != StoreMemory && c.StoreBackend != StoreSQLite:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.StoreBackend)
	case c.StoreBackend == StoreSQLite && c.SQLitePath == "":
		return fmt.Errorf("%w: sqlite_path required for sqlite backend", ErrInvalidConfig)
	case c.ConflictRadius <= 0:
		return fmt.Errorf("%w: conflict_radius must be positive", ErrInvalidConfig)
	case c.CellSize <= 0:
		return fmt.Errorf("%w: cell_size must be positive", ErrInvalidConfig)
	}
	return nil
}
