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

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):.
//  1. defaults (New())
//  2. file (YAML) if MMX_CONFIG is set
//  3. env (prefix MMX_)
func Load(ctx context.Context) (*Config, error) {
	// Start with defaults
	base := New()

	k := koanf.New(".")

	// Load from file if provided
	if path := os.Getenv("MMX_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Environment variables: MMX_ADDR, MMX_MODEL_KIND, MMX_ADSTOCK_DECAY, ...
	// Map env keys like MMX_MODEL_KIND -> model_kind (flat keys).
	// Preserve underscores to match koanf tags on the struct.
	envProvider := env.Provider("MMX_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "mmx_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// Unmarshal into a copy
	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration invariants. Violations are fatal at
// startup; the service must not reach the serving state with a bad decay
// or an unknown model kind.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.ModelKind {
	case ModelKindLinear, ModelKindBayesian:
	default:
		return fmt.Errorf("%w: unknown model_kind %q (want %q or %q)",
			ErrInvalidConfig, c.ModelKind, ModelKindLinear, ModelKindBayesian)
	}
	if c.AdstockDecay < 0 || c.AdstockDecay >= 1 {
		return fmt.Errorf("%w: adstock_decay %v outside [0,1)", ErrInvalidConfig, c.AdstockDecay)
	}
	if c.MinTrainingRows < 2 {
		return fmt.Errorf("%w: min_training_rows must be at least 2", ErrInvalidConfig)
	}
	if c.MinChannels < 1 {
		return fmt.Errorf("%w: min_channels must be at least 1", ErrInvalidConfig)
	}
	if c.BayesChains < 2 {
		return fmt.Errorf("%w: bayes_chains must be at least 2 for convergence diagnostics", ErrInvalidConfig)
	}
	if c.BayesDraws <= 0 || c.BayesWarmup < 0 {
		return fmt.Errorf("%w: bayes_draws must be positive and bayes_warmup non-negative", ErrInvalidConfig)
	}
	return nil
}
