package config

import (
	"errors"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, an optional YAML file, and
// environment variables. Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if VITALIS_CONFIG is set
//  3. env (prefix VITALIS_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv("VITALIS_CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// Environment variables: VITALIS_ADDR, VITALIS_MODEL_TTL_MINUTES, ...
	// Underscores are preserved to match the koanf struct tags.
	envProvider := env.Provider("VITALIS_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "vitalis_")
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.ScorerBackend != "linear" && cfg.ScorerBackend != "heuristic" {
		return nil, errors.New("scorer_backend must be linear or heuristic")
	}
	if cfg.ModelTTLMinutes <= 0 {
		return nil, errors.New("model_ttl_minutes must be positive")
	}
	if cfg.MinTrainingRows < 1 {
		return nil, errors.New("min_training_rows must be at least 1")
	}
	return &cfg, nil
}
