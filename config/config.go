package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/justinjudd/pairings/matching"
)

// Config is the pairing service configuration
type Config struct {
	Addr     string `env:"PAIRINGS_ADDR" envDefault:":8080"`
	DBPath   string `env:"PAIRINGS_DB_PATH" envDefault:"pairings.db"`
	Seed     int64  `env:"PAIRINGS_SEED"`                    // Fixed shuffle seed, zero seeds from the clock
	MaxBatch int    `env:"PAIRINGS_MAX_BATCH" envDefault:"4"` // Concurrent generators per preview request

	MaxVertices int `env:"PAIRINGS_MAX_VERTICES" envDefault:"4096"` // Vertex indices accepted by the matching endpoint
}

// Load reads the configuration from environment variables
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.MaxBatch < 1 {
		return Config{}, fmt.Errorf("PAIRINGS_MAX_BATCH must be positive, got %d", cfg.MaxBatch)
	}
	if cfg.MaxVertices < 1 || cfg.MaxVertices > matching.MaxVertices {
		return Config{}, fmt.Errorf("PAIRINGS_MAX_VERTICES must be between 1 and %d, got %d", matching.MaxVertices, cfg.MaxVertices)
	}
	return cfg, nil
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}
