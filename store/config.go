package store

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config tunes the runtime. Values are small and process-wide; load them
// from the environment with FromEnv or override per store with WithConfig.
type Config struct {
	// ObserveBuffer is the per-observer snapshot channel capacity. Observers
	// that fall behind lose their oldest buffered snapshot first.
	ObserveBuffer int `env:"REFLOW_OBSERVE_BUFFER" envDefault:"16"`
}

// DefaultConfig returns the built-in tuning, identical to an empty
// environment.
func DefaultConfig() Config {
	return Config{ObserveBuffer: 16}
}

// FromEnv reads Config from REFLOW_* environment variables, falling back to
// the defaults for unset keys.
func FromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("store: parse config from env: %w", err)
	}
	return cfg.normalized(), nil
}

func (c Config) normalized() Config {
	if c.ObserveBuffer <= 0 {
		c.ObserveBuffer = 1
	}
	return c
}
