// Package config holds the server configuration
package config

import (
	"time"

	"github.com/caarlos0/env"
)

// Config is parsed from the environment; command-line flags may override
// Port and Debug afterwards.
type Config struct {
	Port            string        `env:"PORT"              envDefault:"8080"`
	Debug           bool          `env:"DEBUG"             envDefault:"false"`
	FrontendPath    string        `env:"FRONTEND_PATH"     envDefault:""`
	APIKeys         []string      `env:"API_KEYS"          envSeparator:","`
	MatchInterval   time.Duration `env:"MATCH_INTERVAL"    envDefault:"2s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"  envDefault:"20s"`
}

// Load parses the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
