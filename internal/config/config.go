// Package config loads server configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config is the server configuration.
type Config struct {
	Port   string `env:"PORT" envDefault:"8080"`
	DBPath string `env:"DB_PATH" envDefault:"faeweave.db"`

	// OpenRouterKey authenticates against the generative backend. Empty
	// means every generate call fails with an auth error.
	OpenRouterKey string `env:"OPENROUTER_API_KEY"`

	// JWTSecret signs session tokens. Empty disables auth: every request
	// runs as the "public" user.
	JWTSecret string `env:"JWT_SECRET"`

	Model       string  `env:"MODEL" envDefault:"openai/gpt-4o-mini"`
	Temperature float64 `env:"TEMPERATURE" envDefault:"0.8"`
	MaxTokens   int     `env:"MAX_TOKENS" envDefault:"500"`

	// WorldbookPath optionally overrides the built-in worldbook.
	WorldbookPath string `env:"WORLDBOOK_PATH"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
