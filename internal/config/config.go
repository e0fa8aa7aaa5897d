// Package config loads node configuration from a .env file and the
// environment, following a godotenv+envconfig+slog pattern: .env is
// loaded first, real environment variables always
// win, and the result is validated once before the node starts.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every environment-supplied setting a node needs, per
// spec §6's "HTTP_PORT / P2P_PORT / PRIVATE_KEY" and the ambient
// logging level this implementation adds on top.
type Config struct {
	HTTPPort   int    `envconfig:"HTTP_PORT" default:"3000"`
	P2PPort    int    `envconfig:"P2P_PORT" default:"5000"`
	PrivateKey string `envconfig:"PRIVATE_KEY" default:"wallet/private_key"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads .env (if present) then the environment, validating the result.
func Load() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			slog.Warn("failed to load .env file", "error", err)
		} else {
			slog.Info("loaded .env file")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("%w: HTTP_PORT must be 1-65535, got %d", ErrInvalidConfig, c.HTTPPort)
	}
	if c.P2PPort < 1 || c.P2PPort > 65535 {
		return fmt.Errorf("%w: P2P_PORT must be 1-65535, got %d", ErrInvalidConfig, c.P2PPort)
	}
	if c.PrivateKey == "" {
		return fmt.Errorf("%w: PRIVATE_KEY path must not be empty", ErrInvalidConfig)
	}
	return nil
}

// NewLogger builds the process-wide structured logger at the
// configured level.
func (c *Config) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}
