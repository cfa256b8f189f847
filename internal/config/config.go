// Package config содержит логику чтения конфигурации витрины.
package config

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress = "localhost:8080"
	defaultTokenTTL   = 24 * time.Hour
	minSecretLength   = 32
)

// Config содержит параметры конфигурации витрины.
type Config struct {
	RunAddress  string        `env:"RUN_ADDRESS"`
	DatabaseURI string        `env:"DATABASE_URI"`
	TokenSecret string        `env:"TOKEN_SECRET"`
	TokenTTL    time.Duration `env:"TOKEN_TTL"`

	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminEmail    string `env:"ADMIN_EMAIL" envDefault:"admin@example.com"`
	AdminPassword string `env:"ADMIN_PASSWORD"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envTokenSecret := cfg.TokenSecret
	envTokenTTL := cfg.TokenTTL

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI, in-memory storage when empty")
	flag.StringVar(&cfg.TokenSecret, "s", "", "token signing secret, at least 32 bytes")
	flag.DurationVar(&cfg.TokenTTL, "t", defaultTokenTTL, "token lifetime")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envTokenSecret != "" {
		cfg.TokenSecret = envTokenSecret
	}
	if envTokenTTL != 0 {
		cfg.TokenTTL = envTokenTTL
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}

	return cfg, nil
}

// Validate проверяет обязательные параметры.
func (c *Config) Validate() error {
	if len(c.TokenSecret) < minSecretLength {
		return fmt.Errorf("token secret must be at least %d bytes, got %d", minSecretLength, len(c.TokenSecret))
	}
	if c.TokenTTL <= 0 {
		return errors.New("token TTL must be positive")
	}
	return nil
}

// SeedAdmin сообщает, нужно ли создавать администратора при запуске.
func (c *Config) SeedAdmin() bool {
	return c.AdminUsername != "" && c.AdminPassword != ""
}
