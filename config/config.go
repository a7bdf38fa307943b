// Package config loads the server configuration from a YAML file.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Addr            string  `yaml:"addr"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateBurst       int     `yaml:"rate_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the PostgreSQL connection configuration.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// AuthConfig holds token signing and sign-in lockout settings.
type AuthConfig struct {
	SignKey          string        `yaml:"sign_key"`
	AccessTTLMinutes int           `yaml:"access_ttl_minutes"`
	AccessTTL        time.Duration `yaml:"-"` // ignored by YAML parser
	LockoutMaxFails  int           `yaml:"lockout_max_fails"`
	LockoutMinutes   int           `yaml:"lockout_minutes"`
}

// Default returns a configuration with all defaults applied and no DSN
// or signing key set.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.RateBurst <= 0 {
		cfg.Server.RateBurst = 5
	}
	if cfg.Auth.AccessTTLMinutes <= 0 {
		cfg.Auth.AccessTTLMinutes = 15
	}
	cfg.Auth.AccessTTL = time.Duration(cfg.Auth.AccessTTLMinutes) * time.Minute
	if cfg.Auth.LockoutMaxFails <= 0 {
		cfg.Auth.LockoutMaxFails = 5
	}
	if cfg.Auth.LockoutMinutes <= 0 {
		cfg.Auth.LockoutMinutes = 15
	}
}
