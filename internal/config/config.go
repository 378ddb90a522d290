// Package config loads service configuration from a YAML file with
// environment variable overrides for deployment-specific values.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joeshaw/envdecode"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration for the storefront service. Environment
// variables named in the env tags override the file values.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Redis    RedisConfig    `yaml:"redis"`
}

type ServerConfig struct {
	Host            string `yaml:"host" env:"SERVER_HOST"`
	Port            int    `yaml:"port" env:"SERVER_PORT"`
	ReadTimeoutSec  int    `yaml:"read_timeout_sec"`
	WriteTimeoutSec int    `yaml:"write_timeout_sec"`
	AllowedOrigins  string `yaml:"allowed_origins" env:"ALLOWED_ORIGINS"`
	RateLimitRPS    int    `yaml:"rate_limit_rps"`
	RateLimitBurst  int    `yaml:"rate_limit_burst"`
}

type DatabaseConfig struct {
	Driver          string `yaml:"driver" env:"DATABASE_DRIVER"`
	DSN             string `yaml:"dsn" env:"DATABASE_DSN"`
	MaxOpenConns    int    `yaml:"max_open_conns"`
	MaxIdleConns    int    `yaml:"max_idle_conns"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime_sec"`
}

type AuthConfig struct {
	Secret       string `yaml:"secret" env:"AUTH_SECRET"`
	TokenTTLMins int    `yaml:"token_ttl_mins"`
}

type LoggingConfig struct {
	Level      string `yaml:"level" env:"LOG_LEVEL"`
	Format     string `yaml:"format" env:"LOG_FORMAT"`
	Output     string `yaml:"output"`
	FilePrefix string `yaml:"file_prefix"`
}

type CatalogConfig struct {
	FeedURL    string `yaml:"feed_url" env:"CATALOG_FEED_URL"`
	FeedToken  string `yaml:"feed_token" env:"CATALOG_FEED_TOKEN"`
	TimeoutSec int    `yaml:"timeout_sec"`
	CacheTTL   int    `yaml:"cache_ttl_sec"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db"`
}

// Load reads the config file named by STOREFRONT_CONFIG (default
// config/config.yaml), applies environment overrides, and validates.
func Load() (*Config, error) {
	path := os.Getenv("STOREFRONT_CONFIG")
	if path == "" {
		path = "config/config.yaml"
	}
	return LoadFromPath(path)
}

// LoadFromPath reads configuration from a specific file. A missing file is
// not fatal; defaults plus environment overrides still apply.
func LoadFromPath(path string) (*Config, error) {
	cfg := defaults()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := envdecode.Decode(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}

	if cfg.Server.Port <= 0 {
		return nil, fmt.Errorf("server.port must be positive")
	}
	if cfg.Auth.Secret == "" {
		return nil, fmt.Errorf("auth.secret is required (set AUTH_SECRET)")
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeoutSec:  15,
			WriteTimeoutSec: 15,
			RateLimitRPS:    20,
			RateLimitBurst:  40,
		},
		Database: DatabaseConfig{
			Driver:       "postgres",
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Auth: AuthConfig{
			TokenTTLMins: 60,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Catalog: CatalogConfig{
			TimeoutSec: 10,
			CacheTTL:   300,
		},
	}
}

// AllowedOriginList splits the configured origins on commas.
func (s ServerConfig) AllowedOriginList() []string {
	if strings.TrimSpace(s.AllowedOrigins) == "" {
		return nil
	}
	parts := strings.Split(s.AllowedOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
