package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config captures the settings required to boot the risk engine.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Registry RegistryConfig `yaml:"registry"`
	Cache    CacheConfig    `yaml:"cache"`
	Usage    UsageConfig    `yaml:"usage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig controls HTTP listener behaviour.
type ServerConfig struct {
	Address         string        `yaml:"address"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// RegistryConfig configures access to the companies registry API.
type RegistryConfig struct {
	BaseURL   string          `yaml:"baseURL"`
	APIKey    string          `yaml:"apiKey"`
	Timeout   time.Duration   `yaml:"timeout"`
	CacheTTL  time.Duration   `yaml:"cacheTTL"`
	RateLimit RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig bounds outbound registry traffic to the published quota.
type RateLimitConfig struct {
	MaxRequests int           `yaml:"maxRequests"`
	Window      time.Duration `yaml:"window"`
}

// CacheConfig controls where registry responses are cached.
// Backend is one of "memory", "redis" or "none".
type CacheConfig struct {
	Backend      string        `yaml:"backend"`
	URL          string        `yaml:"url"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxAge       time.Duration `yaml:"maxAge"`
}

// UsageConfig controls run-count persistence. Backend is one of
// "memory" or "postgres".
type UsageConfig struct {
	Backend string `yaml:"backend"`
	DSN     string `yaml:"dsn"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("REGISTRY_RISK_CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)

	if cfg.Registry.APIKey == "" {
		return nil, errors.New("registry API key is required (set registry.apiKey or REGISTRY_API_KEY)")
	}
	return &cfg, nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Address:         ":8080",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Registry: RegistryConfig{
			BaseURL:  "https://api.company-information.service.gov.uk",
			Timeout:  30 * time.Second,
			CacheTTL: 24 * time.Hour,
			RateLimit: RateLimitConfig{
				MaxRequests: 600,
				Window:      5 * time.Minute,
			},
		},
		Cache: CacheConfig{
			Backend:      "memory",
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxAge:       7 * 24 * time.Hour,
		},
		Usage:   UsageConfig{Backend: "memory"},
		Logging: LoggingConfig{Level: "info", JSON: false},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("REGISTRY_RISK_SERVER_ADDRESS"); v != "" {
		cfg.Server.Address = v
	}
	if v := os.Getenv("REGISTRY_RISK_METRICS_ADDRESS"); v != "" {
		cfg.Server.MetricsAddress = v
	}
	if v := os.Getenv("REGISTRY_RISK_BASE_URL"); v != "" {
		cfg.Registry.BaseURL = v
	}
	if v := os.Getenv("REGISTRY_API_KEY"); v != "" {
		cfg.Registry.APIKey = v
	}
	if v := os.Getenv("REGISTRY_RISK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Registry.Timeout = d
		}
	}
	if v := os.Getenv("REGISTRY_RISK_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Registry.CacheTTL = d
		}
	}
	if v := os.Getenv("REGISTRY_RISK_RATE_LIMIT_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Registry.RateLimit.MaxRequests = n
		}
	}
	if v := os.Getenv("REGISTRY_RISK_RATE_LIMIT_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Registry.RateLimit.Window = d
		}
	}
	if v := os.Getenv("REGISTRY_RISK_CACHE_BACKEND"); v != "" {
		cfg.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("REGISTRY_RISK_CACHE_URL"); v != "" {
		cfg.Cache.URL = v
	}
	if v := os.Getenv("REGISTRY_RISK_CACHE_MAX_AGE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.MaxAge = d
		}
	}
	if v := os.Getenv("REGISTRY_RISK_USAGE_BACKEND"); v != "" {
		cfg.Usage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("REGISTRY_RISK_USAGE_DSN"); v != "" {
		cfg.Usage.DSN = v
	}
	if v := os.Getenv("REGISTRY_RISK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("REGISTRY_RISK_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
}
