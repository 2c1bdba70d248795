package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port          string `yaml:"port"`
	LogLevel      string `yaml:"logLevel"`
	DatabaseURL   string `yaml:"databaseURL"`
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	JWTSecret string `yaml:"jwtSecret"`

	MinioEndpoint  string `yaml:"minioEndpoint"`
	MinioAccessKey string `yaml:"minioAccessKey"`
	MinioSecretKey string `yaml:"minioSecretKey"`
	MinioBucket    string `yaml:"minioBucket"`
	MinioUseSSL    bool   `yaml:"minioUseSSL"`

	WebhookTimeout     string `yaml:"webhookTimeout"`
	WebhookMaxInFlight int    `yaml:"webhookMaxInFlight"`

	TrustedProxyCIDRs       []string `yaml:"trustedProxyCidrs"`
	WriteRateLimitPerMinute int      `yaml:"writeRateLimitPerMinute"`
	MaxConns                int      `yaml:"maxConns"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("SHELFMARK_JWT_SECRET"); v != "" {
		cfg.JWTSecret = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v == "true" {
		cfg.MinioUseSSL = true
	}
	if v := os.Getenv("SHELFMARK_WEBHOOK_TIMEOUT"); v != "" {
		cfg.WebhookTimeout = v
	}
	if v := os.Getenv("SHELFMARK_WEBHOOK_MAX_IN_FLIGHT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.WebhookMaxInFlight = n
		}
	}
	if v := os.Getenv("SHELFMARK_MAX_CONNS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxConns = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set in config.yaml or DATABASE_URL)")
	}
	if cfg.JWTSecret == "" {
		return errors.New("config: jwtSecret is required (set in config.yaml or SHELFMARK_JWT_SECRET)")
	}
	if cfg.WebhookTimeout != "" {
		if _, err := time.ParseDuration(cfg.WebhookTimeout); err != nil {
			return fmt.Errorf("config: invalid webhookTimeout: %w", err)
		}
	}
	return nil
}

// WebhookTimeoutDuration returns the parsed webhook timeout, or zero when
// unset so the dispatcher default applies.
func (c FileConfig) WebhookTimeoutDuration() time.Duration {
	if c.WebhookTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.WebhookTimeout)
	if err != nil {
		return 0
	}
	return d
}
