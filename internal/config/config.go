// Package config resolves the service configuration from an optional YAML
// file plus environment variables. A .env file is honored for local
// development; environment variables always win over the file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultPort is the API listen port
	DefaultPort = 8080
	// DefaultRateRPS is the steady request rate allowed per instance
	DefaultRateRPS = 50
	// DefaultRateBurst is the burst size on top of the steady rate
	DefaultRateBurst = 100
	// DefaultWorkerIntervalMS is the schedule worker poll interval
	DefaultWorkerIntervalMS = 2000
)

type Config struct {
	Port        int    `yaml:"port"`
	DatabaseURL string `yaml:"database_url"`
	RedisURL    string `yaml:"redis_url"`
	APIToken    string `yaml:"api_token"`
	LogDir      string `yaml:"log_dir"`
	Verbose     bool   `yaml:"verbose"`

	RateRPS   int `yaml:"rate_rps"`
	RateBurst int `yaml:"rate_burst"`

	WorkerIntervalMS int `yaml:"worker_interval_ms"`

	// WebhookURL, when set, receives signed run event notifications.
	WebhookURL    string `yaml:"webhook_url"`
	WebhookSecret string `yaml:"webhook_secret"`

	SeedDemo      bool   `yaml:"seed_demo"`
	MigrationsDir string `yaml:"migrations_dir"`
}

// Load reads CONFIG_FILE if set, then applies environment overrides and
// defaults. A missing .env file is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             DefaultPort,
		LogDir:           "logs",
		RateRPS:          DefaultRateRPS,
		RateBurst:        DefaultRateBurst,
		WorkerIntervalMS: DefaultWorkerIntervalMS,
		SeedDemo:         true,
		MigrationsDir:    "db/migrations",
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	cfg.Port = getEnvInt("PORT", cfg.Port)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.APIToken = getEnv("API_TOKEN", cfg.APIToken)
	cfg.LogDir = getEnv("LOG_DIR", cfg.LogDir)
	cfg.Verbose = getEnvBool("VERBOSE", cfg.Verbose)
	cfg.RateRPS = getEnvInt("RATE_RPS", cfg.RateRPS)
	cfg.RateBurst = getEnvInt("RATE_BURST", cfg.RateBurst)
	cfg.WorkerIntervalMS = getEnvInt("WORKER_INTERVAL_MS", cfg.WorkerIntervalMS)
	cfg.WebhookURL = getEnv("WEBHOOK_URL", cfg.WebhookURL)
	cfg.WebhookSecret = getEnv("WEBHOOK_SECRET", cfg.WebhookSecret)
	cfg.SeedDemo = getEnvBool("SEED_DEMO", cfg.SeedDemo)
	cfg.MigrationsDir = getEnv("MIGRATIONS_DIR", cfg.MigrationsDir)

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.RateRPS <= 0 {
		cfg.RateRPS = DefaultRateRPS
	}
	if cfg.RateBurst < cfg.RateRPS {
		cfg.RateBurst = cfg.RateRPS
	}
	if cfg.WorkerIntervalMS <= 0 {
		cfg.WorkerIntervalMS = DefaultWorkerIntervalMS
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string { return fmt.Sprintf(":%d", c.Port) }

// WorkerInterval is the schedule worker poll interval as a duration.
func (c *Config) WorkerInterval() time.Duration {
	return time.Duration(c.WorkerIntervalMS) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
