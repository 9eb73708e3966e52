package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
)

type Config struct {
	StorageBaseURL     string        `env:"STORAGE_BASE_URL"`
	StorageToken       string        `env:"STORAGE_TOKEN"`
	GCSBucket          string        `env:"GCS_BUCKET"`
	HTTPRequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	FetchMaxElapsed    time.Duration `env:"FETCH_MAX_ELAPSED" envDefault:"30s"`
	PromotionTimezone  string        `env:"PROMOTION_TIMEZONE" envDefault:"UTC"`
	LogLevel           string        `env:"LOG_LEVEL" envDefault:"info"`

	// Shared pricing cache. Without an address the cache is in-process.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	Database Database
}

// Database configures optional quote persistence. It is enabled by DB_HOST.
type Database struct {
	Host            string        `env:"DB_HOST"`
	Port            int           `env:"DB_PORT" envDefault:"5432"`
	User            string        `env:"DB_USER"`
	Password        string        `env:"DB_PASSWORD"`
	Name            string        `env:"DB_NAME" envDefault:"pricing"`
	SSLMode         string        `env:"DB_SSLMODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"5m"`
	ConnMaxIdleTime time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"2m"`
}

func (d Database) Enabled() bool {
	return d.Host != ""
}

// DSN is the lib/pq connection string.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// Location is the timezone promotion dates are written in.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.PromotionTimezone)
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Validate required fields
	switch {
	case cfg.StorageBaseURL == "" && cfg.GCSBucket == "":
		return nil, errors.New("one of STORAGE_BASE_URL or GCS_BUCKET is required")
	case cfg.StorageBaseURL != "" && cfg.GCSBucket != "":
		return nil, errors.New("STORAGE_BASE_URL and GCS_BUCKET are mutually exclusive")
	}
	if _, err := cfg.Location(); err != nil {
		return nil, fmt.Errorf("invalid PROMOTION_TIMEZONE: %w", err)
	}
	if cfg.Database.Enabled() && cfg.Database.User == "" {
		return nil, errors.New("DB_USER is required when DB_HOST is set")
	}

	return &cfg, nil
}
