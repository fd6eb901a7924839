// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	LockLocal = "local"
	LockRedis = "redis"

	NotifierWebhook = "webhook"
	NotifierRedis   = "redis"
)

type Config struct {
	Env      string
	Port     string
	LogLevel string

	StoreDriver    string
	DatabaseURL    string
	RunMigrations  bool
	MemorySeedFile string

	LockDriver    string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration
	LockTries     int

	AuthorizerURL      string
	AuthorizerTimeout  time.Duration
	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration

	NotifierDriver     string
	NotifierWebhookURL string
	NotifierStream     string
	NotifierTimeout    time.Duration

	RelayInterval    time.Duration
	RelayBatchSize   int
	RelayWorkers     int
	RelayMaxAttempts int

	PersistAttempts int
}

// Load reads .env when present and then the process environment. A missing
// .env file is not an error.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	p := &parser{}

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", ""),

		StoreDriver:    strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RunMigrations:  p.getBool("RUN_MIGRATIONS", true),
		MemorySeedFile: getEnv("MEMORY_SEED_FILE", ""),

		LockDriver:    strings.ToLower(getEnv("LOCK_DRIVER", LockLocal)),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       p.getInt("REDIS_DB", 0),
		LockTTL:       p.getDuration("LOCK_TTL", 10*time.Second),
		LockTries:     p.getInt("LOCK_TRIES", 32),

		AuthorizerURL:      getEnv("AUTHORIZER_URL", "https://run.mocky.io/v3/8fafdd68-a090-496f-8c9a-3442cf30dae6"),
		AuthorizerTimeout:  p.getDuration("AUTHORIZER_TIMEOUT", 5*time.Second),
		BreakerMaxFailures: uint32(p.getInt("BREAKER_MAX_FAILURES", 5)),
		BreakerOpenTimeout: p.getDuration("BREAKER_OPEN_TIMEOUT", 30*time.Second),

		NotifierDriver:     strings.ToLower(getEnv("NOTIFIER_DRIVER", NotifierWebhook)),
		NotifierWebhookURL: getEnv("NOTIFIER_WEBHOOK_URL", "http://localhost:8081/notifications"),
		NotifierStream:     getEnv("NOTIFIER_STREAM", "psp:notifications"),
		NotifierTimeout:    p.getDuration("NOTIFIER_TIMEOUT", 5*time.Second),

		RelayInterval:    p.getDuration("RELAY_INTERVAL", time.Second),
		RelayBatchSize:   p.getInt("RELAY_BATCH_SIZE", 50),
		RelayWorkers:     p.getInt("RELAY_WORKERS", 4),
		RelayMaxAttempts: p.getInt("RELAY_MAX_ATTEMPTS", 5),

		PersistAttempts: p.getInt("PERSIST_ATTEMPTS", 3),
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when STORE_DRIVER=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %s or %s, got %q", StoreMemory, StorePostgres, c.StoreDriver))
	}

	switch c.LockDriver {
	case LockLocal:
	case LockRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when LOCK_DRIVER=redis"))
		}
		// Redis locks are not extended, so they must outlive the authorization call.
		if c.LockTTL <= c.AuthorizerTimeout {
			errs = append(errs, fmt.Errorf("LOCK_TTL (%s) must exceed AUTHORIZER_TIMEOUT (%s) when LOCK_DRIVER=redis", c.LockTTL, c.AuthorizerTimeout))
		}
	default:
		errs = append(errs, fmt.Errorf("LOCK_DRIVER must be %s or %s, got %q", LockLocal, LockRedis, c.LockDriver))
	}

	switch c.NotifierDriver {
	case NotifierWebhook:
		if c.NotifierWebhookURL == "" {
			errs = append(errs, errors.New("NOTIFIER_WEBHOOK_URL is required when NOTIFIER_DRIVER=webhook"))
		}
	case NotifierRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("REDIS_ADDR is required when NOTIFIER_DRIVER=redis"))
		}
		if c.NotifierStream == "" {
			errs = append(errs, errors.New("NOTIFIER_STREAM is required when NOTIFIER_DRIVER=redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("NOTIFIER_DRIVER must be %s or %s, got %q", NotifierWebhook, NotifierRedis, c.NotifierDriver))
	}

	if c.AuthorizerURL == "" {
		errs = append(errs, errors.New("AUTHORIZER_URL is required"))
	}

	if c.PersistAttempts < 1 {
		errs = append(errs, errors.New("PERSIST_ATTEMPTS must be at least 1"))
	}

	if c.LockTries < 1 {
		errs = append(errs, errors.New("LOCK_TRIES must be at least 1"))
	}

	if c.RelayBatchSize < 1 || c.RelayWorkers < 1 || c.RelayMaxAttempts < 1 {
		errs = append(errs, errors.New("RELAY_BATCH_SIZE, RELAY_WORKERS and RELAY_MAX_ATTEMPTS must be positive"))
	}

	return errors.Join(errs...)
}

// UsesRedis reports whether any component needs a Redis client.
func (c *Config) UsesRedis() bool {
	return c.LockDriver == LockRedis || c.NotifierDriver == NotifierRedis
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// parser collects conversion errors so that every bad key is reported at
// once.
type parser struct {
	errs []error
}

func (p *parser) getInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, raw))
		return fallback
	}

	return v
}

func (p *parser) getBool(key string, fallback bool) bool {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid boolean %q", key, raw))
		return fallback
	}

	return v
}

func (p *parser) getDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}

	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || v <= 0 {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, raw))
		return fallback
	}

	return v
}
