package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"slugwiki/app/internal/sluggable"
)

// Config holds runtime configuration values for the slugwiki server.
type Config struct {
	DBPath        string
	ServerPort    int
	LogLevel      string
	SentryDSN     string
	SentryRelease string
	Environment   string
	ShutdownGrace time.Duration
	RateLimit     RateLimit
	Slug          Slug
}

// RateLimit configures the per-client token bucket of the HTTP layer.
type RateLimit struct {
	Burst             int
	RequestsPerSecond float64
	ClientTTL         time.Duration
}

// Slug holds the slug behaviour settings shared by pages and documents.
type Slug struct {
	Pattern     string
	Field       string
	Replacement string
	Overwrite   bool
	Suffix      sluggable.SuffixStrategy
}

const (
	defaultDBPath        = "./data/slugwiki.db"
	defaultServerPort    = 8080
	defaultLogLevel      = "info"
	defaultEnvironment   = "development"
	defaultShutdownGrace = 10 * time.Second

	defaultRateLimitBurst = 30
	defaultRateLimitRPS   = 10
	defaultRateLimitTTL   = 5 * time.Minute

	defaultSlugPattern = ":title"
)

// Load reads configuration values from environment variables, applying defaults where necessary.
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:        getEnv("DB_PATH", defaultDBPath),
		LogLevel:      getEnv("LOG_LEVEL", defaultLogLevel),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		SentryRelease: os.Getenv("SENTRY_RELEASE"),
		Environment:   getEnv("ENV", defaultEnvironment),
		ShutdownGrace: defaultShutdownGrace,
		Slug: Slug{
			Pattern:     getEnv("SLUG_PATTERN", defaultSlugPattern),
			Field:       getEnv("SLUG_FIELD", sluggable.DefaultField),
			Replacement: getEnv("SLUG_REPLACEMENT", sluggable.DefaultReplacement),
		},
	}

	var err error
	if cfg.ServerPort, err = intEnv("SERVER_PORT", defaultServerPort); err != nil {
		return nil, err
	}
	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return nil, eris.Errorf("invalid SERVER_PORT value: %d is out of range", cfg.ServerPort)
	}

	if cfg.RateLimit.Burst, err = intEnv("RATE_LIMIT_BURST", defaultRateLimitBurst); err != nil {
		return nil, err
	}
	if cfg.RateLimit.RequestsPerSecond, err = floatEnv("RATE_LIMIT_RPS", defaultRateLimitRPS); err != nil {
		return nil, err
	}
	if cfg.RateLimit.ClientTTL, err = durationEnv("RATE_LIMIT_CLIENT_TTL", defaultRateLimitTTL); err != nil {
		return nil, err
	}

	if cfg.Slug.Overwrite, err = boolEnv("SLUG_OVERWRITE", false); err != nil {
		return nil, err
	}
	suffix := os.Getenv("SLUG_SUFFIX_STRATEGY")
	if cfg.Slug.Suffix, err = sluggable.ParseSuffixStrategy(suffix); err != nil {
		return nil, eris.Wrapf(err, "invalid SLUG_SUFFIX_STRATEGY value: %s", suffix)
	}

	return cfg, nil
}

// Options converts the slug settings into sluggable configuration options.
func (s Slug) Options() []sluggable.Option {
	return []sluggable.Option{
		sluggable.WithPattern(s.Pattern),
		sluggable.WithField(s.Field),
		sluggable.WithReplacement(s.Replacement),
		sluggable.WithOverwrite(s.Overwrite),
		sluggable.WithSuffixStrategy(s.Suffix),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, eris.Wrapf(err, "invalid %s value: %s", key, raw)
	}
	return value, nil
}
