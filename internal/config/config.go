package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"

	EnvDevelopment = "development"

	minSecretLen = 32
	devSecret    = "dev-only-secret-change-me-0123456789abcdef"
)

// AppConfig holds runtime configuration, injected through environment variables
type AppConfig struct {
	Port        string
	LogLevel    string
	Environment string

	StoreDriver string
	DBPath      string

	JWTSecret    string
	SessionTTL   time.Duration
	CookieSecure bool

	// empty RedisAddr disables Redis-backed sessions and rate limiting
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	BidRateLimit  int
	BidRateWindow time.Duration

	// empty KafkaBrokers disables event publishing
	KafkaBrokers []string
	KafkaTopic   string

	AllowSelfBid       bool
	BidMaxAttempts     int
	CloseSweepInterval time.Duration
	DefaultDuration    time.Duration
}

// Addr returns the listen address for the HTTP server
func (c AppConfig) Addr() string {
	return ":" + c.Port
}

// SQLiteDSN returns the DSN for DBPath with foreign keys and a busy timeout enabled
func (c AppConfig) SQLiteDSN() string {
	return fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", c.DBPath)
}

// Load reads and validates configuration, falling back to defaults when unset.
func Load() (AppConfig, error) {
	cfg := AppConfig{
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		Environment: getEnv("ENVIRONMENT", EnvDevelopment),
		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", StoreMemory)),
		DBPath:      getEnv("DB_PATH", "auction.db"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		// not trimmed: passwords may legitimately carry spaces
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:  splitCSV(getEnv("KAFKA_BROKERS", "")),
		KafkaTopic:    getEnv("KAFKA_TOPIC", "auction-events"),
	}

	var err error

	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		return AppConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	if cfg.BidRateLimit, err = getEnvInt("BID_RATE_LIMIT", 20); err != nil {
		return AppConfig{}, fmt.Errorf("invalid BID_RATE_LIMIT: %w", err)
	}
	if cfg.BidRateLimit <= 0 {
		return AppConfig{}, fmt.Errorf("BID_RATE_LIMIT must be > 0")
	}

	rateWindowSec, err := getEnvInt("BID_RATE_WINDOW_SEC", 1)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid BID_RATE_WINDOW_SEC: %w", err)
	}
	if rateWindowSec <= 0 {
		return AppConfig{}, fmt.Errorf("BID_RATE_WINDOW_SEC must be > 0")
	}
	cfg.BidRateWindow = time.Duration(rateWindowSec) * time.Second

	if cfg.AllowSelfBid, err = getEnvBool("ALLOW_SELF_BID", true); err != nil {
		return AppConfig{}, fmt.Errorf("invalid ALLOW_SELF_BID: %w", err)
	}
	if cfg.CookieSecure, err = getEnvBool("COOKIE_SECURE", false); err != nil {
		return AppConfig{}, fmt.Errorf("invalid COOKIE_SECURE: %w", err)
	}

	if cfg.BidMaxAttempts, err = getEnvInt("BID_MAX_ATTEMPTS", 16); err != nil {
		return AppConfig{}, fmt.Errorf("invalid BID_MAX_ATTEMPTS: %w", err)
	}
	if cfg.BidMaxAttempts <= 0 {
		return AppConfig{}, fmt.Errorf("BID_MAX_ATTEMPTS must be > 0")
	}

	if cfg.SessionTTL, err = getEnvDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return AppConfig{}, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}
	if cfg.SessionTTL <= 0 {
		return AppConfig{}, fmt.Errorf("SESSION_TTL must be > 0")
	}

	if cfg.CloseSweepInterval, err = getEnvDuration("CLOSE_SWEEP_INTERVAL", 30*time.Second); err != nil {
		return AppConfig{}, fmt.Errorf("invalid CLOSE_SWEEP_INTERVAL: %w", err)
	}
	if cfg.CloseSweepInterval <= 0 {
		return AppConfig{}, fmt.Errorf("CLOSE_SWEEP_INTERVAL must be > 0")
	}

	durationHours, err := getEnvInt("DEFAULT_DURATION_HOURS", 24)
	if err != nil {
		return AppConfig{}, fmt.Errorf("invalid DEFAULT_DURATION_HOURS: %w", err)
	}
	if durationHours <= 0 {
		return AppConfig{}, fmt.Errorf("DEFAULT_DURATION_HOURS must be > 0")
	}
	cfg.DefaultDuration = time.Duration(durationHours) * time.Hour

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return AppConfig{}, fmt.Errorf("invalid PORT: %w", err)
	}

	switch cfg.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
		if cfg.DBPath == "" {
			return AppConfig{}, fmt.Errorf("DB_PATH must not be empty for the sqlite store")
		}
	default:
		return AppConfig{}, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreMemory, StoreSQLite, cfg.StoreDriver)
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return AppConfig{}, fmt.Errorf("KAFKA_TOPIC must not be empty when KAFKA_BROKERS is set")
	}

	if cfg.JWTSecret == "" && cfg.Environment == EnvDevelopment {
		cfg.JWTSecret = devSecret
	}
	if len(cfg.JWTSecret) < minSecretLen {
		return AppConfig{}, fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLen)
	}

	return cfg, nil
}

// getEnv reads a string variable, returning fallback when it is empty.
func getEnv(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

// splitCSV parses a comma separated list, dropping blanks.
func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := strings.TrimSpace(p)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
