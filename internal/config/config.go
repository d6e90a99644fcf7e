package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/chama-ledger/ledger/internal/domain/ratelimit"
)

// Config holds service configuration.
type Config struct {
	DatabaseURL    string
	ServerAddr     string
	RedisURL       string
	RabbitMQURL    string
	EventsExchange string
	LogLevel       zerolog.Level
	RateLimit      RateLimit
}

// RateLimit holds limiter tuning and the per-action policies.
type RateLimit struct {
	Prefix           string
	StoreTimeout     time.Duration
	RecoveryInterval time.Duration
	SweepInterval    time.Duration
	HashIdentifiers  bool
	// Transactions applies to create and status-update actions.
	Transactions ratelimit.Options
	// Reviews applies to chama review submissions.
	Reviews ratelimit.Options
}

// Load reads configuration from environment.
func Load() (*Config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		user := getenv("POSTGRES_USER", "ledger")
		pass := getenv("POSTGRES_PASSWORD", "ledger_pass")
		db := getenv("POSTGRES_DB", "ledger")
		host := getenv("POSTGRES_HOST", "localhost")
		port := getenv("POSTGRES_PORT", "5432")
		sslmode := getenv("DATABASE_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, sslmode)
	}

	level, err := zerolog.ParseLevel(strings.ToLower(getenv("LOG_LEVEL", "info")))
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	prefix := getenv("RATE_LIMIT_PREFIX", ratelimit.DefaultPrefix)
	rl := RateLimit{
		Prefix:           prefix,
		StoreTimeout:     parseDuration(getenv("RATE_LIMIT_STORE_TIMEOUT", "200ms"), 200*time.Millisecond),
		RecoveryInterval: parseDuration(getenv("RATE_LIMIT_RECOVERY_INTERVAL", "5s"), 5*time.Second),
		SweepInterval:    parseDuration(getenv("RATE_LIMIT_SWEEP_INTERVAL", "1m"), time.Minute),
		HashIdentifiers:  parseBool(getenv("RATE_LIMIT_HASH_IDENTIFIERS", "false"), false),
		Transactions: ratelimit.Options{
			Prefix:        prefix,
			Limit:         parseInt(getenv("RATE_LIMIT_TX_LIMIT", ""), ratelimit.DefaultLimit),
			WindowSeconds: parseInt(getenv("RATE_LIMIT_TX_WINDOW", ""), ratelimit.DefaultWindowSeconds),
			BurstLimit:    parseInt(getenv("RATE_LIMIT_TX_BURST", ""), 0),
		},
		Reviews: ratelimit.Options{
			Prefix:        prefix,
			Limit:         parseInt(getenv("RATE_LIMIT_REVIEW_LIMIT", ""), 5),
			WindowSeconds: parseInt(getenv("RATE_LIMIT_REVIEW_WINDOW", ""), ratelimit.DefaultWindowSeconds),
			BurstLimit:    parseInt(getenv("RATE_LIMIT_REVIEW_BURST", ""), 2),
		},
	}

	return &Config{
		DatabaseURL:    dsn,
		ServerAddr:     getenv("SERVER_ADDR", "0.0.0.0:8080"),
		RedisURL:       os.Getenv("REDIS_URL"),
		RabbitMQURL:    os.Getenv("RABBITMQ_URL"),
		EventsExchange: getenv("EVENTS_EXCHANGE", "ledger_events"),
		LogLevel:       level,
		RateLimit:      rl,
	}, nil
}

func getenv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func parseDuration(val string, def time.Duration) time.Duration {
	if val == "" {
		return def
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return def
	}
	return d
}

func parseBool(val string, def bool) bool {
	if val == "" {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return def
	}
	return b
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return i
}
