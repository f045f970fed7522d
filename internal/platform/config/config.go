package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string

	// PostgresURL enables the PostgreSQL stores when set; otherwise the
	// in-memory stores are used (development default).
	PostgresURL string

	// Redis settings; empty URL disables Redis and falls back to the
	// in-process occurrence locks.
	Redis RedisConfig

	// KafkaBrokers enables the audit Kafka sink when non-empty.
	KafkaBrokers []string
	KafkaTopic   string

	// SweepInterval controls how often overdue unconfirmed registrations
	// are expired.
	SweepInterval time.Duration
}

// RedisConfig carries connection tuning for the Redis client.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:          getEnv("EVENTREG_ADDR", ":8080"),
		JWTSigningKey: getEnv("EVENTREG_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     getEnv("EVENTREG_JWT_ISSUER", "eventreg"),
		PostgresURL:   os.Getenv("EVENTREG_POSTGRES_URL"),
		KafkaTopic:    getEnv("EVENTREG_KAFKA_TOPIC", "eventreg.audit"),
		SweepInterval: getDuration("EVENTREG_SWEEP_INTERVAL", time.Minute),
		Redis: RedisConfig{
			URL:          os.Getenv("EVENTREG_REDIS_URL"),
			PoolSize:     getInt("EVENTREG_REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("EVENTREG_REDIS_MIN_IDLE", 2),
			DialTimeout:  getDuration("EVENTREG_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("EVENTREG_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("EVENTREG_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
	if brokers := os.Getenv("EVENTREG_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}
