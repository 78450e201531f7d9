package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config captures process-level configuration. Values come from the
// environment so main stays lean and deployments stay twelve-factor.
type Config struct {
	Addr string

	// IDPermanenceKey is the master key for the identifier-protection codec.
	// Sourced from the secret store; never logged.
	IDPermanenceKey []byte

	// PARRequestURITTL is the single service-wide lifetime for pushed
	// authorization requests. Callers rely on expires_in being stable.
	PARRequestURITTL time.Duration

	Redis    RedisConfig
	Postgres PostgresConfig
	Kafka    KafkaConfig
}

// RedisConfig holds connection settings for the grant store backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PostgresConfig holds the DSN for the SQL-backed grant and audit stores.
type PostgresConfig struct {
	DSN string
}

// KafkaConfig holds broker and topic settings for the audit publisher.
type KafkaConfig struct {
	Brokers    []string
	AuditTopic string
}

// FromEnv builds a Config from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		Addr:             envOr("CUSTODIA_ADDR", ":8081"),
		PARRequestURITTL: envDurationOr("CUSTODIA_PAR_TTL", 90*time.Second),
		Redis: RedisConfig{
			URL:          os.Getenv("CUSTODIA_REDIS_URL"),
			PoolSize:     envIntOr("CUSTODIA_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("CUSTODIA_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDurationOr("CUSTODIA_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("CUSTODIA_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("CUSTODIA_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Postgres: PostgresConfig{
			DSN: os.Getenv("CUSTODIA_POSTGRES_DSN"),
		},
		Kafka: KafkaConfig{
			Brokers:    splitNonEmpty(os.Getenv("CUSTODIA_KAFKA_BROKERS")),
			AuditTopic: envOr("CUSTODIA_KAFKA_AUDIT_TOPIC", "custodia.audit"),
		},
	}

	rawKey := os.Getenv("CUSTODIA_ID_PERMANENCE_KEY")
	if rawKey == "" {
		return Config{}, fmt.Errorf("CUSTODIA_ID_PERMANENCE_KEY is required")
	}
	key, err := base64.RawURLEncoding.DecodeString(rawKey)
	if err != nil {
		return Config{}, fmt.Errorf("CUSTODIA_ID_PERMANENCE_KEY must be base64url: %w", err)
	}
	if len(key) < 16 {
		return Config{}, fmt.Errorf("CUSTODIA_ID_PERMANENCE_KEY must be at least 16 bytes")
	}
	cfg.IDPermanenceKey = key

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if part := s[start:i]; part != "" {
				out = append(out, part)
			}
			start = i + 1
		}
	}
	return out
}
