// Package config loads service configuration from the environment.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything main needs to wire the service.
type Config struct {
	Addr          string `env:"ALIASPAY_ADDR" envDefault:":8080"`
	JWTSigningKey string `env:"JWT_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`

	// DatabaseURL selects the Postgres-backed stores; when empty, the service
	// runs entirely on in-memory stores (dev / tests only).
	DatabaseURL string `env:"DATABASE_URL"`

	// RedisURL selects the Redis-backed session store. See DESIGN.md for the
	// atomicity tradeoff versus the Postgres session store.
	RedisURL string `env:"REDIS_URL"`

	Redis RedisConfig `envPrefix:"REDIS_"`

	// KafkaBrokers enables the Kafka notification publisher when non-empty.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic   string   `env:"KAFKA_TOPIC" envDefault:"aliaspay.events"`

	// SessionTTL bounds how long a created authentication session stays
	// consumable. Zero keeps sessions live until consumed.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"0"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
}

// RedisConfig tunes the shared Redis client.
type RedisConfig struct {
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
