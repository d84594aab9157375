// Package config loads process configuration from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything cmd/server needs to wire the process.
type Config struct {
	Addr     string `env:"VESTRY_ADDR" envDefault:":8080"`
	LogLevel string `env:"VESTRY_LOG_LEVEL" envDefault:"info"`

	// Authorization proofs are HS256-signed; the key must be shared with
	// whatever issues proofs to callers.
	ProofSigningKey string        `env:"VESTRY_PROOF_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	ProofIssuer     string        `env:"VESTRY_PROOF_ISSUER" envDefault:"vestry"`
	ProofAudience   string        `env:"VESTRY_PROOF_AUDIENCE" envDefault:"vestry"`
	ProofTTL        time.Duration `env:"VESTRY_PROOF_TTL" envDefault:"5m"`

	// TreasuryAddress is the funding account vesting claims are paid from.
	// Required when the vesting wallet is served.
	TreasuryAddress string `env:"VESTRY_TREASURY_ADDRESS"`

	// DatabaseURL selects postgres persistence; empty runs on the in-memory
	// stores, which is only useful for local development.
	DatabaseURL string `env:"VESTRY_DATABASE_URL"`

	// KafkaBrokers enables the audit trail sink; empty keeps audit events in
	// the outbox only.
	KafkaBrokers []string `env:"VESTRY_KAFKA_BROKERS" envSeparator:","`
	AuditTopic   string   `env:"VESTRY_AUDIT_TOPIC" envDefault:"vestry.audit"`

	// OTLPEndpoint enables trace export; empty disables it.
	OTLPEndpoint string `env:"VESTRY_OTLP_ENDPOINT"`

	Redis     RedisConfig
	RateLimit RateLimitConfig
}

// RedisConfig tunes the shared redis client. An empty URL disables redis
// backed features (contributor cache, rate limiting).
type RedisConfig struct {
	URL          string        `env:"VESTRY_REDIS_URL"`
	PoolSize     int           `env:"VESTRY_REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"VESTRY_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"VESTRY_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"VESTRY_REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"VESTRY_REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// RateLimitConfig tunes the fixed-window request limiter.
type RateLimitConfig struct {
	Enabled  bool          `env:"VESTRY_RATELIMIT_ENABLED" envDefault:"true"`
	Requests int           `env:"VESTRY_RATELIMIT_REQUESTS" envDefault:"100"`
	Window   time.Duration `env:"VESTRY_RATELIMIT_WINDOW" envDefault:"1m"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
