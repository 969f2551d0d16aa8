package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	stringsutil "sangha/pkg/platform/strings"
)

// Config captures everything cmd/server needs to wire the service.
// In-memory stores are used whenever PostgresURL is empty, which keeps local
// development and tests free of external dependencies.
type Config struct {
	Addr            string        `env:"SANGHA_ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SANGHA_SHUTDOWN_TIMEOUT" envDefault:"10s"`

	PostgresURL string `env:"SANGHA_POSTGRES_URL"`

	Redis RedisConfig `envPrefix:"SANGHA_REDIS_"`
	Kafka KafkaConfig `envPrefix:"SANGHA_KAFKA_"`

	// ChartCacheTTL bounds staleness of the cached org chart snapshot.
	ChartCacheTTL time.Duration `env:"SANGHA_CHART_CACHE_TTL" envDefault:"30s"`

	// LockWait bounds how long a transition waits for contended person keys
	// before failing fast with a busy error.
	LockWait time.Duration `env:"SANGHA_LOCK_WAIT" envDefault:"50ms"`
}

// RedisConfig configures the optional Redis snapshot cache.
// An empty URL disables Redis entirely.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures the optional audit event publisher.
// No seed brokers disables Kafka publishing.
type KafkaConfig struct {
	SeedBrokers []string `env:"SEED_BROKERS" envSeparator:","`
	AuditTopic  string   `env:"AUDIT_TOPIC" envDefault:"sangha.audit"`
}

// Load builds the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	// A trailing comma or repeated broker in the env var should not produce
	// phantom seed entries.
	cfg.Kafka.SeedBrokers = stringsutil.DedupeAndTrim(cfg.Kafka.SeedBrokers)
	return cfg, nil
}
