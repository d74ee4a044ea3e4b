// Package config holds the typed configuration for the burn
// coordination core: weather provider, storage, optimizer, and alert
// dispatch sections, loadable from an optional YAML file with
// environment variable overrides (teacher pattern: internal/config +
// pkg/database.DatabaseConfig).
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	Weather   WeatherConfig   `yaml:"weather"`
	Database  DatabaseConfig  `yaml:"database"`
	Optimizer OptimizerConfig `yaml:"optimizer"`
	Alerts    AlertConfig     `yaml:"alerts"`
	Worker    WorkerConfig    `yaml:"worker"`
}

// WeatherConfig configures the Weather Analyzer's cache and timeouts.
type WeatherConfig struct {
	CacheTTL           time.Duration `yaml:"cache_ttl" env:"BURNWISE_WEATHER_CACHE_TTL"`
	FetchTimeout       time.Duration `yaml:"fetch_timeout" env:"BURNWISE_WEATHER_TIMEOUT"`
	EmbeddingTimeout   time.Duration `yaml:"embedding_timeout" env:"BURNWISE_EMBEDDING_TIMEOUT"`
	BreakerMaxFailures uint32        `yaml:"breaker_max_failures" env:"BURNWISE_WEATHER_BREAKER_FAILURES"`
	BreakerOpenFor     time.Duration `yaml:"breaker_open_for" env:"BURNWISE_WEATHER_BREAKER_OPEN_FOR"`
}

// DatabaseConfig configures the Postgres + Redis storage layer, in the
// same env-tag style as the teacher's DatabaseConfig.
type DatabaseConfig struct {
	Host     string `yaml:"host" env:"BURNWISE_DB_HOST"`
	Port     int    `yaml:"port" env:"BURNWISE_DB_PORT"`
	Name     string `yaml:"name" env:"BURNWISE_DB_NAME"`
	User     string `yaml:"user" env:"BURNWISE_DB_USER"`
	Password string `yaml:"password" env:"BURNWISE_DB_PASSWORD"`
	SSLMode  string `yaml:"ssl_mode" env:"BURNWISE_DB_SSL_MODE"`

	MaxOpenConns    int           `yaml:"max_open_conns" env:"BURNWISE_DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"BURNWISE_DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"BURNWISE_DB_CONN_MAX_LIFETIME"`

	RedisHost     string `yaml:"redis_host" env:"BURNWISE_REDIS_HOST"`
	RedisPort     int    `yaml:"redis_port" env:"BURNWISE_REDIS_PORT"`
	RedisPassword string `yaml:"redis_password" env:"BURNWISE_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"BURNWISE_REDIS_DB"`
	RedisPoolSize int    `yaml:"redis_pool_size" env:"BURNWISE_REDIS_POOL_SIZE"`
}

// OptimizerConfig configures the simulated-annealing schedule optimizer.
type OptimizerConfig struct {
	InitialTemperature float64       `yaml:"initial_temperature"`
	CoolingRate        float64       `yaml:"cooling_rate"`
	MinTemperature     float64       `yaml:"min_temperature"`
	MaxIterations      int           `yaml:"max_iterations"`
	MaxIterNoImprove   int           `yaml:"max_iter_no_improve"`
	MaxReheats         int           `yaml:"max_reheats"`
	WallClockTimeout   time.Duration `yaml:"wall_clock_timeout" env:"BURNWISE_OPTIMIZER_TIMEOUT"`
	Seed               int64         `yaml:"seed"`
}

// AlertConfig configures the Alert Dispatcher's rate limit and breaker.
type AlertConfig struct {
	NonCriticalPerMinute int           `yaml:"non_critical_per_minute" env:"BURNWISE_ALERT_RATE"`
	TransportTimeout     time.Duration `yaml:"transport_timeout" env:"BURNWISE_ALERT_TIMEOUT"`
	IdempotencyTTL       time.Duration `yaml:"idempotency_ttl" env:"BURNWISE_ALERT_DEDUP_TTL"`
	BreakerMaxFailures   uint32        `yaml:"breaker_max_failures" env:"BURNWISE_ALERT_BREAKER_FAILURES"`
	BreakerOpenFor       time.Duration `yaml:"breaker_open_for" env:"BURNWISE_ALERT_BREAKER_OPEN_FOR"`
}

// WorkerConfig bounds per-stage concurrency (spec.md §5).
type WorkerConfig struct {
	MaxConcurrency int `yaml:"max_concurrency" env:"BURNWISE_MAX_CONCURRENCY"`
}

// DefaultConfig returns a configuration populated with spec.md's
// numeric defaults, overridable by environment variables.
func DefaultConfig() *Config {
	return &Config{
		Weather: WeatherConfig{
			CacheTTL:           10 * time.Minute,
			FetchTimeout:       10 * time.Second,
			EmbeddingTimeout:   15 * time.Second,
			BreakerMaxFailures: uint32(getEnvIntOrDefault("BURNWISE_WEATHER_BREAKER_FAILURES", 5)),
			BreakerOpenFor:     60 * time.Second,
		},
		Database: DatabaseConfig{
			Host:            getEnvOrDefault("BURNWISE_DB_HOST", "localhost"),
			Port:            getEnvIntOrDefault("BURNWISE_DB_PORT", 5432),
			Name:            getEnvOrDefault("BURNWISE_DB_NAME", "burnwise"),
			User:            getEnvOrDefault("BURNWISE_DB_USER", "burnwise"),
			Password:        getEnvOrDefault("BURNWISE_DB_PASSWORD", ""),
			SSLMode:         getEnvOrDefault("BURNWISE_DB_SSL_MODE", "prefer"),
			MaxOpenConns:    getEnvIntOrDefault("BURNWISE_DB_MAX_OPEN_CONNS", 30),
			MaxIdleConns:    getEnvIntOrDefault("BURNWISE_DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: 5 * time.Minute,
			RedisHost:       getEnvOrDefault("BURNWISE_REDIS_HOST", "localhost"),
			RedisPort:       getEnvIntOrDefault("BURNWISE_REDIS_PORT", 6379),
			RedisDB:         getEnvIntOrDefault("BURNWISE_REDIS_DB", 0),
			RedisPoolSize:   getEnvIntOrDefault("BURNWISE_REDIS_POOL_SIZE", 10),
		},
		Optimizer: OptimizerConfig{
			InitialTemperature: 1000,
			CoolingRate:        0.95,
			MinTemperature:     0.01,
			MaxIterations:      10000,
			MaxIterNoImprove:   1000,
			MaxReheats:         3,
			WallClockTimeout:   30 * time.Second,
			Seed:               1,
		},
		Alerts: AlertConfig{
			NonCriticalPerMinute: getEnvIntOrDefault("BURNWISE_ALERT_RATE", 10),
			TransportTimeout:     5 * time.Second,
			IdempotencyTTL:       24 * time.Hour,
			BreakerMaxFailures:   uint32(getEnvIntOrDefault("BURNWISE_ALERT_BREAKER_FAILURES", 5)),
			BreakerOpenFor:       60 * time.Second,
		},
		Worker: WorkerConfig{
			MaxConcurrency: getEnvIntOrDefault("BURNWISE_MAX_CONCURRENCY", 16),
		},
	}
}

// LoadConfig loads DefaultConfig (which reads the BURNWISE_*
// environment variables named there), then overlays an optional YAML
// file at path (if non-empty and present). A value set in the file
// takes precedence over the environment; environment variables are
// not read after the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
