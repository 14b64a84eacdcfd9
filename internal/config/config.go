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

// Storage backends
const (
	BackendMemory    = "memory"
	BackendRedis     = "redis"
	BackendCassandra = "cassandra"
	BackendPostgres  = "postgres"
)

// Config holds all configuration for the application
type Config struct {
	Host           string
	Port           string
	LogLevel       string
	LogFormat      string
	MaxDrops       int
	DefaultDrops   int
	RequestTimeout time.Duration
	RateLimit      RateLimitConfig
	Storage        StorageConfig
	Redis          RedisConfig
	Cassandra      CassandraConfig
	Postgres       PostgresConfig
}

// RateLimitConfig bounds plan generation requests
type RateLimitConfig struct {
	RPS   float64
	Burst int
}

// StorageConfig selects where generated plans are kept
type StorageConfig struct {
	Backend string
	PlanTTL time.Duration // 0 = keep forever
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CassandraConfig holds Cassandra-specific configuration
type CassandraConfig struct {
	Hosts       []string
	Keyspace    string
	Username    string
	Password    string
	Consistency string
	Timeout     time.Duration
}

// PostgresConfig holds the PostgreSQL connection string
type PostgresConfig struct {
	DSN     string
	Timeout time.Duration
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real environment variables
// win over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	maxDrops, err := getInt("MAX_DROPS", 1000)
	if err != nil {
		return nil, err
	}
	defaultDrops, err := getInt("DEFAULT_DROPS", 24)
	if err != nil {
		return nil, err
	}
	if maxDrops <= 0 {
		return nil, fmt.Errorf("MAX_DROPS must be positive, got %d", maxDrops)
	}
	if defaultDrops <= 0 || defaultDrops > maxDrops {
		return nil, fmt.Errorf("DEFAULT_DROPS must be between 1 and %d, got %d", maxDrops, defaultDrops)
	}

	requestTimeout, err := getSeconds("REQUEST_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}

	rps, err := strconv.ParseFloat(getEnv("RATE_LIMIT_RPS", "10"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_RPS value: %w", err)
	}
	burst, err := getInt("RATE_LIMIT_BURST", 50)
	if err != nil {
		return nil, err
	}

	backend := strings.ToLower(getEnv("STORAGE_BACKEND", BackendMemory))
	switch backend {
	case BackendMemory, BackendRedis, BackendCassandra, BackendPostgres:
	default:
		return nil, fmt.Errorf("invalid STORAGE_BACKEND value: %q", backend)
	}
	planTTL, err := getSeconds("PLAN_TTL_SECONDS", 86400) // 1 day default
	if err != nil {
		return nil, err
	}

	redisDB, err := getInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	cassandraTimeout, err := getSeconds("CASSANDRA_TIMEOUT_SECONDS", 5)
	if err != nil {
		return nil, err
	}

	postgresTimeout, err := getSeconds("POSTGRES_TIMEOUT_SECONDS", 5)
	if err != nil {
		return nil, err
	}
	postgresDSN := getEnv("POSTGRES_DSN", "")
	if backend == BackendPostgres && postgresDSN == "" {
		return nil, fmt.Errorf("POSTGRES_DSN is required when STORAGE_BACKEND=postgres")
	}

	return &Config{
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
		MaxDrops:       maxDrops,
		DefaultDrops:   defaultDrops,
		RequestTimeout: requestTimeout,
		RateLimit: RateLimitConfig{
			RPS:   rps,
			Burst: burst,
		},
		Storage: StorageConfig{
			Backend: backend,
			PlanTTL: planTTL,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Cassandra: CassandraConfig{
			Hosts:       parseHosts(getEnv("CASSANDRA_HOSTS", "localhost:9042")),
			Keyspace:    getEnv("CASSANDRA_KEYSPACE", "drop_plans"),
			Username:    getEnv("CASSANDRA_USERNAME", ""),
			Password:    getEnv("CASSANDRA_PASSWORD", ""),
			Consistency: getEnv("CASSANDRA_CONSISTENCY", "QUORUM"),
			Timeout:     cassandraTimeout,
		},
		Postgres: PostgresConfig{
			DSN:     postgresDSN,
			Timeout: postgresTimeout,
		},
	}, nil
}

// Address returns the full address (host:port)
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) (int, error) {
	value, err := strconv.Atoi(getEnv(key, strconv.Itoa(defaultValue)))
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %w", key, err)
	}
	return value, nil
}

func getSeconds(key string, defaultValue int) (time.Duration, error) {
	seconds, err := getInt(key, defaultValue)
	if err != nil {
		return 0, err
	}
	if seconds < 0 {
		return 0, fmt.Errorf("invalid %s value: must not be negative", key)
	}
	return time.Duration(seconds) * time.Second, nil
}

// parseHosts parses a comma-separated list of hosts
func parseHosts(hostsStr string) []string {
	parts := strings.Split(hostsStr, ",")
	hosts := make([]string, 0, len(parts))
	for _, part := range parts {
		host := strings.TrimSpace(part)
		if host != "" {
			hosts = append(hosts, host)
		}
	}
	if len(hosts) == 0 {
		return []string{"localhost:9042"}
	}
	return hosts
}
