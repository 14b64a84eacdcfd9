package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

// unsetEnv removes keys for the duration of the test.
func unsetEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, key := range keys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

var configKeys = []string{
	"HOST", "PORT", "LOG_LEVEL", "LOG_FORMAT", "MAX_DROPS", "DEFAULT_DROPS",
	"REQUEST_TIMEOUT_SECONDS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"STORAGE_BACKEND", "PLAN_TTL_SECONDS", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
	"CASSANDRA_HOSTS", "CASSANDRA_KEYSPACE", "CASSANDRA_USERNAME", "CASSANDRA_PASSWORD",
	"CASSANDRA_CONSISTENCY", "CASSANDRA_TIMEOUT_SECONDS", "POSTGRES_DSN", "POSTGRES_TIMEOUT_SECONDS",
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())
	unsetEnv(t, configKeys...)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Address() != "0.0.0.0:8080" {
		t.Errorf("Expected address 0.0.0.0:8080, got %s", cfg.Address())
	}
	if cfg.MaxDrops != 1000 || cfg.DefaultDrops != 24 {
		t.Errorf("Expected drops 24/1000, got %d/%d", cfg.DefaultDrops, cfg.MaxDrops)
	}
	if cfg.Storage.Backend != BackendMemory {
		t.Errorf("Expected memory backend, got %s", cfg.Storage.Backend)
	}
	if cfg.Storage.PlanTTL != 24*time.Hour {
		t.Errorf("Expected plan TTL 24h, got %v", cfg.Storage.PlanTTL)
	}
	if cfg.RequestTimeout != 10*time.Second {
		t.Errorf("Expected request timeout 10s, got %v", cfg.RequestTimeout)
	}
	if cfg.RateLimit.RPS != 10 || cfg.RateLimit.Burst != 50 {
		t.Errorf("Expected rate limit 10/50, got %v/%d", cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	if !reflect.DeepEqual(cfg.Cassandra.Hosts, []string{"localhost:9042"}) {
		t.Errorf("Expected default Cassandra host, got %v", cfg.Cassandra.Hosts)
	}
}

func TestLoad_Environment(t *testing.T) {
	chdir(t, t.TempDir())
	unsetEnv(t, configKeys...)
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_DROPS", "500")
	t.Setenv("DEFAULT_DROPS", "12")
	t.Setenv("STORAGE_BACKEND", "Redis")
	t.Setenv("PLAN_TTL_SECONDS", "0")
	t.Setenv("CASSANDRA_HOSTS", "db1:9042, db2:9042,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
	if cfg.MaxDrops != 500 || cfg.DefaultDrops != 12 {
		t.Errorf("Expected drops 12/500, got %d/%d", cfg.DefaultDrops, cfg.MaxDrops)
	}
	if cfg.Storage.Backend != BackendRedis {
		t.Errorf("Expected redis backend, got %s", cfg.Storage.Backend)
	}
	if cfg.Storage.PlanTTL != 0 {
		t.Errorf("Expected no TTL, got %v", cfg.Storage.PlanTTL)
	}
	if !reflect.DeepEqual(cfg.Cassandra.Hosts, []string{"db1:9042", "db2:9042"}) {
		t.Errorf("Expected two Cassandra hosts, got %v", cfg.Cassandra.Hosts)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=7070\nLOG_LEVEL=debug\n"), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	chdir(t, dir)
	unsetEnv(t, configKeys...)
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "7070" {
		t.Errorf("Expected port from .env, got %s", cfg.Port)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Expected environment to win over .env, got %s", cfg.LogLevel)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"non-numeric max drops", map[string]string{"MAX_DROPS": "many"}},
		{"zero max drops", map[string]string{"MAX_DROPS": "-1"}},
		{"default above max", map[string]string{"MAX_DROPS": "10", "DEFAULT_DROPS": "24"}},
		{"unknown backend", map[string]string{"STORAGE_BACKEND": "mongo"}},
		{"postgres without dsn", map[string]string{"STORAGE_BACKEND": "postgres"}},
		{"negative ttl", map[string]string{"PLAN_TTL_SECONDS": "-5"}},
		{"bad redis db", map[string]string{"REDIS_DB": "zero"}},
		{"bad rate", map[string]string{"RATE_LIMIT_RPS": "fast"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t, t.TempDir())
			unsetEnv(t, configKeys...)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Error("expected error but got none")
			}
		})
	}
}

// chdir changes the working directory to dir for the duration of the test,
// restoring the previous directory on cleanup (equivalent of t.Chdir).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir %s: %v", dir, err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Fatalf("restore working directory: %v", err)
		}
	})
}
