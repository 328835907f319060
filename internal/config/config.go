// Package config provides configuration management for the cache subsystem.
// It handles loading configuration from environment variables with sensible
// defaults and validates the configuration so the application starts safely.
//
// The cache packages never read environment variables themselves; they
// consume the fully-populated Config produced here.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Diagnostics server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - RATE_LIMIT_ENABLED: Per-client rate limiting on /api routes (default: true)
//   - RATE_LIMIT_RPS: Steady-state requests per second per client (default: 50)
//   - RATE_LIMIT_BURST: Burst allowance per client (default: 100)
//
// Remote Tier:
//   - CACHE_ENABLED: Whether the Redis tier is used at all (default: true)
//   - CACHE_URL: Redis endpoint (default: redis://localhost:6379)
//   - CACHE_PASSWORD: Redis authentication password
//   - CACHE_DB: Redis database number 0-15 (default: 0)
//   - CACHE_USE_MULTI_LEVEL: Tiered (memory + Redis) vs. Redis-only (default: true)
//   - CACHE_POOL_MIN: Minimum idle connections (default: 2)
//   - CACHE_POOL_MAX: Connection pool size (default: 10)
//   - CACHE_RETRY_ATTEMPTS: Reconnect attempts per cycle (default: 3)
//   - CACHE_RETRY_DELAY: Initial reconnect delay (default: 1s)
//
// Per-Purpose TTLs (accepts Go durations plus "d" and "w" units):
//   - CACHE_TTL_EMBEDDING: Embedding cache TTL (default: 24h)
//   - CACHE_TTL_SEARCH: Search result cache TTL (default: 1h)
//   - CACHE_TTL_GRAPH: Graph query cache TTL (default: 30m)
//   - CACHE_TTL_PROGRESS: Indexing progress TTL (default: 5m)
//
// In-Memory Tier:
//   - CACHE_MEMORY_MAX_SIZE: Soft entry cap reported in stats (default: 10000)
//   - CACHE_MEMORY_TTL: Default entry TTL (default: 5m)
//   - CACHE_MEMORY_CLEANUP_INTERVAL: Expired-entry sweep cadence (default: 60s)
//
// Monitoring:
//   - CACHE_MONITOR_ENABLED: Whether operation monitoring wraps stores (default: true)
//   - CACHE_MONITOR_METRICS_INTERVAL: Metrics snapshot cadence (default: 60s)
//   - CACHE_MONITOR_LOG_LEVEL: Level for per-operation logs (default: debug)
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"codeatlas/internal/common/utils"
)

// Config holds all configuration values for the application.
type Config struct {
	Port     string // Diagnostics server port number
	LogLevel string // Logging level (debug, info, warn, error)

	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// RateLimitConfig shapes the per-client budget on the diagnostics API.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond int
	Burst             int
}

// CacheConfig configures every layer of the cache subsystem.
type CacheConfig struct {
	Enabled       bool   // Whether the remote tier is used at all
	URL           string // Remote endpoint, e.g. redis://localhost:6379
	Password      string // Remote authentication password
	DB            int    // Redis database number (0-15)
	UseMultiLevel bool   // Tiered (memory + remote) vs. remote-only

	TTL     TTLConfig
	Retry   RetryConfig
	Pool    PoolConfig
	Memory  MemoryConfig
	Monitor MonitorConfig
}

// TTLConfig carries the per-purpose default TTLs.
type TTLConfig struct {
	Embedding time.Duration
	Search    time.Duration
	Graph     time.Duration
	Progress  time.Duration
}

// RetryConfig shapes the remote reconnect policy.
type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// PoolConfig sizes the remote connection pool.
type PoolConfig struct {
	Min int
	Max int
}

// MemoryConfig sizes the in-memory tier.
type MemoryConfig struct {
	MaxSize         int           // Soft entry cap, reported in stats
	TTL             time.Duration // Default entry TTL
	CleanupInterval time.Duration // Expired-entry sweep cadence
}

// MonitorConfig holds the observability knobs.
type MonitorConfig struct {
	Enabled         bool
	MetricsInterval time.Duration
	LogLevel        string
}

// Load creates a new Config instance with values loaded from environment
// variables, falling back to defaults for anything unset.
//
// This function does not validate the configuration - call Validate() on the
// returned Config before use.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		RateLimit: RateLimitConfig{
			Enabled:           getBoolEnv("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getIntEnv("RATE_LIMIT_RPS", 50),
			Burst:             getIntEnv("RATE_LIMIT_BURST", 100),
		},

		Cache: CacheConfig{
			Enabled:       getBoolEnv("CACHE_ENABLED", true),
			URL:           getEnv("CACHE_URL", "redis://localhost:6379"),
			Password:      getEnv("CACHE_PASSWORD", ""),
			DB:            getIntEnv("CACHE_DB", 0),
			UseMultiLevel: getBoolEnv("CACHE_USE_MULTI_LEVEL", true),

			TTL: TTLConfig{
				Embedding: getDurationEnv("CACHE_TTL_EMBEDDING", 24*time.Hour),
				Search:    getDurationEnv("CACHE_TTL_SEARCH", time.Hour),
				Graph:     getDurationEnv("CACHE_TTL_GRAPH", 30*time.Minute),
				Progress:  getDurationEnv("CACHE_TTL_PROGRESS", 5*time.Minute),
			},
			Retry: RetryConfig{
				Attempts: getIntEnv("CACHE_RETRY_ATTEMPTS", 3),
				Delay:    getDurationEnv("CACHE_RETRY_DELAY", time.Second),
			},
			Pool: PoolConfig{
				Min: getIntEnv("CACHE_POOL_MIN", 2),
				Max: getIntEnv("CACHE_POOL_MAX", 10),
			},
			Memory: MemoryConfig{
				MaxSize:         getIntEnv("CACHE_MEMORY_MAX_SIZE", 10000),
				TTL:             getDurationEnv("CACHE_MEMORY_TTL", 5*time.Minute),
				CleanupInterval: getDurationEnv("CACHE_MEMORY_CLEANUP_INTERVAL", time.Minute),
			},
			Monitor: MonitorConfig{
				Enabled:         getBoolEnv("CACHE_MONITOR_ENABLED", true),
				MetricsInterval: getDurationEnv("CACHE_MONITOR_METRICS_INTERVAL", time.Minute),
				LogLevel:        getEnv("CACHE_MONITOR_LOG_LEVEL", "debug"),
			},
		},
	}
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves a boolean environment variable, accepting the forms
// strconv.ParseBool understands. Invalid values fall back to the default.
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getIntEnv retrieves an integer environment variable, falling back to the
// default on parse errors.
func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getDurationEnv retrieves a duration environment variable. Bare numbers are
// read as seconds, and the extended "d"/"w" units are accepted, so both
// "86400" and "1d" configure a one-day TTL.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if parsed, err := utils.ParseDuration(value); err == nil {
		return parsed
	}
	return defaultValue
}

// Validate performs validation on the configuration to ensure all values are
// usable before the application starts.
func (c *Config) Validate() error {
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond < 1 {
			return fmt.Errorf("RATE_LIMIT_RPS must be a positive number")
		}
		if c.RateLimit.Burst < 1 {
			return fmt.Errorf("RATE_LIMIT_BURST must be a positive number")
		}
	}

	cache := &c.Cache

	if cache.Enabled && cache.URL == "" {
		return fmt.Errorf("CACHE_URL is required when the remote tier is enabled")
	}
	if cache.DB < 0 || cache.DB > 15 {
		return fmt.Errorf("CACHE_DB must be a number between 0 and 15")
	}

	if cache.TTL.Embedding <= 0 || cache.TTL.Search <= 0 || cache.TTL.Graph <= 0 || cache.TTL.Progress <= 0 {
		return fmt.Errorf("CACHE_TTL_* values must be positive durations")
	}

	if cache.Retry.Attempts < 1 {
		return fmt.Errorf("CACHE_RETRY_ATTEMPTS must be a positive number")
	}
	if cache.Retry.Delay <= 0 {
		return fmt.Errorf("CACHE_RETRY_DELAY must be a positive duration")
	}

	if cache.Pool.Max < 1 {
		return fmt.Errorf("CACHE_POOL_MAX must be a positive number")
	}
	if cache.Pool.Min < 0 || cache.Pool.Min > cache.Pool.Max {
		return fmt.Errorf("CACHE_POOL_MIN must be between 0 and CACHE_POOL_MAX")
	}

	if cache.Memory.MaxSize < 1 {
		return fmt.Errorf("CACHE_MEMORY_MAX_SIZE must be a positive number")
	}
	if cache.Memory.TTL <= 0 {
		return fmt.Errorf("CACHE_MEMORY_TTL must be a positive duration")
	}
	if cache.Memory.CleanupInterval <= 0 {
		return fmt.Errorf("CACHE_MEMORY_CLEANUP_INTERVAL must be a positive duration")
	}

	if cache.Monitor.Enabled {
		if cache.Monitor.MetricsInterval <= 0 {
			return fmt.Errorf("CACHE_MONITOR_METRICS_INTERVAL must be a positive duration")
		}
		switch cache.Monitor.LogLevel {
		case "debug", "info", "warn", "error":
		default:
			return fmt.Errorf("CACHE_MONITOR_LOG_LEVEL must be one of debug, info, warn, error")
		}
	}

	return nil
}
