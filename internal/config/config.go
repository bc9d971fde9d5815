package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// Storage
	DataDir string

	// Remote API
	APIBaseURL      string
	APIToken        string
	UserAgent       string
	RateLimitPause  time.Duration
	RankConcurrency int
	RequestTimeout  time.Duration

	// Rank cache, disabled when RedisURL is empty
	RedisURL     string
	RankCacheTTL time.Duration

	// Worker pool
	BackfillEnabled bool
	WorkerCount     int
	QueueSize       int
	JobTimeout      time.Duration
}

// Load loads configuration from environment variables.
// Every key has a default; it only fails on values that cannot be used.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "development"),

		DataDir: getEnv("DATA_DIR", "matches"),

		APIBaseURL:      strings.TrimRight(getEnv("API_BASE_URL", "https://api.henrikdev.xyz/valorant"), "/"),
		APIToken:        os.Getenv("API_TOKEN"),
		UserAgent:       getEnv("USER_AGENT", "matchcache/0.1 (+https://github.com/valstats/matchcache)"),
		RateLimitPause:  getEnvDuration("RATE_LIMIT_PAUSE", 2*time.Second),
		RankConcurrency: getEnvInt("RANK_CONCURRENCY", 5),
		RequestTimeout:  getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),

		RedisURL:     os.Getenv("REDIS_URL"),
		RankCacheTTL: getEnvDuration("RANK_CACHE_TTL", 30*time.Minute),

		BackfillEnabled: getEnvBool("BACKFILL_ENABLED", true),
		WorkerCount:     getEnvInt("WORKER_COUNT", 2),
		QueueSize:       getEnvInt("QUEUE_SIZE", 100),
		JobTimeout:      getEnvDuration("JOB_TIMEOUT", 5*time.Minute),
	}

	// CORS
	origins := getEnv("ALLOWED_ORIGINS", "*")
	for _, o := range strings.Split(origins, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, trimmed)
		}
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT: %d", cfg.Port)
	}
	if cfg.RankConcurrency <= 0 {
		return nil, fmt.Errorf("invalid RANK_CONCURRENCY: %d", cfg.RankConcurrency)
	}
	if cfg.RedisURL != "" {
		if _, err := redis.ParseURL(cfg.RedisURL); err != nil {
			return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
	}

	return cfg, nil
}

// IsProduction reports whether ENV selects production logging.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}
