package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"
)

type Config struct {
	Port    string
	GinMode string

	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string

	JWTSecret string
	TokenTTL  time.Duration

	Location   *time.Location
	CORSOrigin string
	UploadDir  string

	LogLevel  string
	LogFormat string

	Cache       CacheConfig
	RateLimit   RateLimitConfig
	RabbitMQURL string
}

// CacheConfig controls the Redis response cache on public GET routes.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// RateLimitConfig controls the Redis token bucket on auth routes.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

func LoadConfig() (*Config, error) {
	tz := getenv("TIMEZONE", "Atlantic/Canary")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	cfg := &Config{
		Port:    getenv("PORT", "8080"),
		GinMode: os.Getenv("GIN_MODE"),

		DBDriver:   strings.ToLower(getenv("DB_DRIVER", "postgres")),
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPath:     getenv("DB_PATH", "lanzalife.db"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		TokenTTL:  envDur("TOKEN_TTL", time.Hour),

		Location:   loc,
		CORSOrigin: getenv("CORS_ORIGIN", "*"),
		UploadDir:  getenv("UPLOAD_DIR", "./uploads/"),

		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "json"),

		Cache: CacheConfig{
			Enabled: envBool("CACHE_ENABLED", true),
			TTL:     envDur("CACHE_TTL", 30*time.Second),
			Prefix:  getenv("CACHE_PREFIX", "lanzalife:cache"),
		},
		RateLimit: RateLimitConfig{
			Enabled:        envBool("RATE_LIMIT_ENABLED", true),
			Capacity:       envInt("RATE_LIMIT_CAPACITY", 10),
			RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 6*time.Second),
			TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
			Prefix:         getenv("RATE_LIMIT_PREFIX", "lanzalife:rl"),
		},
		RabbitMQURL: os.Getenv("RABBITMQ_URL"),
	}

	if cfg.RateLimit.Capacity < 1 {
		cfg.RateLimit.Capacity = 1
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}
	if minTTL := 5 * cfg.RateLimit.RefillInterval; cfg.RateLimit.TTL < minTTL {
		cfg.RateLimit.TTL = minTTL
	}

	return cfg, nil
}

// Validate checks the settings the HTTP server cannot run without.
func (cfg *Config) Validate() error {
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch cfg.DBDriver {
	case DriverPostgres, DriverMySQL:
		if cfg.DBHost == "" || cfg.DBName == "" {
			return fmt.Errorf("DB_HOST and DB_NAME are required for driver %s", cfg.DBDriver)
		}
	case DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	return nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}
