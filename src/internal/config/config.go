package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	DatabaseURL   string
	MigrationsDir string

	RedisAddr string
	RedisPass string
	RedisDB   int

	JWTSecret string
	JWTExpiry time.Duration

	StatsCacheTTL time.Duration

	// Client-facing config block served on GET /config.
	APIBaseURL       string
	UploadPath       string
	MaxFileSize      int64
	AllowedFileTypes []string
}

// Load reads configuration from the environment, with a .env file as an
// optional source.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Port:          getenv("PORT", "8080"),
		DatabaseURL:   getenv("DATABASE_URL", "postgres://pguser:pgpass@db:5432/dispatchdb?sslmode=disable"),
		MigrationsDir: getenv("MIGRATIONS_DIR", "./migrations"),
		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPass:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:       getenvInt("REDIS_DB", 0),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTExpiry:     getenvDuration("JWT_EXPIRY", 24*time.Hour),
		StatsCacheTTL: getenvDuration("STATS_CACHE_TTL", 30*time.Second),
		APIBaseURL:    getenv("API_BASE_URL", "http://localhost:8080/api"),
		UploadPath:    getenv("UPLOAD_PATH", "/uploads"),
		MaxFileSize:   int64(getenvInt("MAX_FILE_SIZE", 5242880)),
	}

	types := getenv("ALLOWED_FILE_TYPES", "image/jpeg,image/png,image/gif")
	for _, t := range strings.Split(types, ",") {
		if t = strings.TrimSpace(t); t != "" {
			cfg.AllowedFileTypes = append(cfg.AllowedFileTypes, t)
		}
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
