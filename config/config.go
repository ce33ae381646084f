package config

import (
	"fmt"
	"os"
	"strings"

	"datastory/pkg/logger"

	"github.com/joho/godotenv"
)

const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

type Config struct {
	Port          string
	StoreBackend  string
	StorePath     string
	DatabaseURL   string
	RedisAddr     string
	RedisKey      string
	ContentDir    string
	DataDir       string
	AdminUser     string
	AdminPassword string
	JWTSecret     string
	LogLevel      string
	AllowedOrigin string
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}
	return FromEnv()
}

func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:          env("PORT", "8080"),
		StoreBackend:  strings.ToLower(env("STORE_BACKEND", BackendFile)),
		StorePath:     env("STORE_PATH", "content/generated_content.json"),
		DatabaseURL:   env("DATABASE_URL", ""),
		RedisAddr:     env("REDIS_ADDR", "localhost:6379"),
		RedisKey:      env("REDIS_KEY", ""),
		ContentDir:    env("CONTENT_DIR", "content"),
		DataDir:       env("DATA_DIR", "Data/excel_data"),
		AdminUser:     env("ADMIN_USER", env("EDA_ADMIN_USER", "admin")),
		AdminPassword: env("ADMIN_PASSWORD", env("EDA_ADMIN_PASSWORD", "changeme")),
		JWTSecret:     env("JWT_SECRET", ""),
		LogLevel:      env("LOG_LEVEL", "info"),
		AllowedOrigin: env("ALLOWED_ORIGIN", "*"),
	}

	switch cfg.StoreBackend {
	case BackendFile, BackendRedis:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			cfg.DatabaseURL = postgresURLFromParts()
		}
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres backend needs DATABASE_URL or user/password/host/port/dbname")
		}
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}
	return cfg, nil
}

// postgresURLFromParts builds a DSN from the discrete user/password/host/port/dbname variables.
func postgresURLFromParts() string {
	user := strings.TrimSpace(os.Getenv("user"))
	host := strings.TrimSpace(os.Getenv("host"))
	if user == "" || host == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=require",
		user,
		strings.TrimSpace(os.Getenv("password")),
		host,
		env("port", "5432"),
		strings.TrimSpace(os.Getenv("dbname")),
	)
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
