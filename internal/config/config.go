// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Token
	JWTSecret   string
	JWTIssuer   string
	JWTDuration time.Duration

	// Places provider
	PlacesAPIKey         string
	PlacesEndpoint       string
	PlacesRadius         int
	PlacesTimeout        time.Duration
	PlaceConflictRetries int

	// Rate Limit（1分あたりのリクエスト数）
	RateLimitGeneral    int
	RateLimitMoodEvents int

	// Server
	ServerPort      string
	ShutdownTimeout time.Duration

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel slog.Level
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	cfg.PlacesAPIKey = os.Getenv("PLACES_API_KEY")
	if cfg.PlacesAPIKey == "" {
		missing = append(missing, "PLACES_API_KEY")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLifetime = getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	cfg.JWTIssuer = getEnvString("JWT_ISSUER", "moody")
	cfg.JWTDuration = getEnvSecondsOrDuration("JWT_DURATION", 24*time.Hour)
	cfg.PlacesEndpoint = getEnvString("PLACES_ENDPOINT", "")
	cfg.PlacesRadius = getEnvInt("PLACES_RADIUS", 100)
	cfg.PlacesTimeout = getEnvDuration("PLACES_TIMEOUT", 5*time.Second)
	cfg.PlaceConflictRetries = getEnvInt("PLACE_CONFLICT_RETRIES", 3)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitMoodEvents = getEnvInt("RATE_LIMIT_MOOD_EVENTS", 30)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")
	cfg.LogLevel = getEnvLogLevel("LOG_LEVEL", slog.LevelInfo)

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil || i <= 0 {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// getEnvSecondsOrDuration は "24h" 形式のほか、整数の秒数も受け付ける。
func getEnvSecondsOrDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return defaultVal
		}
		return time.Duration(secs) * time.Second
	}
	return getEnvDuration(key, defaultVal)
}

func getEnvLogLevel(key string, defaultVal slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return defaultVal
	}
	return level
}
