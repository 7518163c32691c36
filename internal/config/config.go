// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// SessionStoreKind はセッションの永続化先。
type SessionStoreKind string

const (
	SessionStorePostgres SessionStoreKind = "postgres"
	SessionStoreRedis    SessionStoreKind = "redis"
	SessionStoreMemory   SessionStoreKind = "memory"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionMaxAge          int // 秒
	SessionSliding         bool
	SessionTouchInterval   time.Duration
	SessionStore           SessionStoreKind
	RedisURL               string
	SessionCleanupInterval time.Duration

	// Auth
	BcryptCost        int
	LoginUnifiedError bool

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合、または値の組み合わせが不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 2592000)
	if cfg.SessionMaxAge <= 0 {
		cfg.SessionMaxAge = 2592000
	}
	cfg.SessionSliding = getEnvBool("SESSION_SLIDING", true)
	cfg.SessionTouchInterval = getEnvDuration("SESSION_TOUCH_INTERVAL", time.Hour)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.LoginUnifiedError = getEnvBool("LOGIN_UNIFIED_ERROR", false)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	store := SessionStoreKind(strings.ToLower(getEnvString("SESSION_STORE", string(SessionStorePostgres))))
	switch store {
	case SessionStorePostgres, SessionStoreMemory:
	case SessionStoreRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when SESSION_STORE=redis")
		}
	default:
		return nil, fmt.Errorf("unknown SESSION_STORE %q (want postgres, redis or memory)", store)
	}
	cfg.SessionStore = store

	return cfg, nil
}

// SessionMaxAgeDuration はSessionMaxAgeをtime.Durationで返す。
func (c *Config) SessionMaxAgeDuration() time.Duration {
	return time.Duration(c.SessionMaxAge) * time.Second
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
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
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
