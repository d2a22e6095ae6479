package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Steam
	SteamAPIKey    string
	SteamAPIBase   string
	SteamOpenIDURL string
	SteamTimeout   time.Duration

	// Cache
	CacheTTL time.Duration

	// Session
	SessionMaxAge int

	// Rate Limit
	RateLimitGeneral int
	RateLimitLogin   int

	// Cleanup
	CleanupRetentionDays int

	// Server
	ServerPort  string
	BaseURL     string
	CallbackURL string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
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

	cfg.SteamAPIKey = os.Getenv("STEAM_API_KEY")
	if cfg.SteamAPIKey == "" {
		missing = append(missing, "STEAM_API_KEY")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SteamAPIBase = getEnvString("STEAM_API_BASE", "https://api.steampowered.com")
	cfg.SteamOpenIDURL = getEnvString("STEAM_OPENID_URL", "https://steamcommunity.com/openid/login")
	cfg.SteamTimeout = getEnvDuration("STEAM_TIMEOUT", 10*time.Second)
	cfg.CacheTTL = getEnvDuration("CACHE_TTL", time.Hour)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 604800) // 7日
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.CleanupRetentionDays = getEnvInt("CLEANUP_RETENTION_DAYS", 30)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CallbackURL = getEnvString("CALLBACK_URL", strings.TrimRight(cfg.BaseURL, "/")+"/auth/callback")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

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
	if err != nil {
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
	if err != nil {
		return defaultVal
	}
	return d
}
