package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port string

	LogLevel string

	DBURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// base64 encoded; random keys are generated when empty
	SessionAuthKey       []byte
	SessionEncryptionKey []byte
	CookieDomain         string

	GoogleClientID     string
	GoogleClientSecret string
	BackendURL         string
	AdminFrontendURL   string
	AdminEmails        []string

	AllowedOrigins []string

	S3Bucket        string
	S3Region        string
	S3PublicBaseURL string
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env variables: %w", err)
	}
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Env:                get("ENV", "development"),
		Port:               get("PORT", "8080"),
		LogLevel:           get("LOG_LEVEL", "info"),
		DBURL:              get("DB_URL", ""),
		RedisAddr:          get("REDIS_ADDR", ""),
		RedisPassword:      get("REDIS_PASSWORD", ""),
		CookieDomain:       get("COOKIE_DOMAIN", ""),
		GoogleClientID:     get("GOOGLE_CLIENT_ID_ADMIN", ""),
		GoogleClientSecret: get("GOOGLE_CLIENT_SECRET_ADMIN", ""),
		BackendURL:         get("BACKEND_URL", "http://localhost:8080"),
		AdminFrontendURL:   get("ADMIN_FRONTEND_URL", "http://localhost:3000"),
		AdminEmails:        splitList(get("ADMIN_EMAILS", "")),
		AllowedOrigins:     splitList(get("ALLOWED_ORIGINS", "")),
		S3Bucket:           get("S3_BUCKET", ""),
		S3Region:           get("S3_REGION", "ap-south-1"),
		S3PublicBaseURL:    get("S3_PUBLIC_BASE_URL", ""),
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(get("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	if cfg.CacheTTL, err = time.ParseDuration(get("CACHE_TTL", "5m")); err != nil {
		return nil, fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	if cfg.SessionAuthKey, err = decodeKey(get("SESSION_AUTH_KEY", "")); err != nil {
		return nil, fmt.Errorf("invalid SESSION_AUTH_KEY: %w", err)
	}
	if cfg.SessionEncryptionKey, err = decodeKey(get("SESSION_ENCRYPTION_KEY", "")); err != nil {
		return nil, fmt.Errorf("invalid SESSION_ENCRYPTION_KEY: %w", err)
	}
	if n := len(cfg.SessionEncryptionKey); n != 0 && n != 16 && n != 24 && n != 32 {
		return nil, fmt.Errorf("SESSION_ENCRYPTION_KEY must decode to 16, 24 or 32 bytes, got %d", n)
	}

	return cfg, nil
}

func decodeKey(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
