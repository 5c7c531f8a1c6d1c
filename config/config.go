// Package config reads server settings from the environment, after loading an
// optional .env file.
package config

import (
	"baseroom/logs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DBDriver    string // "sqlite3" or "postgres"
	DBFile      string
	DatabaseURL string
	JWTSecret   string
	SessionTTL  time.Duration
	RateLimit   uint
	Production  bool
	CORSOrigins []string
}

// Load reads .env files (missing files are fine) and then the environment.
func Load(files ...string) Config {
	if err := godotenv.Load(files...); err != nil {
		logs.Info.Println("no .env file loaded, using environment only")
	}

	cfg := Config{
		Port:        getenv("PORT", ":8000"),
		DBDriver:    getenv("DB_DRIVER", "sqlite3"),
		DBFile:      getenv("DB_FILE", "./baseroom.db"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		SessionTTL:  getDuration("SESSION_TTL", time.Hour*672),
		RateLimit:   uint(getInt("RATE_LIMIT", 100)),
		Production:  os.Getenv("ENV") == "production",
		CORSOrigins: splitList(os.Getenv("CORS_ORIGINS")),
	}
	if !strings.Contains(cfg.Port, ":") {
		cfg.Port = ":" + cfg.Port
	}
	if cfg.JWTSecret == "" {
		if cfg.Production {
			logs.Error.Fatal("JWT_SECRET must be set in production")
		}
		logs.Warning.Println("JWT_SECRET not set, using an insecure development secret")
		cfg.JWTSecret = "baseroom-dev-secret"
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logs.Warning.Printf("ignoring invalid %s=%q", key, v)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		logs.Warning.Printf("ignoring invalid %s=%q", key, v)
		return fallback
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
