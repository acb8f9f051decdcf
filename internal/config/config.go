package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	MongoURI       string
	MongoDatabase  string // empty: taken from the URI path
	PostgresURI    string
	RedisURI       string
	Port           string
	FrontendURL    string
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL(s)
	Environment    string   // ENV: production, development, etc.
	LogLevel       string
	// LedgerTimezone is the IANA zone that decides what "today" is when a
	// client logs without a date.
	LedgerTimezone string
}

func Load() *Config {
	env := strings.ToLower(strings.TrimSpace(getEnv("ENV", "development")))

	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		for _, u := range []string{getEnv("FRONTEND_URL", "http://localhost:3000"), getEnv("FRONTEND_URL_2", "")} {
			u = strings.TrimSpace(u)
			if u != "" && !containsOrigin(allowedOrigins, u) {
				allowedOrigins = append(allowedOrigins, u)
			}
		}
	}

	return &Config{
		MongoURI:       getEnv("MONGODB_URI", getEnv("MONGO_URI", "mongodb://localhost:27017")),
		MongoDatabase:  getEnv("MONGO_DATABASE", ""),
		PostgresURI:    getEnv("POSTGRES_URI", "postgres://localhost:5432/macrolog?sslmode=disable"),
		RedisURI:       getEnv("REDIS_URI", "redis://localhost:6379/0"),
		Environment:    env,
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins: allowedOrigins,
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "")),
		LedgerTimezone: getEnv("LEDGER_TIMEZONE", "Local"),
	}
}

// Validate reports configuration that would break the service at runtime.
func (c *Config) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL %q must be one of debug, info, warn, error", c.LogLevel)
	}
	return nil
}

// Location resolves LedgerTimezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.LedgerTimezone)
	if err != nil {
		return nil, fmt.Errorf("LEDGER_TIMEZONE %q: %w", c.LedgerTimezone, err)
	}
	return loc, nil
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	o = strings.TrimSpace(strings.ToLower(o))
	for _, v := range list {
		if strings.TrimSpace(strings.ToLower(v)) == o {
			return true
		}
	}
	return false
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
