package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-driven settings for the bridge.
type Config struct {
	Port     string
	LogLevel string

	// CORS
	CORSOrigins []string

	// Terminal connector
	UseSimTerminal bool
	TerminalPath   string // optional install path override passed to Initialize

	// Sessions
	SessionTTL     time.Duration
	SessionBackend string // "memory" (default) or "sqlite"
	SessionDBPath  string

	// Order execution
	OrderRetryAttempts int
	OrderRetryDelay    time.Duration
	OrderDeviation     int
	OrderFilling       string // "IOC" (default) or "FOK"

	// Gateway policy file (per-command auth requirements etc.)
	PolicyPath string

	// Calendar ingestion (scripts/ingest_calendar)
	DatabaseURL string
}

// Load reads environment variables (optionally via .env) into Config.
func Load() (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	// Datastore DSN: prefer SUPABASE_DB_URL, then DATABASE_URL.
	dbURL := os.Getenv("SUPABASE_DB_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}

	return &Config{
		Port:               getEnv("PORT", "8001"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSOrigins:        splitAndTrim(getEnv("CORS_ORIGINS", "*")),
		UseSimTerminal:     getEnv("USE_SIM_TERMINAL", "true") == "true",
		TerminalPath:       os.Getenv("MT5_TERMINAL_PATH"),
		SessionTTL:         getEnvDuration("SESSION_TTL", 24*time.Hour),
		SessionBackend:     strings.ToLower(getEnv("SESSION_BACKEND", "memory")),
		SessionDBPath:      getEnv("SESSION_DB_PATH", "./data/sessions.db"),
		OrderRetryAttempts: getEnvInt("ORDER_RETRY_ATTEMPTS", 3),
		OrderRetryDelay:    getEnvDuration("ORDER_RETRY_DELAY", 500*time.Millisecond),
		OrderDeviation:     getEnvInt("ORDER_DEVIATION", 20),
		OrderFilling:       strings.ToUpper(getEnv("ORDER_FILLING", "IOC")),
		PolicyPath:         getEnv("GATEWAY_POLICY_PATH", ""),
		DatabaseURL:        dbURL,
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
