package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Session storage backends.
const (
	SessionBackendFile   = "file"
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

// Config holds application configuration
type Config struct {
	Env      string
	LogLevel string

	// Backend endpoints consumed by the client
	AuthURL     string
	APIURL      string
	HTTPTimeout time.Duration

	// Session persistence
	SessionBackend     string
	SessionFile        string
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	SessionRedisPrefix string

	// Presentation
	MessageDuration   time.Duration
	BookingWindowDays int

	// Mock backend
	MockAPIPort        string
	MockAPIJWTSecret   string
	MockAPITokenTTL    time.Duration
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AuthURL:     strings.TrimRight(getEnv("BOOKING_AUTH_URL", "http://localhost:3000/auth"), "/"),
		APIURL:      strings.TrimRight(getEnv("BOOKING_API_URL", "http://localhost:3000/api"), "/"),
		HTTPTimeout: getEnvAsDuration("HTTP_TIMEOUT", 20*time.Second),

		SessionBackend:     strings.ToLower(strings.TrimSpace(getEnv("SESSION_BACKEND", SessionBackendFile))),
		SessionFile:        getEnv("SESSION_FILE", defaultSessionFile()),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		SessionRedisPrefix: getEnv("SESSION_REDIS_PREFIX", "booking:session:"),

		MessageDuration:   getEnvAsDuration("MESSAGE_DURATION", 5*time.Second),
		BookingWindowDays: getEnvAsInt("BOOKING_WINDOW_DAYS", 90),

		MockAPIPort:        getEnv("MOCK_API_PORT", "3000"),
		MockAPIJWTSecret:   getEnv("MOCK_API_JWT_SECRET", "dev-secret-change-me"),
		MockAPITokenTTL:    getEnvAsDuration("MOCK_API_TOKEN_TTL", 8*time.Hour),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "branch-booking", "session.json")
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
