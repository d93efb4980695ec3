package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BOOKING_AUTH_URL", "")
	t.Setenv("BOOKING_API_URL", "")
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("MESSAGE_DURATION", "")
	t.Setenv("BOOKING_WINDOW_DAYS", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.AuthURL != "http://localhost:3000/auth" {
		t.Fatalf("expected default auth url, got %s", cfg.AuthURL)
	}
	if cfg.APIURL != "http://localhost:3000/api" {
		t.Fatalf("expected default api url, got %s", cfg.APIURL)
	}
	if cfg.SessionBackend != SessionBackendFile {
		t.Fatalf("expected file session backend, got %s", cfg.SessionBackend)
	}
	if !strings.HasSuffix(cfg.SessionFile, "session.json") {
		t.Fatalf("unexpected session file %s", cfg.SessionFile)
	}
	if cfg.MessageDuration != 5*time.Second {
		t.Fatalf("expected 5s message duration, got %s", cfg.MessageDuration)
	}
	if cfg.BookingWindowDays != 90 {
		t.Fatalf("expected 90 day window, got %d", cfg.BookingWindowDays)
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BOOKING_AUTH_URL", "https://booking.example.com/auth/")
	t.Setenv("BOOKING_API_URL", "https://booking.example.com/api/")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("SESSION_BACKEND", " Redis ")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("MESSAGE_DURATION", "750ms")
	t.Setenv("BOOKING_WINDOW_DAYS", "30")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	cfg := Load()
	if cfg.AuthURL != "https://booking.example.com/auth" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.AuthURL)
	}
	if cfg.APIURL != "https://booking.example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.APIURL)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Fatalf("expected timeout override, got %s", cfg.HTTPTimeout)
	}
	if cfg.SessionBackend != SessionBackendRedis {
		t.Fatalf("expected redis backend, got %q", cfg.SessionBackend)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if cfg.MessageDuration != 750*time.Millisecond {
		t.Fatalf("expected duration override, got %s", cfg.MessageDuration)
	}
	if cfg.BookingWindowDays != 30 {
		t.Fatalf("expected window override, got %d", cfg.BookingWindowDays)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("HTTP_TIMEOUT", "soon")
	t.Setenv("BOOKING_WINDOW_DAYS", "ninety")
	cfg := Load()
	if cfg.HTTPTimeout != 20*time.Second {
		t.Fatalf("expected default timeout, got %s", cfg.HTTPTimeout)
	}
	if cfg.BookingWindowDays != 90 {
		t.Fatalf("expected default window, got %d", cfg.BookingWindowDays)
	}
}
