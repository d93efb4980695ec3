package app

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/branch-booking/internal/config"
	"github.com/wolfman30/branch-booking/internal/session"
	"github.com/wolfman30/branch-booking/pkg/logging"
)

// BuildRedisClient creates a Redis client from cfg. When verify is set the
// server is pinged and nil is returned if it cannot be reached.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available", "addr", cfg.RedisAddr, "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildStorage picks the session storage named by cfg.SessionBackend. The
// returned close func releases any connection it opened.
func BuildStorage(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (session.Storage, func() error, error) {
	noop := func() error { return nil }
	switch cfg.SessionBackend {
	case appconfig.SessionBackendMemory:
		return session.NewMemoryStorage(), noop, nil
	case appconfig.SessionBackendRedis:
		client := BuildRedisClient(ctx, cfg, logger, true)
		if client == nil {
			return nil, noop, fmt.Errorf("app: redis session backend unavailable at %s", cfg.RedisAddr)
		}
		return session.NewRedisStorage(client, cfg.SessionRedisPrefix), client.Close, nil
	case appconfig.SessionBackendFile, "":
		if strings.TrimSpace(cfg.SessionFile) == "" {
			return nil, noop, fmt.Errorf("app: SESSION_FILE is empty")
		}
		return session.NewFileStorage(cfg.SessionFile), noop, nil
	default:
		return nil, noop, fmt.Errorf("app: unknown session backend %q", cfg.SessionBackend)
	}
}
