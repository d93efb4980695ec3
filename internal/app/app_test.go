package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/branch-booking/internal/clock"
	appconfig "github.com/wolfman30/branch-booking/internal/config"
	"github.com/wolfman30/branch-booking/internal/session"
	"github.com/wolfman30/branch-booking/internal/views"
	"github.com/wolfman30/branch-booking/pkg/logging"
)

func testConfig(baseURL string) *appconfig.Config {
	return &appconfig.Config{
		AuthURL:           baseURL + "/auth",
		APIURL:            baseURL + "/api",
		HTTPTimeout:       5 * time.Second,
		SessionBackend:    appconfig.SessionBackendMemory,
		MessageDuration:   time.Second,
		BookingWindowDays: 90,
	}
}

func newApp(t *testing.T, handler http.HandlerFunc, storage session.Storage) (*App, *views.RecordingNavigator) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	nav := &views.RecordingNavigator{}
	a, err := New(context.Background(), testConfig(srv.URL), Options{
		Logger:    logging.Discard(),
		Clock:     clock.NewFake(time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)),
		Navigator: nav,
		Storage:   storage,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, nav
}

func TestNewInvalidatesRejectedToken(t *testing.T) {
	ctx := context.Background()
	storage := session.NewMemoryStorage()
	require.NoError(t, storage.Set(ctx, session.AccessTokenKey, "expired"))

	var authHeader string
	a, nav := newApp(t, func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusUnauthorized)
	}, storage)

	assert.Equal(t, "Bearer expired", authHeader)
	assert.False(t, a.Session.IsAuthenticated())

	history := nav.History()
	require.Len(t, history, 1, "401 hook and failed probe share one navigation")
	assert.Equal(t, views.RouteLogin, history[0].Route)
	assert.True(t, history[0].Reset)

	msgs := a.Notifications.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Your session has expired. Please log in again.", msgs[0].Content)
	assert.Zero(t, a.InFlight.Count())
}

func TestNewRefreshesProfile(t *testing.T) {
	ctx := context.Background()
	storage := session.NewMemoryStorage()
	require.NoError(t, storage.Set(ctx, session.AccessTokenKey, "good"))

	a, nav := newApp(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":7,"username":"jane","roles":["USER"]}`))
	}, storage)

	assert.True(t, a.Session.IsAuthenticated())
	p := a.Session.Profile()
	require.NotNil(t, p)
	assert.Equal(t, "7", p.ID)
	assert.Equal(t, "jane@example.com", p.Email)
	assert.Empty(t, nav.History())

	deps := a.ViewDeps()
	assert.Equal(t, 90, deps.BookingWindowDays)
	assert.Same(t, a.Notifications, deps.Notifier)
}

func TestRejectedLoginDoesNotEndSession(t *testing.T) {
	ctx := context.Background()
	storage := session.NewMemoryStorage()
	var paths []string
	a, nav := newApp(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid username or password"}`))
	}, storage)

	_, err := a.Session.Login(ctx, session.Credentials{Username: "john", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, []string{"/auth/login"}, paths)

	assert.False(t, a.Session.IsAuthenticated())
	assert.Empty(t, nav.History(), "a rejected login stays on the login view")

	msgs := a.Notifications.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Invalid username or password", msgs[0].Content)
	assert.Zero(t, a.InFlight.Count())

	_, err = storage.Get(ctx, session.AccessTokenKey)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestNewWithoutTokenSkipsProbe(t *testing.T) {
	calls := 0
	a, _ := newApp(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
	}, session.NewMemoryStorage())
	assert.False(t, a.Session.IsAuthenticated())
	assert.Zero(t, calls)
}

func TestBuildStorage(t *testing.T) {
	ctx := context.Background()
	logger := logging.Discard()

	cfg := &appconfig.Config{SessionBackend: appconfig.SessionBackendFile, SessionFile: t.TempDir() + "/s.json"}
	s, closeFn, err := BuildStorage(ctx, cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &session.FileStorage{}, s)
	assert.NoError(t, closeFn())

	mr := miniredis.RunT(t)
	cfg = &appconfig.Config{SessionBackend: appconfig.SessionBackendRedis, RedisAddr: mr.Addr(), SessionRedisPrefix: "p:"}
	s, closeFn, err = BuildStorage(ctx, cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &session.RedisStorage{}, s)
	require.NoError(t, s.Set(ctx, session.AccessTokenKey, "x"))
	assert.True(t, mr.Exists("p:"+session.AccessTokenKey))
	assert.NoError(t, closeFn())

	cfg = &appconfig.Config{SessionBackend: "carrier-pigeon"}
	_, _, err = BuildStorage(ctx, cfg, logger)
	assert.Error(t, err)
}
