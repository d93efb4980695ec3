// Package app wires the client-side singletons exactly once and exposes them
// through a single context value.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wolfman30/branch-booking/internal/booking"
	"github.com/wolfman30/branch-booking/internal/clock"
	appconfig "github.com/wolfman30/branch-booking/internal/config"
	"github.com/wolfman30/branch-booking/internal/notify"
	"github.com/wolfman30/branch-booking/internal/observability/metrics"
	"github.com/wolfman30/branch-booking/internal/pipeline"
	"github.com/wolfman30/branch-booking/internal/session"
	"github.com/wolfman30/branch-booking/internal/views"
	"github.com/wolfman30/branch-booking/pkg/logging"
)

// Options override collaborators that depend on the front end in use.
type Options struct {
	Logger     *logging.Logger
	Clock      clock.Clock
	Navigator  views.Navigator
	Confirmer  views.Confirmer
	Storage    session.Storage
	HTTPClient *http.Client
	Registerer prometheus.Registerer
}

// App is the application context.
type App struct {
	Config        *appconfig.Config
	Logger        *logging.Logger
	Clock         clock.Clock
	Navigator     views.Navigator
	Confirmer     views.Confirmer
	Notifications *notify.Channel
	InFlight      *pipeline.InFlight
	Metrics       *metrics.ClientMetrics
	Client        *booking.Client
	Session       *session.Store

	closeStorage func() error
}

type tokenFunc func() (string, bool)

func (f tokenFunc) AccessToken() (string, bool) { return f() }

// New builds every singleton and validates any persisted token against the
// backend. A rejected token leaves the app signed out rather than failing.
func New(ctx context.Context, cfg *appconfig.Config, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.New(cfg.LogLevel)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	nav := opts.Navigator
	if nav == nil {
		nav = &views.RecordingNavigator{}
	}

	a := &App{
		Config:       cfg,
		Logger:       logger,
		Clock:        clk,
		Navigator:    nav,
		Confirmer:    opts.Confirmer,
		closeStorage: func() error { return nil },
	}

	a.Metrics = metrics.NewClientMetrics(registererOrNew(opts.Registerer))
	a.Notifications = notify.NewChannel(
		notify.WithClock(clk),
		notify.WithDefaultDuration(cfg.MessageDuration),
		notify.WithLogger(logger),
		notify.WithMetrics(a.Metrics),
	)
	a.InFlight = pipeline.NewInFlight(a.Metrics)

	public, err := pipeline.DefaultPublicEndpoints(cfg.AuthURL, cfg.APIURL)
	if err != nil {
		return nil, err
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	doer := pipeline.New(pipeline.Config{
		HTTPClient: httpClient,
		Tokens: tokenFunc(func() (string, bool) {
			if a.Session == nil {
				return "", false
			}
			return a.Session.AccessToken()
		}),
		Public:   public,
		InFlight: a.InFlight,
		Notifier: a.Notifications,
		OnUnauthorized: func(ctx context.Context) {
			if a.Session != nil {
				a.Session.Invalidate(ctx, "unauthorized response")
			}
		},
		Logger:  logger,
		Metrics: a.Metrics,
	})
	a.Client = booking.NewClient(doer, cfg.AuthURL, cfg.APIURL, logger)

	storage := opts.Storage
	if storage == nil {
		var closeFn func() error
		storage, closeFn, err = BuildStorage(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		a.closeStorage = closeFn
	}

	storeOpts := []session.Option{session.WithNavigator(nav), session.WithLogger(logger)}
	if opts.Confirmer != nil {
		storeOpts = append(storeOpts, session.WithConfirmer(opts.Confirmer))
	}
	a.Session, err = session.NewStore(ctx, storage, a.Client, storeOpts...)
	if err != nil {
		_ = a.closeStorage()
		return nil, fmt.Errorf("app: load session: %w", err)
	}

	if err := a.Session.CheckTokenValidity(ctx); err != nil {
		logger.Info("stored session is no longer valid", "error", err)
	}
	return a, nil
}

func registererOrNew(reg prometheus.Registerer) prometheus.Registerer {
	if reg != nil {
		return reg
	}
	return prometheus.NewRegistry()
}

// ViewDeps returns the collaborators every view controller needs.
func (a *App) ViewDeps() views.Deps {
	return views.Deps{
		API:               a.Client,
		Session:           a.Session,
		Navigator:         a.Navigator,
		Confirmer:         a.Confirmer,
		Notifier:          a.Notifications,
		Clock:             a.Clock,
		BookingWindowDays: a.Config.BookingWindowDays,
		Logger:            a.Logger,
	}
}

// Close releases the session storage connection.
func (a *App) Close() error {
	a.Notifications.Clear()
	return a.closeStorage()
}
