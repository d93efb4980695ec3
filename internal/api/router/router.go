package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/wolfman30/branch-booking/internal/http/middleware"
	"github.com/wolfman30/branch-booking/internal/mockapi"
	"github.com/wolfman30/branch-booking/internal/observability/metrics"
	"github.com/wolfman30/branch-booking/pkg/logging"
)

// Login attempts allowed per client address.
const (
	DefaultLoginRate  = 0.5
	DefaultLoginBurst = 10
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Handler            *mockapi.Handler
	Metrics            *metrics.ServerMetrics
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// Login throttling; zero values fall back to the defaults.
	LoginRate  float64
	LoginBurst int
}

// New creates a Chi router serving the auth and booking endpoints.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger, cfg.Metrics))

	h := cfg.Handler
	requireUser := httpmiddleware.BearerJWT(h.Secret(), h.Now)

	rate, burst := cfg.LoginRate, cfg.LoginBurst
	if rate <= 0 {
		rate = DefaultLoginRate
	}
	if burst <= 0 {
		burst = DefaultLoginBurst
	}
	loginLimiter := httpmiddleware.NewRateLimiter(rate, burst, nil)

	r.Get("/health", h.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/auth", func(auth chi.Router) {
		auth.With(loginLimiter.Limit("Too many login attempts. Please try again later.")).Post("/login", h.Login)
		auth.Post("/register", h.Register)
		auth.With(requireUser).Get("/user", h.CurrentUser)
	})

	r.Route("/api", func(api chi.Router) {
		api.Get("/branches", h.ListBranches)
		api.Get("/timeslots/available", h.AvailableSlots)

		api.Group(func(protected chi.Router) {
			protected.Use(requireUser)
			protected.Post("/appointments", h.CreateAppointment)
			protected.Get("/appointments/my-appointments", h.MyAppointments)
			protected.Get("/appointments/{reference}", h.GetAppointment)
			protected.Delete("/appointments/{reference}", h.CancelAppointment)
		})
	})

	return r
}
