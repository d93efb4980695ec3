package pipeline

import (
	"context"
	"net/http"

	"github.com/wolfman30/branch-booking/internal/observability/metrics"
	"github.com/wolfman30/branch-booking/pkg/logging"
)

// Config collects the collaborators of the standard chain.
type Config struct {
	HTTPClient     *http.Client
	Tokens         TokenSource
	Public         *PublicEndpoints
	InFlight       *InFlight
	Notifier       Notifier
	OnUnauthorized func(ctx context.Context)
	Logger         *logging.Logger
	Metrics        *metrics.ClientMetrics
}

// New composes auth, loading and error normalization followed by the
// request-id, logging and metrics stages in front of the status check.
func New(cfg Config) Doer {
	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	inflight := cfg.InFlight
	if inflight == nil {
		inflight = NewInFlight(cfg.Metrics)
	}
	return Chain(StatusDoer(client),
		Auth(cfg.Tokens, cfg.Public),
		Loading(inflight),
		Errors(cfg.Notifier, cfg.OnUnauthorized, cfg.Public, cfg.Logger),
		RequestID(),
		Logging(cfg.Logger),
		Metrics(cfg.Metrics),
	)
}
