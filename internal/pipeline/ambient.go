package pipeline

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/branch-booking/internal/observability/metrics"
	"github.com/wolfman30/branch-booking/pkg/logging"
)

// RequestIDHeader correlates client and backend logs.
const RequestIDHeader = "X-Request-ID"

// RequestID stamps a fresh uuid on requests that do not already carry one.
func RequestID() Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if req.Header.Get(RequestIDHeader) != "" {
				return next.Do(req)
			}
			stamped := req.Clone(req.Context())
			stamped.Header.Set(RequestIDHeader, uuid.NewString())
			return next.Do(stamped)
		})
	}
}

// Logging emits one debug record per request with its outcome.
func Logging(logger *logging.Logger) Middleware {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.Do(req)
			attrs := []any{
				"method", req.Method,
				"url", req.URL.Redacted(),
				"request_id", req.Header.Get(RequestIDHeader),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if resp != nil {
				attrs = append(attrs, "status", resp.StatusCode)
			} else if he, ok := AsHTTPError(err); ok {
				attrs = append(attrs, "status", he.Status)
			}
			if err != nil {
				attrs = append(attrs, "error", err)
			}
			logger.Debug("api request completed", attrs...)
			return resp, err
		})
	}
}

// Metrics records request counts and latency. m may be nil.
func Metrics(m *metrics.ClientMetrics) Middleware {
	return func(next Doer) Doer {
		if m == nil {
			return next
		}
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.Do(req)
			status := 0
			if resp != nil {
				status = resp.StatusCode
			} else if he, ok := AsHTTPError(err); ok {
				status = he.Status
			}
			m.ObserveRequest(req.Method, req.URL.Host, status, time.Since(start).Seconds())
			return resp, err
		})
	}
}
