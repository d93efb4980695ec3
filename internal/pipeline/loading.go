package pipeline

import (
	"net/http"
	"sync"

	"github.com/wolfman30/branch-booking/internal/observability/metrics"
	"github.com/wolfman30/branch-booking/internal/observable"
)

// InFlight counts requests that have been dispatched but not finished.
type InFlight struct {
	mu      sync.Mutex
	n       int
	metrics *metrics.ClientMetrics

	publishMu sync.Mutex
	busy      *observable.Cell[bool]
}

// NewInFlight returns a zeroed counter. m may be nil.
func NewInFlight(m *metrics.ClientMetrics) *InFlight {
	return &InFlight{metrics: m, busy: observable.NewCell(false)}
}

// Count returns the number of outstanding requests.
func (f *InFlight) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.n
}

// Busy publishes true while at least one request is outstanding. Listeners
// must not issue requests synchronously.
func (f *InFlight) Busy() *observable.Cell[bool] { return f.busy }

func (f *InFlight) inc() {
	f.mu.Lock()
	f.n++
	transition := f.n == 1
	f.mu.Unlock()
	f.metrics.IncInFlight()
	if transition {
		f.publish()
	}
}

func (f *InFlight) dec() {
	f.mu.Lock()
	if f.n == 0 {
		f.mu.Unlock()
		return
	}
	f.n--
	transition := f.n == 0
	f.mu.Unlock()
	f.metrics.DecInFlight()
	if transition {
		f.publish()
	}
}

// publish re-reads the count under publishMu so the last publisher always
// writes the current state.
func (f *InFlight) publish() {
	f.publishMu.Lock()
	defer f.publishMu.Unlock()
	busy := f.Count() > 0
	if f.busy.Get() != busy {
		f.busy.Set(busy)
	}
}

// Loading increments the counter before dispatch and decrements it on every
// exit path, including panics further down the chain.
func Loading(f *InFlight) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			f.inc()
			defer f.dec()
			return next.Do(req)
		})
	}
}
