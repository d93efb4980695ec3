package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics exposes counters/histograms for outbound API calls.
type ClientMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	notifications   *prometheus.CounterVec
}

func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	m := &ClientMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "client",
			Name:      "requests_total",
			Help:      "Total outbound API requests by method, host and status",
		}, []string{"method", "host", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "client",
			Name:      "request_duration_seconds",
			Help:      "Latency of outbound API requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "host"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "booking",
			Subsystem: "client",
			Name:      "requests_in_flight",
			Help:      "Outbound API requests currently awaiting a response",
		}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "client",
			Name:      "notifications_total",
			Help:      "User-facing notifications raised by type",
		}, []string{"type"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration, m.inFlight, m.notifications)
	return m
}

// ObserveRequest records a finished request. A status of 0 means the request
// never produced a response.
func (m *ClientMetrics) ObserveRequest(method, host string, status int, seconds float64) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requestsTotal.WithLabelValues(method, host, label).Inc()
	m.requestDuration.WithLabelValues(method, host).Observe(seconds)
}

func (m *ClientMetrics) IncInFlight() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *ClientMetrics) DecInFlight() {
	if m == nil {
		return
	}
	m.inFlight.Dec()
}

func (m *ClientMetrics) ObserveNotification(kind string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(kind).Inc()
}

// ServerMetrics exposes counters/histograms for the mock booking backend.
type ServerMetrics struct {
	httpTotal    *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
	appointments *prometheus.CounterVec
	loginsTotal  *prometheus.CounterVec
}

func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	m := &ServerMetrics{
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests served by route and status",
		}, []string{"method", "route", "status"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "booking",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP request handling",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		appointments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "api",
			Name:      "appointments_total",
			Help:      "Appointment lifecycle events by action and outcome",
		}, []string{"action", "outcome"}),
		loginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "booking",
			Subsystem: "api",
			Name:      "logins_total",
			Help:      "Login attempts by outcome",
		}, []string{"outcome"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.httpTotal, m.httpLatency, m.appointments, m.loginsTotal)
	return m
}

func (m *ServerMetrics) ObserveHTTP(method, route string, status int, seconds float64) {
	if m == nil {
		return
	}
	m.httpTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(seconds)
}

func (m *ServerMetrics) ObserveAppointment(action, outcome string) {
	if m == nil {
		return
	}
	m.appointments.WithLabelValues(action, outcome).Inc()
}

func (m *ServerMetrics) ObserveLogin(success bool) {
	if m == nil {
		return
	}
	outcome := "failure"
	if success {
		outcome = "success"
	}
	m.loginsTotal.WithLabelValues(outcome).Inc()
}
