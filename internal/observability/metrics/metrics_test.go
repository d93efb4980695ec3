package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestClientMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewClientMetrics(reg)
	m.ObserveRequest("GET", "api.example.com", 200, 0.2)
	m.ObserveRequest("GET", "api.example.com", 0, 0.1)
	m.IncInFlight()
	m.IncInFlight()
	m.DecInFlight()
	m.ObserveNotification("error")

	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "api.example.com", "200")); got != 1 {
		t.Fatalf("requests_total{200} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.requestsTotal.WithLabelValues("GET", "api.example.com", "error")); got != 1 {
		t.Fatalf("requests_total{error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.inFlight); got != 1 {
		t.Fatalf("in_flight = %v, want 1", got)
	}
}

func TestServerMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewServerMetrics(reg)
	m.ObserveHTTP("POST", "/api/appointments", 201, 0.01)
	m.ObserveAppointment("create", "conflict")
	m.ObserveLogin(false)

	if got := testutil.ToFloat64(m.loginsTotal.WithLabelValues("failure")); got != 1 {
		t.Fatalf("logins_total{failure} = %v, want 1", got)
	}
}

func TestMetricsNilSafe(t *testing.T) {
	var c *ClientMetrics
	c.ObserveRequest("GET", "h", 500, 0.1)
	c.IncInFlight()
	c.DecInFlight()
	c.ObserveNotification("info")

	var s *ServerMetrics
	s.ObserveHTTP("GET", "/", 200, 0.1)
	s.ObserveAppointment("cancel", "ok")
	s.ObserveLogin(true)
}
