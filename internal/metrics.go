package internal

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Reload results.
const (
	ReloadSuccess = "success"
	ReloadError   = "error"
)

// routeUnmatched labels requests that matched no route.
const routeUnmatched = "unmatched"

// Metrics holds the router's Prometheus collectors.
// A nil *Metrics records nothing.
type Metrics struct {
	requests           *prometheus.CounterVec
	duration           *prometheus.HistogramVec
	routes             prometheus.Gauge
	reloads            *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg under namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "kamu"
	}
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "requests_total",
				Help:      "Total number of dispatched requests",
			},
			[]string{"method", "route", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "request_duration_seconds",
				Help:      "Duration of request dispatch in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		routes: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "routes",
				Help:      "Number of routes in the live table",
			},
		),
		reloads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "router",
				Name:      "reloads_total",
				Help:      "Total number of route table reloads by result",
			},
			[]string{"result"},
		),
		validationFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gate",
				Name:      "validation_failures_total",
				Help:      "Total number of requests redirected by failed validation",
			},
			[]string{"route"},
		),
	}
}

func (m *Metrics) observeRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = routeUnmatched
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) setRoutes(n int) {
	if m == nil {
		return
	}
	m.routes.Set(float64(n))
}

func (m *Metrics) observeReload(result string) {
	if m == nil {
		return
	}
	m.reloads.WithLabelValues(result).Inc()
}

func (m *Metrics) observeValidationFailure(route string) {
	if m == nil {
		return
	}
	if route == "" {
		route = routeUnmatched
	}
	m.validationFailures.WithLabelValues(route).Inc()
}
