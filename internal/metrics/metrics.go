package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for backend traffic and box freshness.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	stale      *prometheus.CounterVec
	suppressed prometheus.Counter
	inflight   prometheus.Gauge
}

// New creates the collectors and registers them on reg, reusing collectors
// that are already registered.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csearch",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Completion server requests by target box and status.",
		}, []string{"target", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "csearch",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Completion server request duration in seconds.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"target"}),
		stale: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "csearch",
			Name:      "stale_responses_total",
			Help:      "Responses discarded because the box already shows a newer query.",
		}, []string{"box"}),
		suppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "csearch",
			Name:      "suppressed_queries_total",
			Help:      "Queries not sent because the last word was too short.",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "csearch",
			Subsystem: "pool",
			Name:      "inflight",
			Help:      "Requests currently held by the request pool.",
		}),
	}
	if err := registerOrReuse(reg, &m.requests); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.duration); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.stale); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.suppressed); err != nil {
		return nil, err
	}
	if err := registerOrReuse(reg, &m.inflight); err != nil {
		return nil, err
	}
	return m, nil
}

// registerOrReuse registers a collector or reuses an existing one.
func registerOrReuse[T prometheus.Collector](reg prometheus.Registerer, c *T) error {
	if err := reg.Register(*c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			existing, ok := are.ExistingCollector.(T)
			if !ok {
				return fmt.Errorf("metrics: already registered with incompatible type: %T", are.ExistingCollector)
			}
			*c = existing
			return nil
		}
		return fmt.Errorf("metrics: register: %w", err)
	}
	return nil
}

// ObserveRequest records one backend request.
func (m *Metrics) ObserveRequest(target string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.requests.WithLabelValues(target, status).Inc()
	m.duration.WithLabelValues(target).Observe(time.Since(start).Seconds())
}

// StaleResponse records a response dropped by the freshness rule.
func (m *Metrics) StaleResponse(box string) {
	if m == nil {
		return
	}
	m.stale.WithLabelValues(box).Inc()
}

// SuppressedQuery records a query held back by the launch guard.
func (m *Metrics) SuppressedQuery() {
	if m == nil {
		return
	}
	m.suppressed.Inc()
}

// SetInFlight records the number of requests held by the pool.
func (m *Metrics) SetInFlight(n int) {
	if m == nil {
		return
	}
	m.inflight.Set(float64(n))
}
