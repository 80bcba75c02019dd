// Package metrics holds the Prometheus collectors for storage calls.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Store records task-storage calls.
type Store struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewStore creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewStore(reg prometheus.Registerer) *Store {
	s := &Store{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tasklink",
			Subsystem: "store",
			Name:      "requests_total",
			Help:      "Task-storage requests by operation and status code.",
		}, []string{"op", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tasklink",
			Subsystem: "store",
			Name:      "request_duration_seconds",
			Help:      "Task-storage request latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
	if reg != nil {
		reg.MustRegister(s.requests, s.latency)
	}
	return s
}

// Observe records one call. code is the HTTP status, 0 for transport errors.
func (s *Store) Observe(op string, code int, d time.Duration) {
	if s == nil {
		return
	}
	s.requests.WithLabelValues(op, strconv.Itoa(code)).Inc()
	s.latency.WithLabelValues(op).Observe(d.Seconds())
}
