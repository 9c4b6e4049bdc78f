package server

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spigell/karune-engine/internal/matching"
)

type metrics struct {
	requests   *prometheus.CounterVec
	candidates *prometheus.CounterVec
	duration   prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "karune_match_requests_total",
				Help: "Match requests by outcome",
			},
			[]string{"outcome"},
		),
		candidates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "karune_candidates_scored_total",
				Help: "Candidates scored against a need",
			},
			[]string{"kind"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "karune_match_duration_seconds",
				Help:    "Time spent decoding, scoring and filtering one match request",
				Buckets: prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),
	}

	reg.MustRegister(m.requests, m.candidates, m.duration)
	return m
}

const (
	outcomeOK      = "ok"
	outcomeInvalid = "invalid"
	outcomeError   = "error"
)

func (m *metrics) scored(kind matching.Kind, n int) {
	m.candidates.WithLabelValues(string(kind)).Add(float64(n))
}
