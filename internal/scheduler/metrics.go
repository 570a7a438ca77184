package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meeting_state_transitions_total",
		Help: "Participant state transitions",
	}, []string{"from", "to"})

	metricForcedExceeds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meeting_forced_exceeds_total",
		Help: "Forced transitions to EXCEEDED triggered by the timeout monitor",
	})

	metricIntervalSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "meeting_speaking_interval_seconds",
		Help:    "Length of closed speaking intervals",
		Buckets: prometheus.ExponentialBuckets(5, 1.8, 10),
	})
)
