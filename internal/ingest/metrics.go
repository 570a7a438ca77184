package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricUtterances = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_utterances_total",
		Help: "Recognized utterances received",
	})

	metricCommandsParsed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_commands_parsed_total",
		Help: "Commands extracted from utterances",
	}, []string{"action"})

	metricDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ingest_utterances_discarded_total",
		Help: "Utterances discarded with no command match and no active speaker",
	})
)
