package meeting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricCommands = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meeting_commands_total",
		Help: "Commands processed by the consumer loop",
	}, []string{"action", "outcome"})

	metricAnnounceFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "meeting_announce_failures_total",
		Help: "Announcements the notification sink failed to deliver",
	})
)
