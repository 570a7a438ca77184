// Package queue decouples command producers (recognizer, timeout monitor)
// from the meeting's consumer loop with an in-order FIFO.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	metricQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "meeting_command_queue_depth",
		Help: "Commands currently buffered in the command queue",
	})
	metricDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "meeting_commands_dropped_total",
		Help: "Commands dropped because the queue was full or closed",
	}, []string{"reason"})
)

type Action string

const (
	ActionStart  Action = "start"
	ActionStop   Action = "stop"
	ActionExceed Action = "exceed"
)

// Command is one unit of work for the consumer loop. Token carries the
// speaking-interval identity for monitor-originated commands.
type Command struct {
	Action      Action
	Participant string
	Token       string
	Source      string
	EnqueuedAt  time.Time
}

// Queue is a bounded FIFO. Producers never block: a full or closed queue
// drops the command and reports it.
type Queue struct {
	mu     sync.RWMutex
	ch     chan Command
	closed bool
}

func New(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 64
	}
	return &Queue{ch: make(chan Command, capacity)}
}

// Enqueue appends a command; returns false when dropped.
func (q *Queue) Enqueue(cmd Command) bool {
	cmd.EnqueuedAt = time.Now()
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		metricDropped.WithLabelValues("closed").Inc()
		log.Warn().Str("action", string(cmd.Action)).Str("participant", cmd.Participant).
			Msg("command dropped: queue closed")
		return false
	}
	select {
	case q.ch <- cmd:
		metricQueueDepth.Set(float64(len(q.ch)))
		return true
	default:
		metricDropped.WithLabelValues("full").Inc()
		log.Warn().Str("action", string(cmd.Action)).Str("participant", cmd.Participant).
			Msg("command dropped: queue full")
		return false
	}
}

// Dequeue blocks until a command arrives, the queue closes, or ctx is done.
func (q *Queue) Dequeue(ctx context.Context) (Command, bool) {
	select {
	case cmd, ok := <-q.ch:
		metricQueueDepth.Set(float64(len(q.ch)))
		return cmd, ok
	case <-ctx.Done():
		return Command{}, false
	}
}

// Close stops accepting commands. Buffered commands still drain; anything
// enqueued afterwards is dropped.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.ch)
}

func (q *Queue) Len() int { return len(q.ch) }
