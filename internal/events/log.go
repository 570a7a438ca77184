// Package events records the meeting's audit trail: an in-memory capped log
// of transitions and lifecycle moments, optionally exported to Kafka.
package events

import (
	"sync"
	"time"
)

type Event struct {
	Type    string         `json:"type"`
	Ts      time.Time      `json:"timestamp"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Log is a capped append-only event list. When full, oldest events are
// dropped and a truncation marker is appended in their place.
type Log struct {
	mu     sync.Mutex
	events []Event
	max    int
	pub    *Publisher
}

const defaultMaxEvents = 500

// NewLog creates a log capped at max events; pub may be nil.
func NewLog(max int, pub *Publisher) *Log {
	if max <= 0 {
		max = defaultMaxEvents
	}
	return &Log{max: max, pub: pub}
}

func (l *Log) Append(typ string, payload map[string]any) Event {
	evt := Event{Type: typ, Ts: time.Now().UTC(), Payload: payload}
	l.mu.Lock()
	l.events = append(l.events, evt)
	if n := len(l.events); n > l.max {
		keep := l.max - 1
		dropped := n - keep
		l.events = append([]Event(nil), l.events[n-keep:]...)
		l.events = append(l.events, Event{
			Type: "events_truncated",
			Ts:   time.Now().UTC(),
			Payload: map[string]any{"dropped": dropped, "kept": keep},
		})
	}
	l.mu.Unlock()

	if l.pub != nil {
		l.pub.Publish(evt)
	}
	return evt
}

func (l *Log) List() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}
