// Package monitor watches the active speaker's time budget. One watcher runs
// per speaking interval; it never mutates state itself, it enqueues an exceed
// command so the consumer loop applies the transition serialized with
// everything else.
package monitor

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"standup/keeper/internal/queue"
)

// Floor is the scheduler's read-only view of a speaking interval.
type Floor interface {
	Observe(name, token string) (effective, allocated float64, active bool)
}

type Monitor struct {
	floor Floor
	q     *queue.Queue
	poll  time.Duration
}

func New(floor Floor, q *queue.Queue, poll time.Duration) *Monitor {
	if poll <= 0 {
		poll = time.Second
	}
	return &Monitor{floor: floor, q: q, poll: poll}
}

// Watch spawns a watcher for the interval identified by token. The watcher
// exits within one poll interval once the interval is superseded or closed,
// and fires the exceed command at most once.
func (m *Monitor) Watch(ctx context.Context, name, token string) {
	go m.run(ctx, name, token)
}

func (m *Monitor) run(ctx context.Context, name, token string) {
	t := time.NewTicker(m.poll)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			effective, allocated, active := m.floor.Observe(name, token)
			if !active {
				// Superseded by a stop or handoff; this interval is no
				// longer ours to act on.
				return
			}
			if effective >= allocated {
				log.Debug().Str("participant", name).Float64("effective", effective).
					Float64("allocated", allocated).Msg("budget met, requesting exceed")
				m.q.Enqueue(queue.Command{
					Action:      queue.ActionExceed,
					Participant: name,
					Token:       token,
					Source:      "monitor",
				})
				return
			}
		}
	}
}
