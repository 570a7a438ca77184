// Package meeting drives the lifecycle and owns the consumer loop: every
// command — recognized, monitor-triggered or implicit — is applied one at a
// time, so the single-floor invariant holds across all producers.
package meeting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"standup/keeper/internal/events"
	"standup/keeper/internal/monitor"
	"standup/keeper/internal/notify"
	"standup/keeper/internal/queue"
	"standup/keeper/internal/report"
	"standup/keeper/internal/scheduler"
)

var (
	ErrNoParticipants   = errors.New("no participants registered")
	ErrMeetingActive    = errors.New("meeting already active")
	ErrMeetingNotActive = errors.New("meeting not active")
	ErrMeetingEnded     = errors.New("meeting has ended")
)

type Phase int

const (
	PhaseCreated Phase = iota
	PhaseActive
	PhaseEnded
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "CREATED"
	case PhaseActive:
		return "ACTIVE"
	case PhaseEnded:
		return "ENDED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(p))
	}
}

type Meeting struct {
	id          string
	sched       *scheduler.Scheduler
	q           *queue.Queue
	mon         *monitor.Monitor
	ann         notify.Announcer
	audit       *events.Log
	scorer      report.Scorer
	joinTimeout time.Duration

	mu        sync.Mutex
	phase     Phase
	startedAt time.Time
	endedAt   time.Time
	summary   *report.Summary

	ctx          context.Context
	cancel       context.CancelFunc
	consumerDone chan struct{}
}

func New(sched *scheduler.Scheduler, q *queue.Queue, mon *monitor.Monitor, ann notify.Announcer, audit *events.Log, scorer report.Scorer, joinTimeout time.Duration) *Meeting {
	if joinTimeout <= 0 {
		joinTimeout = 5 * time.Second
	}
	return &Meeting{
		id:          uuid.New().String(),
		sched:       sched,
		q:           q,
		mon:         mon,
		ann:         ann,
		audit:       audit,
		scorer:      scorer,
		joinTimeout: joinTimeout,
	}
}

func (m *Meeting) ID() string { return m.id }

func (m *Meeting) Phase() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// AddParticipant registers a participant with a budget in seconds.
func (m *Meeting) AddParticipant(name string, allocatedSeconds float64) error {
	if m.Phase() == PhaseEnded {
		return ErrMeetingEnded
	}
	return m.sched.AddParticipant(name, allocatedSeconds)
}

func (m *Meeting) RemoveParticipant(name string) error {
	if m.Phase() == PhaseEnded {
		return ErrMeetingEnded
	}
	return m.sched.RemoveParticipant(name)
}

// StartMeeting activates the meeting, starts the consumer loop and gives the
// floor to the first registered participant.
func (m *Meeting) StartMeeting() error {
	m.mu.Lock()
	switch m.phase {
	case PhaseActive:
		m.mu.Unlock()
		return ErrMeetingActive
	case PhaseEnded:
		m.mu.Unlock()
		return ErrMeetingEnded
	}
	if len(m.sched.Snapshot().Participants) == 0 {
		m.mu.Unlock()
		return ErrNoParticipants
	}
	m.phase = PhaseActive
	m.startedAt = time.Now().UTC()
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.consumerDone = make(chan struct{})
	m.mu.Unlock()

	m.audit.Append("meeting_started", map[string]any{"meeting_id": m.id})
	log.Info().Str("meeting_id", m.id).Msg("meeting started")

	go m.consume()
	m.advance()
	return nil
}

// EndMeeting deactivates all loops, closes any open interval and returns the
// read-only summary. Safe to call once; afterwards the meeting accepts no
// further transitions.
func (m *Meeting) EndMeeting() (*report.Summary, error) {
	m.mu.Lock()
	switch m.phase {
	case PhaseCreated:
		m.mu.Unlock()
		return nil, ErrMeetingNotActive
	case PhaseEnded:
		m.mu.Unlock()
		return nil, ErrMeetingEnded
	}
	m.phase = PhaseEnded
	m.endedAt = time.Now().UTC()
	m.mu.Unlock()

	return m.shutdown(true), nil
}

// Summary returns the stored summary after the meeting has ended.
func (m *Meeting) Summary() *report.Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary
}

type Status struct {
	MeetingID string `json:"meeting_id"`
	Phase     string `json:"phase"`
	scheduler.Snapshot
}

func (m *Meeting) Status() Status {
	return Status{
		MeetingID: m.id,
		Phase:     m.Phase().String(),
		Snapshot:  m.sched.Snapshot(),
	}
}

// consume drains the command queue one command at a time.
func (m *Meeting) consume() {
	defer close(m.consumerDone)
	for {
		cmd, ok := m.q.Dequeue(m.ctx)
		if !ok {
			return
		}
		m.apply(cmd)
	}
}

func (m *Meeting) apply(cmd queue.Command) {
	if m.Phase() != PhaseActive {
		metricCommands.WithLabelValues(string(cmd.Action), "dropped").Inc()
		log.Warn().Str("action", string(cmd.Action)).Str("participant", cmd.Participant).
			Msg("late command dropped, meeting not active")
		return
	}

	switch cmd.Action {
	case queue.ActionStart:
		token, err := m.sched.Start(cmd.Participant)
		if err != nil {
			// Stray voice commands against a consistent state are noise.
			metricCommands.WithLabelValues("start", "noise").Inc()
			log.Info().Err(err).Str("participant", cmd.Participant).Msg("start ignored")
			return
		}
		metricCommands.WithLabelValues("start", "applied").Inc()
		m.mon.Watch(m.ctx, cmd.Participant, token)

	case queue.ActionStop:
		if err := m.sched.Stop(cmd.Participant); err != nil {
			metricCommands.WithLabelValues("stop", "noise").Inc()
			log.Info().Err(err).Str("participant", cmd.Participant).Msg("stop ignored")
			return
		}
		metricCommands.WithLabelValues("stop", "applied").Inc()

	case queue.ActionExceed:
		m.applyExceed(cmd)
	}
}

func (m *Meeting) applyExceed(cmd queue.Command) {
	used, ok := m.sched.ForceExceed(cmd.Participant, cmd.Token)
	if !ok {
		// Stale watcher; the interval was superseded before the command
		// reached us.
		metricCommands.WithLabelValues("exceed", "stale").Inc()
		return
	}
	metricCommands.WithLabelValues("exceed", "applied").Inc()

	m.announce(fmt.Sprintf("Warning: %s has exceeded their allocated time!", cmd.Participant))
	log.Warn().Str("participant", cmd.Participant).Float64("used_seconds", used).Msg("speaker interrupted")

	m.sched.Release(cmd.Participant, cmd.Token)
	// Unlike a manual stop, the exceed path advances on its own: the speaker
	// was interrupted rather than finished, so the floor must not sit idle
	// waiting for a command that may never come.
	m.advance()
}

// advance hands the floor to the next waiting participant, or ends the
// meeting automatically when nobody is left.
func (m *Meeting) advance() {
	name, token, ok := m.sched.Advance()
	if ok {
		m.mon.Watch(m.ctx, name, token)
		return
	}

	m.mu.Lock()
	if m.phase != PhaseActive {
		m.mu.Unlock()
		return
	}
	m.phase = PhaseEnded
	m.endedAt = time.Now().UTC()
	m.mu.Unlock()

	log.Info().Str("meeting_id", m.id).Msg("no participants waiting, ending meeting")
	// Called from the consumer loop itself: do not wait for it to join.
	m.shutdown(false)
}

// shutdown cancels monitors and the consumer, folds any open interval and
// builds the summary. waitConsumer joins the consumer loop with a bounded
// timeout so shutdown cannot hang.
func (m *Meeting) shutdown(waitConsumer bool) *report.Summary {
	m.cancel()
	m.q.Close()
	if waitConsumer {
		select {
		case <-m.consumerDone:
		case <-time.After(m.joinTimeout):
			log.Warn().Msg("consumer loop did not stop within join timeout")
		}
	}

	m.sched.CloseMeeting()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sum := report.Build(ctx, m.id, m.startedAt, m.endedAt, m.sched.Snapshot(), m.sched.Transcripts(), m.scorer)

	m.mu.Lock()
	m.summary = &sum
	m.mu.Unlock()

	m.audit.Append("meeting_ended", map[string]any{"meeting_id": m.id})
	log.Info().Str("meeting_id", m.id).Msg("meeting ended")
	return &sum
}

// announce dispatches to the notification sink without blocking the consumer
// loop; failures are logged only.
func (m *Meeting) announce(text string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.ann.Announce(ctx, text); err != nil {
			metricAnnounceFailures.Inc()
			log.Error().Err(err).Msg("announcement failed")
		}
	}()
}
