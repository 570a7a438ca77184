// Package scheduler owns the turn-taking state machine. Every participant
// mutation in the process goes through one mutex here, so start, stop and the
// forced-exceed check can never interleave into two speakers or a lost time
// update.
package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"standup/keeper/internal/events"
	"standup/keeper/internal/participant"
	"standup/keeper/internal/timetrack"
)

// ErrInvalidTransition reports a start/stop against an already-consistent
// state. Expected background noise from voice commands, not a failure.
var ErrInvalidTransition = errors.New("invalid transition")

type Scheduler struct {
	mu     sync.Mutex
	roster *participant.Store
	audit  *events.Log
	now    func() time.Time

	// current and token identify the open speaking interval. A command or
	// watcher carrying a stale token is a no-op.
	current string
	token   string

	status  string
	caption string
}

func New(roster *participant.Store, audit *events.Log) *Scheduler {
	return &Scheduler{
		roster: roster,
		audit:  audit,
		now:    time.Now,
		status: "Meeting not started.",
	}
}

// AddParticipant registers a participant; allocation is in seconds.
func (s *Scheduler) AddParticipant(name string, allocatedSeconds float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.roster.Add(name, allocatedSeconds)
	if err != nil {
		return err
	}
	s.append("participant_added", map[string]any{"participant": p.Name, "allocated_seconds": p.AllocatedSeconds})
	return nil
}

// RemoveParticipant deletes a participant; fails while they are not WAITING.
func (s *Scheduler) RemoveParticipant(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.roster.Remove(name); err != nil {
		return err
	}
	s.append("participant_removed", map[string]any{"participant": participant.Normalize(name)})
	return nil
}

// Start gives the floor to name. If someone else holds it, their interval is
// closed and they return to WAITING first — one atomic handoff. Returns the
// new interval's token.
func (s *Scheduler) Start(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := participant.Normalize(name)
	p, ok := s.roster.Get(norm)
	if !ok {
		return "", fmt.Errorf("%w: %s", participant.ErrNotFound, norm)
	}
	if p.State != participant.Waiting {
		return "", fmt.Errorf("%w: start %s while %s", ErrInvalidTransition, norm, p.State)
	}
	return s.startLocked(p), nil
}

// startLocked performs the handoff and opens the new interval. Caller holds
// the lock and has verified p is WAITING. Only the floor holder's interval is
// closed here: a released EXCEEDED participant is no longer s.current, and
// their overtime interval survives handoffs until an explicit stop or
// CloseMeeting folds it.
func (s *Scheduler) startLocked(p *participant.Participant) string {
	now := s.now()
	if s.current != "" {
		if prev, ok := s.roster.Get(s.current); ok {
			folded := timetrack.CloseInterval(prev, now)
			s.setState(prev, participant.Waiting)
			metricIntervalSeconds.Observe(folded)
		}
	}

	timetrack.OpenInterval(p, now)
	s.setState(p, participant.Speaking)
	s.current = p.Name
	s.token = uuid.New().String()
	s.status = fmt.Sprintf("Started timing for %s", p.Name)
	s.append("speaker_started", map[string]any{"participant": p.Name, "token": s.token})
	log.Info().Str("participant", p.Name).Msg("floor granted")
	return s.token
}

// Stop closes name's interval and returns them to WAITING. Valid only from
// SPEAKING or EXCEEDED.
func (s *Scheduler) Stop(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := participant.Normalize(name)
	p, ok := s.roster.Get(norm)
	if !ok {
		return fmt.Errorf("%w: %s", participant.ErrNotFound, norm)
	}
	if p.State != participant.Speaking && p.State != participant.Exceeded {
		return fmt.Errorf("%w: stop %s while %s", ErrInvalidTransition, norm, p.State)
	}

	folded := timetrack.CloseInterval(p, s.now())
	metricIntervalSeconds.Observe(folded)
	s.setState(p, participant.Waiting)
	if s.current == norm {
		s.current = ""
		s.token = ""
	}
	s.status = fmt.Sprintf("Stopped timing for %s", norm)
	s.append("speaker_stopped", map[string]any{"participant": norm, "used_seconds": p.UsedSeconds})
	log.Info().Str("participant", norm).Float64("used_seconds", p.UsedSeconds).Msg("floor returned")
	return nil
}

// Advance starts the earliest-registered WAITING participant. ok is false
// when nobody is waiting, which ends the meeting.
func (s *Scheduler) Advance() (name, token string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.roster.All() {
		if p.State == participant.Waiting {
			return p.Name, s.startLocked(p), true
		}
	}
	return "", "", false
}

// Observe is the monitor's read-only view of the interval it watches.
// active is false once the interval has been superseded or closed.
func (s *Scheduler) Observe(name, token string) (effective, allocated float64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := participant.Normalize(name)
	if s.current != norm || s.token != token {
		return 0, 0, false
	}
	p, ok := s.roster.Get(norm)
	if !ok || p.State != participant.Speaking {
		return 0, 0, false
	}
	return timetrack.Effective(p, s.now()), p.AllocatedSeconds, true
}

// ForceExceed moves the watched participant to EXCEEDED. The interval stays
// open so overtime keeps accruing until an explicit stop or meeting end.
// Fires at most once per interval: a stale token or a state other than
// SPEAKING is a no-op.
func (s *Scheduler) ForceExceed(name, token string) (usedSeconds float64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := participant.Normalize(name)
	if s.current != norm || s.token != token {
		return 0, false
	}
	p, found := s.roster.Get(norm)
	if !found || p.State != participant.Speaking {
		return 0, false
	}

	s.setState(p, participant.Exceeded)
	metricForcedExceeds.Inc()
	used := timetrack.Effective(p, s.now())
	s.status = fmt.Sprintf("Warning: %s has exceeded their allocated time!", norm)
	s.append("time_exceeded", map[string]any{"participant": norm, "used_seconds": used, "allocated_seconds": p.AllocatedSeconds})
	log.Warn().Str("participant", norm).Float64("used_seconds", used).Msg("time budget exceeded")
	return used, true
}

// Release frees the floor after a forced exceed so a new start can proceed.
// The participant stays EXCEEDED and their interval stays open: overtime
// keeps accruing until an explicit stop or meeting end folds it.
func (s *Scheduler) Release(name, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := participant.Normalize(name)
	if s.current != norm || s.token != token {
		return false
	}
	p, ok := s.roster.Get(norm)
	if !ok {
		return false
	}
	s.current = ""
	s.token = ""
	s.append("floor_released", map[string]any{"participant": norm, "used_seconds": timetrack.Effective(p, s.now())})
	return true
}

// CloseMeeting folds every open interval at meeting end, including a
// released EXCEEDED participant's still-accruing overtime. A SPEAKING holder
// returns to WAITING; EXCEEDED is kept for the summary.
func (s *Scheduler) CloseMeeting() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, p := range s.roster.All() {
		if p.SpeakingSince == nil {
			continue
		}
		folded := timetrack.CloseInterval(p, now)
		metricIntervalSeconds.Observe(folded)
		if p.State == participant.Speaking {
			s.setState(p, participant.Waiting)
		}
	}
	s.current = ""
	s.token = ""
	s.status = "Meeting ended."
}

// AppendTranscript attributes a recognized line to the floor holder.
func (s *Scheduler) AppendTranscript(name, line string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	norm := participant.Normalize(name)
	if s.current != norm {
		return false
	}
	p, ok := s.roster.Get(norm)
	if !ok {
		return false
	}
	p.SpokenLines = append(p.SpokenLines, line)
	return true
}

// SetCaption records the most recent recognized utterance for the snapshot.
func (s *Scheduler) SetCaption(text string) {
	s.mu.Lock()
	s.caption = text
	s.mu.Unlock()
}

func (s *Scheduler) CurrentSpeaker() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Scheduler) IsKnown(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.roster.Get(name)
	return ok
}

func (s *Scheduler) setState(p *participant.Participant, to participant.State) {
	from := p.State
	p.State = to
	metricTransitions.WithLabelValues(from.String(), to.String()).Inc()
}

func (s *Scheduler) append(typ string, payload map[string]any) {
	if s.audit != nil {
		s.audit.Append(typ, payload)
	}
}
