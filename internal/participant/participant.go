// Package participant holds the meeting roster. The store has no locking of
// its own: the scheduler is the single mutual-exclusion domain for all
// participant mutation.
package participant

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrDuplicateParticipant = errors.New("participant already exists")
	ErrInvalidName          = errors.New("participant name required")
	ErrInvalidAllocation    = errors.New("allocated time must be positive")
	ErrNotFound             = errors.New("participant not found")
	ErrParticipantBusy      = errors.New("participant is not waiting")
)

// State is the participant's position in the turn-taking machine.
type State int

const (
	// Waiting - not holding the floor, eligible to speak.
	Waiting State = iota
	// Speaking - holds the floor, an interval is open.
	Speaking
	// Exceeded - budget overrun detected while speaking; cleared by an
	// explicit stop.
	Exceeded
)

func (s State) String() string {
	switch s {
	case Waiting:
		return "WAITING"
	case Speaking:
		return "SPEAKING"
	case Exceeded:
		return "EXCEEDED"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", int(s))
	}
}

// Participant is a single roster entry. Name and AllocatedSeconds are
// immutable after creation; everything else is mutated only by the scheduler.
type Participant struct {
	Name             string
	AllocatedSeconds float64
	UsedSeconds      float64
	State            State
	// SpeakingSince is set exactly while an interval is open; the time not
	// yet folded into UsedSeconds.
	SpeakingSince *time.Time
	SpokenLines   []string
}

// Normalize is the canonical form for participant names.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Store keeps participants in insertion order (first added speaks first).
type Store struct {
	byName map[string]*Participant
	order  []string
}

func NewStore() *Store {
	return &Store{byName: make(map[string]*Participant)}
}

func (s *Store) Add(name string, allocatedSeconds float64) (*Participant, error) {
	norm := Normalize(name)
	if norm == "" {
		return nil, ErrInvalidName
	}
	if allocatedSeconds <= 0 {
		return nil, ErrInvalidAllocation
	}
	if _, ok := s.byName[norm]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateParticipant, norm)
	}
	p := &Participant{
		Name:             norm,
		AllocatedSeconds: allocatedSeconds,
		State:            Waiting,
	}
	s.byName[norm] = p
	s.order = append(s.order, norm)
	return p, nil
}

// Remove deletes a participant; only permitted while they are WAITING.
func (s *Store) Remove(name string) error {
	norm := Normalize(name)
	p, ok := s.byName[norm]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, norm)
	}
	if p.State != Waiting {
		return fmt.Errorf("%w: %s is %s", ErrParticipantBusy, norm, p.State)
	}
	delete(s.byName, norm)
	for i, n := range s.order {
		if n == norm {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) Get(name string) (*Participant, bool) {
	p, ok := s.byName[Normalize(name)]
	return p, ok
}

// All returns participants in registration order.
func (s *Store) All() []*Participant {
	out := make([]*Participant, 0, len(s.order))
	for _, n := range s.order {
		out = append(out, s.byName[n])
	}
	return out
}

func (s *Store) Len() int { return len(s.byName) }
