package scheduler

import (
	"standup/keeper/internal/participant"
	"standup/keeper/internal/timetrack"
)

// ParticipantView is the read-only per-participant row for the presentation
// layer. UsedSeconds includes the open interval, if any.
type ParticipantView struct {
	Name             string  `json:"name"`
	State            string  `json:"state"`
	UsedSeconds      float64 `json:"used_seconds"`
	AllocatedSeconds float64 `json:"allocated_seconds"`
	SpokenLines      int     `json:"spoken_lines"`
}

type Snapshot struct {
	CurrentSpeaker string            `json:"current_speaker,omitempty"`
	Status         string            `json:"status"`
	Caption        string            `json:"caption,omitempty"`
	Participants   []ParticipantView `json:"participants"`
}

// Snapshot returns a consistent read-only view of all participants.
func (s *Scheduler) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	snap := Snapshot{CurrentSpeaker: s.current, Status: s.status, Caption: s.caption}
	for _, p := range s.roster.All() {
		snap.Participants = append(snap.Participants, ParticipantView{
			Name:             p.Name,
			State:            p.State.String(),
			UsedSeconds:      timetrack.Effective(p, now),
			AllocatedSeconds: p.AllocatedSeconds,
			SpokenLines:      len(p.SpokenLines),
		})
	}
	return snap
}

// Transcripts returns each participant's spoken lines in registration order,
// for the end-of-meeting report.
func (s *Scheduler) Transcripts() map[string][]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string][]string)
	for _, p := range s.roster.All() {
		lines := make([]string, len(p.SpokenLines))
		copy(lines, p.SpokenLines)
		out[p.Name] = lines
	}
	return out
}

// singleFloor reports whether at most one participant is SPEAKING.
// Exposed for tests via Snapshot; kept here to state the invariant.
func singleFloor(views []ParticipantView) bool {
	speaking := 0
	for _, v := range views {
		if v.State == participant.Speaking.String() {
			speaking++
		}
	}
	return speaking <= 1
}
