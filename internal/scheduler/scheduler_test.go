package scheduler

import (
	"errors"
	"testing"
	"time"

	"standup/keeper/internal/participant"
)

// fakeClock advances only when told to, for second-accurate assertions.
type fakeClock struct{ t time.Time }

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestScheduler(t *testing.T, names ...string) (*Scheduler, *fakeClock) {
	t.Helper()
	roster := participant.NewStore()
	s := New(roster, nil)
	clk := newFakeClock()
	s.now = clk.now
	for _, n := range names {
		if err := s.AddParticipant(n, 60); err != nil {
			t.Fatalf("add %s: %v", n, err)
		}
	}
	return s, clk
}

func speakingCount(s *Scheduler) int {
	n := 0
	for _, v := range s.Snapshot().Participants {
		if v.State == participant.Speaking.String() {
			n++
		}
	}
	return n
}

func TestStartGrantsFloor(t *testing.T) {
	s, _ := newTestScheduler(t, "alice")
	token, err := s.Start("alice")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if token == "" {
		t.Fatalf("expected interval token")
	}
	if s.CurrentSpeaker() != "alice" {
		t.Fatalf("expected alice to hold the floor, got %q", s.CurrentSpeaker())
	}
}

func TestStartWhileSpeakingIsInvalid(t *testing.T) {
	s, _ := newTestScheduler(t, "alice")
	if _, err := s.Start("alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := s.Start("alice"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}
}

func TestHandoffAtomicity(t *testing.T) {
	s, clk := newTestScheduler(t, "alice", "bob")
	if _, err := s.Start("alice"); err != nil {
		t.Fatalf("start alice: %v", err)
	}
	clk.advance(10 * time.Second)
	if _, err := s.Start("bob"); err != nil {
		t.Fatalf("start bob: %v", err)
	}

	snap := s.Snapshot()
	if !singleFloor(snap.Participants) {
		t.Fatalf("single floor violated: %#v", snap.Participants)
	}
	if snap.CurrentSpeaker != "bob" {
		t.Fatalf("expected bob speaking, got %q", snap.CurrentSpeaker)
	}
	for _, v := range snap.Participants {
		switch v.Name {
		case "alice":
			if v.State != "WAITING" || v.UsedSeconds != 10 {
				t.Fatalf("alice not closed out: %#v", v)
			}
		case "bob":
			if v.State != "SPEAKING" || v.UsedSeconds != 0 {
				t.Fatalf("bob interval not fresh: %#v", v)
			}
		}
	}
}

func TestStopIsIdempotentOnUsedTime(t *testing.T) {
	s, clk := newTestScheduler(t, "alice")
	if _, err := s.Start("alice"); err != nil {
		t.Fatalf("start: %v", err)
	}
	clk.advance(12 * time.Second)
	if err := s.Stop("alice"); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop("alice"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("second stop should be invalid, got %v", err)
	}
	v := s.Snapshot().Participants[0]
	if v.UsedSeconds != 12 {
		t.Fatalf("used time changed on double stop: %v", v.UsedSeconds)
	}
}

func TestStopUnknownParticipant(t *testing.T) {
	s, _ := newTestScheduler(t, "alice")
	if err := s.Stop("ghost"); !errors.Is(err, participant.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestForceExceedFiresOnce(t *testing.T) {
	s, clk := newTestScheduler(t, "alice")
	token, _ := s.Start("alice")
	clk.advance(65 * time.Second)

	used, ok := s.ForceExceed("alice", token)
	if !ok || used != 65 {
		t.Fatalf("expected exceed at 65s, got used=%v ok=%v", used, ok)
	}
	// Re-check after the transition must be a no-op.
	if _, ok := s.ForceExceed("alice", token); ok {
		t.Fatalf("forced exceed fired twice for one interval")
	}
}

func TestForceExceedStaleTokenIsNoop(t *testing.T) {
	s, clk := newTestScheduler(t, "alice", "bob")
	staleToken, _ := s.Start("alice")
	clk.advance(65 * time.Second)
	if _, err := s.Start("bob"); err != nil {
		t.Fatalf("handoff: %v", err)
	}

	// A leftover watcher for alice's interval must not touch bob's floor.
	if _, ok := s.ForceExceed("alice", staleToken); ok {
		t.Fatalf("stale watcher acted after handoff")
	}
	if _, ok := s.ForceExceed("bob", staleToken); ok {
		t.Fatalf("stale token accepted for new speaker")
	}
	if s.CurrentSpeaker() != "bob" {
		t.Fatalf("floor changed by stale exceed")
	}
}

func TestOvertimeAccruesAfterRelease(t *testing.T) {
	s, clk := newTestScheduler(t, "alice")
	token, _ := s.Start("alice")
	clk.advance(60 * time.Second)
	if _, ok := s.ForceExceed("alice", token); !ok {
		t.Fatalf("exceed rejected at budget")
	}
	if !s.Release("alice", token) {
		t.Fatalf("release rejected")
	}

	// The floor is free but alice's clock keeps running.
	clk.advance(5 * time.Second)
	snap := s.Snapshot()
	if snap.CurrentSpeaker != "" {
		t.Fatalf("floor not cleared after release")
	}
	v := snap.Participants[0]
	if v.State != "EXCEEDED" || v.UsedSeconds != 65 {
		t.Fatalf("expected EXCEEDED with 65s, got %#v", v)
	}

	if err := s.Stop("alice"); err != nil {
		t.Fatalf("stop from exceeded: %v", err)
	}
	v = s.Snapshot().Participants[0]
	if v.State != "WAITING" || v.UsedSeconds != 65 {
		t.Fatalf("expected 65s folded on stop, got %#v", v)
	}
}

func TestOvertimeSurvivesHandoffToNextSpeaker(t *testing.T) {
	s, clk := newTestScheduler(t, "alice", "bob")
	token, _ := s.Start("alice")
	clk.advance(60 * time.Second)
	s.ForceExceed("alice", token)
	s.Release("alice", token)

	name, _, ok := s.Advance()
	if !ok || name != "bob" {
		t.Fatalf("expected bob to take the floor, got %q ok=%v", name, ok)
	}
	clk.advance(5 * time.Second)

	for _, v := range s.Snapshot().Participants {
		switch v.Name {
		case "alice":
			if v.State != "EXCEEDED" || v.UsedSeconds != 65 {
				t.Fatalf("alice overtime frozen by handoff: %#v", v)
			}
		case "bob":
			if v.State != "SPEAKING" || v.UsedSeconds != 5 {
				t.Fatalf("bob interval wrong: %#v", v)
			}
		}
	}
}

func TestCloseMeetingFoldsAllOpenIntervals(t *testing.T) {
	s, clk := newTestScheduler(t, "alice", "bob")
	token, _ := s.Start("alice")
	clk.advance(60 * time.Second)
	s.ForceExceed("alice", token)
	s.Release("alice", token)
	s.Advance()
	clk.advance(5 * time.Second)

	s.CloseMeeting()
	clk.advance(30 * time.Second)

	snap := s.Snapshot()
	if snap.CurrentSpeaker != "" {
		t.Fatalf("floor not cleared at meeting end")
	}
	for _, v := range snap.Participants {
		switch v.Name {
		case "alice":
			if v.State != "EXCEEDED" || v.UsedSeconds != 65 {
				t.Fatalf("alice not folded at meeting end: %#v", v)
			}
		case "bob":
			if v.State != "WAITING" || v.UsedSeconds != 5 {
				t.Fatalf("bob not folded at meeting end: %#v", v)
			}
		}
	}
}

func TestStopFromExceededReturnsToWaiting(t *testing.T) {
	s, clk := newTestScheduler(t, "alice")
	token, _ := s.Start("alice")
	clk.advance(61 * time.Second)
	s.ForceExceed("alice", token)
	s.Release("alice", token)

	if err := s.Stop("alice"); err != nil {
		t.Fatalf("stop from exceeded: %v", err)
	}
	v := s.Snapshot().Participants[0]
	if v.State != "WAITING" || v.UsedSeconds != 61 {
		t.Fatalf("expected WAITING with 61s, got %#v", v)
	}
}

func TestAdvancePicksRegistrationOrder(t *testing.T) {
	s, _ := newTestScheduler(t, "zoe", "alice", "bob")
	name, token, ok := s.Advance()
	if !ok || name != "zoe" || token == "" {
		t.Fatalf("expected zoe first, got %q ok=%v", name, ok)
	}
	// zoe holds the floor; advance hands off to the next registered.
	name, _, ok = s.Advance()
	if !ok || name != "alice" {
		t.Fatalf("expected alice next, got %q ok=%v", name, ok)
	}
	if speakingCount(s) != 1 {
		t.Fatalf("single floor violated on advance")
	}
}

func TestAdvanceExhaustedRoster(t *testing.T) {
	s, clk := newTestScheduler(t, "alice")
	token, _ := s.Start("alice")
	clk.advance(61 * time.Second)
	s.ForceExceed("alice", token)
	s.Release("alice", token)

	if _, _, ok := s.Advance(); ok {
		t.Fatalf("advance should report nobody waiting")
	}
}

func TestObserveTracksInterval(t *testing.T) {
	s, clk := newTestScheduler(t, "alice")
	token, _ := s.Start("alice")
	clk.advance(20 * time.Second)

	eff, alloc, active := s.Observe("alice", token)
	if !active || eff != 20 || alloc != 60 {
		t.Fatalf("observe: eff=%v alloc=%v active=%v", eff, alloc, active)
	}
	s.Stop("alice")
	if _, _, active := s.Observe("alice", token); active {
		t.Fatalf("observe should report inactive after stop")
	}
}

func TestRemoveWhileSpeakingFails(t *testing.T) {
	s, _ := newTestScheduler(t, "bob")
	s.Start("bob")
	if err := s.RemoveParticipant("bob"); !errors.Is(err, participant.ErrParticipantBusy) {
		t.Fatalf("expected busy, got %v", err)
	}
	s.Stop("bob")
	if err := s.RemoveParticipant("bob"); err != nil {
		t.Fatalf("remove after stop: %v", err)
	}
}

func TestTranscriptAttribution(t *testing.T) {
	s, _ := newTestScheduler(t, "alice", "bob")
	s.Start("alice")
	if !s.AppendTranscript("alice", "first point") {
		t.Fatalf("append to floor holder rejected")
	}
	if s.AppendTranscript("bob", "interjection") {
		t.Fatalf("append to non-holder accepted")
	}
	lines := s.Transcripts()["alice"]
	if len(lines) != 1 || lines[0] != "first point" {
		t.Fatalf("unexpected transcript: %#v", lines)
	}
}
