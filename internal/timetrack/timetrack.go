// Package timetrack computes speaking time from participant records.
// All functions are pure over the passed-in record.
package timetrack

import (
	"time"

	"standup/keeper/internal/participant"
)

// Effective returns used time plus the currently open interval, if any.
func Effective(p *participant.Participant, now time.Time) float64 {
	used := p.UsedSeconds
	if p.SpeakingSince != nil {
		used += now.Sub(*p.SpeakingSince).Seconds()
	}
	return used
}

// CloseInterval folds the open interval into UsedSeconds and clears
// SpeakingSince. Idempotent when no interval is open. Returns the folded
// seconds.
func CloseInterval(p *participant.Participant, now time.Time) float64 {
	if p.SpeakingSince == nil {
		return 0
	}
	elapsed := now.Sub(*p.SpeakingSince).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	p.UsedSeconds += elapsed
	p.SpeakingSince = nil
	return elapsed
}

// OpenInterval marks now as the start of a new speaking interval.
func OpenInterval(p *participant.Participant, now time.Time) {
	t := now
	p.SpeakingSince = &t
}
