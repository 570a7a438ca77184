// Package report builds the read-only end-of-meeting summary.
package report

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"standup/keeper/internal/scheduler"
)

// Scorer rates how on-topic a participant's transcript was, in [0,1].
// Invoked only at meeting end; never consulted for scheduling.
type Scorer interface {
	Score(ctx context.Context, transcript []string) (float64, error)
}

// CoverageScorer is a stand-in for the embedding service: a smooth function
// of transcript length that stays in [0,1).
type CoverageScorer struct{}

func (CoverageScorer) Score(_ context.Context, transcript []string) (float64, error) {
	words := 0
	for _, line := range transcript {
		words += len(strings.Fields(line))
	}
	return float64(words) / (float64(words) + 40), nil
}

type ParticipantReport struct {
	Name             string   `json:"name"`
	State            string   `json:"state"`
	UsedSeconds      float64  `json:"used_seconds"`
	AllocatedSeconds float64  `json:"allocated_seconds"`
	Transcript       []string `json:"transcript,omitempty"`
	SimilarityScore  float64  `json:"similarity_score"`
}

type Summary struct {
	MeetingID    string              `json:"meeting_id"`
	StartedAt    time.Time           `json:"started_at"`
	EndedAt      time.Time           `json:"ended_at"`
	Participants []ParticipantReport `json:"participants"`
}

// Build assembles the summary from the final snapshot and transcripts.
// Scoring failures degrade to 0 and are logged; the summary still completes.
func Build(ctx context.Context, meetingID string, startedAt, endedAt time.Time, snap scheduler.Snapshot, transcripts map[string][]string, scorer Scorer) Summary {
	sum := Summary{MeetingID: meetingID, StartedAt: startedAt, EndedAt: endedAt}
	for _, v := range snap.Participants {
		lines := transcripts[v.Name]
		score := 0.0
		if scorer != nil {
			var err error
			score, err = scorer.Score(ctx, lines)
			if err != nil {
				log.Error().Err(err).Str("participant", v.Name).Msg("similarity scoring failed")
				score = 0
			}
		}
		sum.Participants = append(sum.Participants, ParticipantReport{
			Name:             v.Name,
			State:            v.State,
			UsedSeconds:      v.UsedSeconds,
			AllocatedSeconds: v.AllocatedSeconds,
			Transcript:       lines,
			SimilarityScore:  score,
		})
	}
	return sum
}
