// Package ingest turns raw recognized utterances into queued commands or
// transcript lines. The recognition source gives no ordering or dedup
// guarantees; anything unparseable with no active speaker is discarded.
package ingest

import (
	"strings"

	"github.com/rs/zerolog/log"

	"standup/keeper/internal/queue"
)

// Floor is the slice of the scheduler the ingestor needs.
type Floor interface {
	IsKnown(name string) bool
	CurrentSpeaker() string
	AppendTranscript(name, line string) bool
	SetCaption(text string)
}

type Ingestor struct {
	floor   Floor
	q       *queue.Queue
	phrases []string
}

// DefaultCompletionPhrases end a turn when spoken by the floor holder.
var DefaultCompletionPhrases = []string{
	"done", "that's it", "finished", "i'm done", "i am done", "that's all",
}

func New(floor Floor, q *queue.Queue, completionPhrases []string) *Ingestor {
	if len(completionPhrases) == 0 {
		completionPhrases = DefaultCompletionPhrases
	}
	return &Ingestor{floor: floor, q: q, phrases: completionPhrases}
}

// Ingest applies the deterministic parse to one utterance.
func (i *Ingestor) Ingest(text string) {
	norm := strings.ToLower(strings.TrimSpace(text))
	if norm == "" {
		return
	}
	metricUtterances.Inc()
	i.floor.SetCaption(norm)

	if action, name, ok := parseCommand(norm, i.floor.IsKnown); ok {
		metricCommandsParsed.WithLabelValues(string(action)).Inc()
		i.q.Enqueue(queue.Command{Action: action, Participant: name, Source: "recognizer"})
		return
	}

	speaker := i.floor.CurrentSpeaker()
	if speaker == "" {
		// Unmatched text with nobody on the floor; not an error.
		metricDiscarded.Inc()
		log.Debug().Str("text", norm).Msg("utterance discarded, no active speaker")
		return
	}

	i.floor.AppendTranscript(speaker, norm)
	if i.isCompletion(norm) {
		metricCommandsParsed.WithLabelValues("stop").Inc()
		log.Info().Str("participant", speaker).Msg("completion phrase, implicit stop")
		i.q.Enqueue(queue.Command{Action: queue.ActionStop, Participant: speaker, Source: "phrase"})
	}
}

// parseCommand matches "start alice" / "alice stop" style utterances: a
// start/stop verb at either end, the rest joined as the participant name.
func parseCommand(norm string, known func(string) bool) (queue.Action, string, bool) {
	words := strings.Fields(norm)
	if len(words) < 2 {
		return "", "", false
	}

	if action, ok := verb(words[0]); ok {
		if name := strings.Join(words[1:], " "); known(name) {
			return action, name, true
		}
	}
	if action, ok := verb(words[len(words)-1]); ok {
		if name := strings.Join(words[:len(words)-1], " "); known(name) {
			return action, name, true
		}
	}
	return "", "", false
}

func verb(w string) (queue.Action, bool) {
	switch w {
	case "start":
		return queue.ActionStart, true
	case "stop":
		return queue.ActionStop, true
	}
	return "", false
}

func (i *Ingestor) isCompletion(norm string) bool {
	for _, p := range i.phrases {
		if strings.Contains(norm, p) {
			return true
		}
	}
	return false
}
