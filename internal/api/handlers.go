package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"standup/keeper/internal/events"
	"standup/keeper/internal/ingest"
	"standup/keeper/internal/meeting"
	"standup/keeper/internal/participant"
)

type Handlers struct {
	meeting *meeting.Meeting
	ing     *ingest.Ingestor
	audit   *events.Log
}

func NewHandlers(m *meeting.Meeting, ing *ingest.Ingestor, audit *events.Log) *Handlers {
	return &Handlers{meeting: m, ing: ing, audit: audit}
}

type addParticipantRequest struct {
	Name             string  `json:"name"`
	AllocatedMinutes float64 `json:"allocated_minutes"`
}

func (h *Handlers) HandleAddParticipant(w http.ResponseWriter, r *http.Request) {
	var req addParticipantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	// Operators think in minutes; the engine tracks seconds.
	if err := h.meeting.AddParticipant(req.Name, req.AllocatedMinutes*60); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "name": participant.Normalize(req.Name)})
}

func (h *Handlers) HandleRemoveParticipant(w http.ResponseWriter, r *http.Request, name string) {
	if err := h.meeting.RemoveParticipant(name); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (h *Handlers) HandleStartMeeting(w http.ResponseWriter, r *http.Request) {
	if err := h.meeting.StartMeeting(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "meeting_id": h.meeting.ID()})
}

func (h *Handlers) HandleEndMeeting(w http.ResponseWriter, r *http.Request) {
	sum, err := h.meeting.EndMeeting()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, sum)
}

func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.meeting.Status())
}

func (h *Handlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sum := h.meeting.Summary()
	if sum == nil {
		http.Error(w, "summary not available until the meeting ends", http.StatusNotFound)
		return
	}
	writeJSON(w, sum)
}

func (h *Handlers) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"meeting_id": h.meeting.ID(),
		"events":     h.audit.List(),
	})
}

type utteranceRequest struct {
	Text string `json:"text"`
}

// HandleUtterance is the plain-HTTP alternative to the recognizer websocket.
func (h *Handlers) HandleUtterance(w http.ResponseWriter, r *http.Request) {
	var req utteranceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	h.ing.Ingest(req.Text)
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, participant.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, participant.ErrDuplicateParticipant),
		errors.Is(err, participant.ErrParticipantBusy),
		errors.Is(err, meeting.ErrMeetingActive),
		errors.Is(err, meeting.ErrMeetingEnded),
		errors.Is(err, meeting.ErrMeetingNotActive):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, participant.ErrInvalidAllocation),
		errors.Is(err, participant.ErrInvalidName),
		errors.Is(err, meeting.ErrNoParticipants):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
