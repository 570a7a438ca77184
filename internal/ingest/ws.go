package ingest

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	ws "nhooyr.io/websocket"

	"standup/keeper/internal/auth"
)

// Utterance is one websocket frame from the recognition source. Frames that
// fail to decode are treated as plain-text utterances; the producer makes no
// guarantees and the ingestor is the robust side of the boundary.
type Utterance struct {
	Type string `json:"type"`
	TsMs int64  `json:"ts_ms,omitempty"`
	Text string `json:"text"`
}

// WSServer accepts the recognizer's websocket stream.
type WSServer struct {
	ing         *Ingestor
	tokenSecret string
	tokenSkew   int
}

func NewWSServer(ing *Ingestor, tokenSecret string, tokenSkewSecs int) *WSServer {
	return &WSServer{ing: ing, tokenSecret: tokenSecret, tokenSkew: tokenSkewSecs}
}

func (s *WSServer) HandleRecognizerWS(w http.ResponseWriter, r *http.Request) {
	sourceID := r.URL.Query().Get("source_id")
	if sourceID == "" {
		http.Error(w, "missing source_id", http.StatusBadRequest)
		return
	}
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}
	if s.tokenSecret == "" {
		http.Error(w, "source auth not configured", http.StatusUnauthorized)
		return
	}
	token := strings.TrimPrefix(authz, "Bearer ")
	if _, err := auth.ValidateSourceToken(s.tokenSecret, token, sourceID, time.Now(), s.tokenSkew); err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	c, err := ws.Accept(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws accept")
		return
	}
	log.Info().Str("source", sourceID).Msg("recognizer connected")

	ctx := r.Context()
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			break
		}
		if typ != ws.MessageText && typ != ws.MessageBinary {
			continue
		}
		var u Utterance
		if err := json.Unmarshal(data, &u); err != nil || u.Text == "" {
			// Raw text frame from a simpler producer.
			s.ing.Ingest(string(data))
			continue
		}
		s.ing.Ingest(u.Text)
	}
	_ = c.Close(ws.StatusNormalClosure, "done")
	log.Info().Str("source", sourceID).Msg("recognizer disconnected")
}
