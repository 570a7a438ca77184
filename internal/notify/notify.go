// Package notify is the announcement sink boundary. Delivery is best-effort:
// failures are logged and never affect scheduling.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

type Announcer interface {
	Announce(ctx context.Context, text string) error
}

// LogAnnouncer writes announcements to the log. Default sink.
type LogAnnouncer struct{}

func (LogAnnouncer) Announce(_ context.Context, text string) error {
	log.Info().Str("text", text).Msg("announcement")
	return nil
}

// WebhookAnnouncer posts the announcement text to an external TTS/playback
// endpoint.
type WebhookAnnouncer struct {
	url    string
	client *http.Client
}

func NewWebhook(url string) *WebhookAnnouncer {
	return &WebhookAnnouncer{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

func (a *WebhookAnnouncer) Announce(ctx context.Context, text string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, strings.NewReader(text))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/plain")
	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("announcement sink returned %d", resp.StatusCode)
	}
	return nil
}
