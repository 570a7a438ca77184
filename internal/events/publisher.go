package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// Publisher exports audit events to a Kafka topic. Disabled publishers run
// in log-only mode; delivery is best-effort and never affects scheduling.
type Publisher struct {
	writer  *kafka.Writer
	topic   string
	enabled bool
}

type PublisherConfig struct {
	Brokers []string
	Topic   string
	Enabled bool
}

func NewPublisher(cfg PublisherConfig) *Publisher {
	if !cfg.Enabled || len(cfg.Brokers) == 0 {
		log.Info().Msg("kafka export disabled, audit events stay in memory")
		return &Publisher{topic: cfg.Topic}
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		Async:        true,
	}
	log.Info().Strs("brokers", cfg.Brokers).Str("topic", cfg.Topic).Msg("kafka export enabled")
	return &Publisher{writer: w, topic: cfg.Topic, enabled: true}
}

// Publish sends one event. Failures are logged and swallowed.
func (p *Publisher) Publish(evt Event) {
	if !p.enabled {
		return
	}
	b, err := json.Marshal(evt)
	if err != nil {
		log.Error().Err(err).Str("type", evt.Type).Msg("marshal audit event")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.Type),
		Value: b,
		Time:  evt.Ts,
	}); err != nil {
		log.Error().Err(err).Str("type", evt.Type).Msg("publish audit event")
	}
}

func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
