package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Port      string
		LogLevel  string
		LogFormat string
	}
	Meeting struct {
		PollIntervalMs    int
		QueueCapacity     int
		JoinTimeoutSecs   int
		CompletionPhrases []string
	}
	Source struct {
		TokenSecret   string
		TokenSkewSecs int
	}
	Announce struct {
		WebhookURL string
	}
	Kafka struct {
		Brokers []string
		Topic   string
		Enabled bool
	}
}

func Load() Config {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "console")

	v.SetDefault("meeting.poll_interval_ms", 1000)
	v.SetDefault("meeting.queue_capacity", 64)
	v.SetDefault("meeting.join_timeout_secs", 5)
	v.SetDefault("meeting.completion_phrases", "done,that's it,finished,i'm done,i am done,that's all")

	v.SetDefault("source.token_skew_secs", 60)

	v.SetDefault("kafka.topic", "meeting-events")
	v.SetDefault("kafka.enabled", false)

	// Map envs
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.log_level", "LOG_LEVEL")
	v.BindEnv("server.log_format", "LOG_FORMAT")

	v.BindEnv("meeting.poll_interval_ms", "MEETING_POLL_INTERVAL_MS")
	v.BindEnv("meeting.queue_capacity", "MEETING_QUEUE_CAPACITY")
	v.BindEnv("meeting.join_timeout_secs", "MEETING_JOIN_TIMEOUT_SECS")
	v.BindEnv("meeting.completion_phrases", "MEETING_COMPLETION_PHRASES")

	v.BindEnv("source.token_secret", "SOURCE_TOKEN_SECRET")
	v.BindEnv("source.token_skew_secs", "SOURCE_TOKEN_SKEW_SECS")

	v.BindEnv("announce.webhook_url", "ANNOUNCE_WEBHOOK_URL")

	v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	v.BindEnv("kafka.topic", "KAFKA_TOPIC")
	v.BindEnv("kafka.enabled", "KAFKA_ENABLED")

	var c Config
	c.Server.Port = toString(v.Get("server.port"))
	c.Server.LogLevel = v.GetString("server.log_level")
	c.Server.LogFormat = v.GetString("server.log_format")

	c.Meeting.PollIntervalMs = v.GetInt("meeting.poll_interval_ms")
	c.Meeting.QueueCapacity = v.GetInt("meeting.queue_capacity")
	c.Meeting.JoinTimeoutSecs = v.GetInt("meeting.join_timeout_secs")
	c.Meeting.CompletionPhrases = splitList(v.GetString("meeting.completion_phrases"))

	c.Source.TokenSecret = v.GetString("source.token_secret")
	c.Source.TokenSkewSecs = v.GetInt("source.token_skew_secs")

	c.Announce.WebhookURL = v.GetString("announce.webhook_url")

	c.Kafka.Brokers = splitList(v.GetString("kafka.brokers"))
	c.Kafka.Topic = v.GetString("kafka.topic")
	c.Kafka.Enabled = v.GetBool("kafka.enabled")

	return c
}

func toString(v any) string { return fmt.Sprint(v) }

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
