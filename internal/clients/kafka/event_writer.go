package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	types "github.com/yungbote/songcatalog-backend/internal/domain"
	"github.com/yungbote/songcatalog-backend/internal/platform/envutil"
	"github.com/yungbote/songcatalog-backend/internal/platform/logger"
)

type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

func ConfigFromEnv() Config {
	topic := strings.TrimSpace(os.Getenv("KAFKA_TOPIC"))
	if topic == "" {
		topic = "song_analysis"
	}
	return Config{
		Brokers:      envutil.List("KAFKA_BROKERS"),
		Topic:        topic,
		BatchTimeout: time.Duration(envutil.Int("KAFKA_BATCH_TIMEOUT_MS", 50)) * time.Millisecond,
	}
}

// EventWriter publishes analysis events keyed by analysis id, so every change
// to one analysis lands on the same partition in order.
type EventWriter struct {
	log *logger.Logger
	w   *kafka.Writer
}

func NewEventWriter(log *logger.Logger, cfg Config) (*EventWriter, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("missing KAFKA_BROKERS")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("missing KAFKA_TOPIC")
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &EventWriter{log: log.With("client", "KafkaEventWriter"), w: w}, nil
}

func (e *EventWriter) Publish(ctx context.Context, ev types.AnalysisEvent) error {
	if e == nil || e.w == nil {
		return fmt.Errorf("kafka event writer not initialized")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return e.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.AnalysisID),
		Value: raw,
		Time:  ev.At,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(ev.Action)},
			{Key: "study_id", Value: []byte(ev.StudyID)},
		},
	})
}

func (e *EventWriter) Close() error {
	if e == nil || e.w == nil {
		return nil
	}
	return e.w.Close()
}
