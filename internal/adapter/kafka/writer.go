package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/perihelion-labs/neo-watch/internal/config"
	"github.com/perihelion-labs/neo-watch/internal/domain"
)

// Writer produces risk alerts to a Kafka topic.
// It implements pipeline.AlertPublisher.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured alerts topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishAlerts serializes and publishes multiple risk records to the alerts
// topic in a single WriteMessages call for efficiency.
func (w *Writer) PublishAlerts(ctx context.Context, records []domain.RiskRecord) error {
	if len(records) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(records))
	for i := range records {
		msg, err := serializeToMessage(records[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.writer.WriteMessages(ctx, msgs...)
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a RiskRecord into a Kafka message keyed by the
// NeoWs id, so re-classifications of the same object land on one partition.
func serializeToMessage(rec domain.RiskRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize risk record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.NeoID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "risk_level", Value: []byte(rec.Tier)},
			{Key: "classified_at", Value: []byte(rec.ClassifiedAt.Format(time.RFC3339))},
		},
	}, nil
}
