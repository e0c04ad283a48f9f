//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	kafkaadapter "github.com/perihelion-labs/neo-watch/internal/adapter/kafka"
	"github.com/perihelion-labs/neo-watch/internal/adapter/store"
	"github.com/perihelion-labs/neo-watch/internal/config"
	"github.com/perihelion-labs/neo-watch/internal/domain"
	"github.com/perihelion-labs/neo-watch/internal/observability"
	"github.com/perihelion-labs/neo-watch/internal/pipeline"
)

const testAlertsTopic = "test-neo-risk-alerts"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node Kafka container and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"))
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkago.Dial("tcp",
		net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

type publishedAlert struct {
	Record  domain.RiskRecord
	Key     string
	Headers map[string]string
}

func readAlert(ctx context.Context, t *testing.T, consumer *kafkago.Reader) publishedAlert {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from alerts topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var rec domain.RiskRecord
	require.NoError(t, json.Unmarshal(msg.Value, &rec), "unmarshal alert")

	return publishedAlert{Record: rec, Key: string(msg.Key), Headers: headers}
}

// TestPersistRisksPublishesAlerts wires the pipeline against real Kafka and
// verifies that a classify-and-persist run publishes exactly the HIGH and
// CRITICAL records to the alerts topic.
func TestPersistRisksPublishesAlerts(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertsTopic)

	db, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	objects := store.NewObjectStore(db)
	risks, err := store.NewRiskStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = risks.Close() })

	// Seed: one object per tier.
	require.NoError(t, objects.Upsert(domain.Observation{
		NeoID: "low", Name: "small rock", DiameterKM: 0.05, VelocityKMS: 5,
	})) // 11.0 LOW
	require.NoError(t, objects.Upsert(domain.Observation{
		NeoID: "high", Name: "fast rock", DiameterKM: 0.5, VelocityKMS: 20,
	})) // 59.0 HIGH
	require.NoError(t, objects.Upsert(domain.Observation{
		NeoID: "crit", Name: "big rock", DiameterKM: 1.2, VelocityKMS: 25, Hazardous: true,
	})) // 127.0 CRITICAL

	cfg := &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaAlertsTopic: testAlertsTopic,
	}
	writer := kafkaadapter.NewWriter(cfg, discardLogger())
	t.Cleanup(func() { _ = writer.Close() })

	p := pipeline.New(nil, objects, risks, writer,
		discardLogger(), observability.NewMetricsForTesting())

	result, err := p.PersistRisks(ctx, pipeline.ModeAppend)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Saved)

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAlertsTopic,
		GroupID:     fmt.Sprintf("test-alerts-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	received := map[string]publishedAlert{}
	for len(received) < 2 {
		alert := readAlert(ctx, t, consumer)
		received[alert.Record.NeoID] = alert
	}

	require.Contains(t, received, "high")
	require.Contains(t, received, "crit")
	assert.NotContains(t, received, "low", "LOW records must never be published")

	high := received["high"]
	assert.Equal(t, "high", high.Key, "messages are keyed by NeoWs id")
	assert.Equal(t, string(domain.TierHigh), high.Headers["risk_level"])
	assert.Equal(t, 59.0, high.Record.Score)

	crit := received["crit"]
	assert.Equal(t, string(domain.TierCritical), crit.Headers["risk_level"])
	_, err = time.Parse(time.RFC3339, crit.Headers["classified_at"])
	assert.NoError(t, err, "classified_at header should be RFC3339")

	// No further message should arrive: LOW stays out of the topic.
	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err = consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected exactly two alerts on the topic")
}
