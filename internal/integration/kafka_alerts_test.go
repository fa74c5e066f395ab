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

	"github.com/gridsight/consumption-analyzer/internal/adapter/kafka"
	"github.com/gridsight/consumption-analyzer/internal/config"
	"github.com/gridsight/consumption-analyzer/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testAlertsTopic = "test-consumption-risk-alerts"

// startKafka launches a single-node Kafka container and returns its broker
// address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("test-cluster"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err, "resolve kafka brokers")
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a topic on the container's controller broker.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()

	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err, "dial broker")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "resolve controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err, "dial controller")
	defer controllerConn.Close()

	require.NoError(t, controllerConn.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// receivedAlert is a deserialized message read back from the alerts topic.
type receivedAlert struct {
	Flag    domain.RiskFlag
	Key     string
	Headers map[string]string
}

func readAlert(ctx context.Context, t *testing.T, consumer *kafkago.Reader) receivedAlert {
	t.Helper()
	readCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from alerts topic")

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	var flag domain.RiskFlag
	require.NoError(t, json.Unmarshal(msg.Value, &flag), "unmarshal alert message")

	return receivedAlert{Flag: flag, Key: string(msg.Key), Headers: headers}
}

// TestAlertPublisherRoundTrip verifies that risk flags published through the
// adapter arrive on the alerts topic with the expected key, headers, and
// payload.
func TestAlertPublisherRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertsTopic)

	cfg := &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaAlertsTopic: testAlertsTopic,
	}

	publisher := kafka.NewAlertPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	peakHour := 18
	flags := []domain.RiskFlag{
		{
			City:     "City1",
			District: "101",
			Date:     "2025-09-10",
			Kind:     domain.RiskThresholdViolation,
			Severity: 0.2,
			Level:    domain.LevelLow,
		},
		{
			City:     "City1",
			District: "101",
			Date:     "2025-09-10",
			Hour:     &peakHour,
			Kind:     domain.RiskCriticalHourPeak,
			Severity: 0.45,
			Level:    domain.LevelMedium,
		},
	}

	const runID = "run-integration-1"
	require.NoError(t, publisher.PublishFlags(ctx, runID, flags))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAlertsTopic,
		GroupID:     fmt.Sprintf("test-alerts-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	first := readAlert(ctx, t, consumer)
	assert.Equal(t, "City1|101|2025-09-10", first.Key)
	assert.Equal(t, string(domain.RiskThresholdViolation), first.Headers["kind"])
	assert.Equal(t, domain.LevelLow, first.Headers["level"])
	assert.Equal(t, runID, first.Headers["run_id"])
	assert.Equal(t, flags[0], first.Flag)

	second := readAlert(ctx, t, consumer)
	assert.Equal(t, "City1|101|2025-09-10", second.Key)
	assert.Equal(t, string(domain.RiskCriticalHourPeak), second.Headers["kind"])
	assert.Equal(t, domain.LevelMedium, second.Headers["level"])
	require.NotNil(t, second.Flag.Hour)
	assert.Equal(t, peakHour, *second.Flag.Hour)
	assert.Equal(t, 0.45, second.Flag.Severity)
}

// TestAlertPublisherEmptyRun verifies that a run with no flags publishes
// nothing and does not error.
func TestAlertPublisherEmptyRun(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)
	createTopic(t, broker, testAlertsTopic)

	cfg := &config.Config{
		KafkaBrokers:     []string{broker},
		KafkaAlertsTopic: testAlertsTopic,
	}

	publisher := kafka.NewAlertPublisher(cfg, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	require.NoError(t, publisher.PublishFlags(ctx, "run-empty", nil))

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAlertsTopic,
		GroupID:     fmt.Sprintf("test-empty-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 5*time.Second)
	_, err := consumer.ReadMessage(readCtx)
	readCancel()
	assert.Error(t, err, "expected no message on alerts topic")
}
