// Package kafka publishes risk alerts to a Kafka topic so downstream
// consumers (dashboards, pagers) see flagged district-days without polling
// the report files.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gridsight/consumption-analyzer/internal/config"
	"github.com/gridsight/consumption-analyzer/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// AlertPublisher produces risk-flag messages to the alerts topic.
// It implements pipeline.AlertPublisher.
type AlertPublisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewAlertPublisher creates a Kafka producer for the configured alerts topic.
func NewAlertPublisher(cfg *config.Config, logger *slog.Logger) *AlertPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaAlertsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &AlertPublisher{writer: w, logger: logger}
}

// PublishFlags serializes and publishes all of a run's risk flags in a single
// WriteMessages call. Messages are keyed by district-day so alerts for the
// same district land on the same partition in order.
func (p *AlertPublisher) PublishFlags(ctx context.Context, runID string, flags []domain.RiskFlag) error {
	if len(flags) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(flags))
	for i := range flags {
		msg, err := flagToMessage(runID, flags[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

func (p *AlertPublisher) Close() error {
	return p.writer.Close()
}

// flagToMessage marshals a RiskFlag into a Kafka message.
func flagToMessage(runID string, flag domain.RiskFlag) (kafkago.Message, error) {
	data, err := json.Marshal(flag)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize risk flag: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(fmt.Sprintf("%s|%s|%s", flag.City, flag.District, flag.Date)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(flag.Kind)},
			{Key: "level", Value: []byte(flag.Level)},
			{Key: "run_id", Value: []byte(runID)},
		},
	}, nil
}
