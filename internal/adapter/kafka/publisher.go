// Package kafka publishes audit events to the events topic. The publisher is
// optional: a nil *Publisher is safe to call and does nothing.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/danbi-studio/disaster-sim-service/internal/config"
	"github.com/danbi-studio/disaster-sim-service/internal/domain"
)

// Event type header values.
const (
	EventScenarioTurn = "scenario_turn"
	EventSafetyGuide  = "safety_guide"
)

// Publisher produces audit records to the configured Kafka topic.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the audit topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaEventsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishScenarioTurn records a completed scenario turn, keyed by scenario
// title so turns of one run land on the same partition in order.
func (p *Publisher) PublishScenarioTurn(ctx context.Context, audit domain.TurnAudit) error {
	if p == nil {
		return nil
	}
	msg, err := serializeToMessage(audit.ScenarioTitle, EventScenarioTurn, audit.GeneratedAt, audit)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// PublishSafetyGuide records an issued safety guide, keyed by station code.
func (p *Publisher) PublishSafetyGuide(ctx context.Context, audit domain.GuideAudit) error {
	if p == nil {
		return nil
	}
	msg, err := serializeToMessage(audit.ObsCode, EventSafetyGuide, audit.GeneratedAt, audit)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}

// serializeToMessage marshals an audit record into a Kafka message.
func serializeToMessage(key, eventType string, generatedAt time.Time, record any) (kafkago.Message, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize %s audit: %w", eventType, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "generated_at", Value: []byte(generatedAt.Format(time.RFC3339))},
		},
	}, nil
}
