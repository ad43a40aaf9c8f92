// Package kafka publishes employee lifecycle events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	skafka "github.com/segmentio/kafka-go"

	"github.com/aryan0dhankhar/onboardhr/internal/domain"
)

// Writer is the subset of kafka.Writer the publisher needs
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// Publisher writes lifecycle events keyed by employee id so one employee's
// events stay ordered within a partition
type Publisher struct {
	writer  Writer
	timeout time.Duration
	logger  *slog.Logger
}

// flushInterval bounds how long a write waits for its batch to fill. Writes are
// synchronous, so the wait is paid by the request that published the event.
const flushInterval = 10 * time.Millisecond

// NewPublisher creates a publisher writing to topic on brokers
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	return NewPublisherWithWriter(newWriter(brokers, topic), logger)
}

func newWriter(brokers []string, topic string) *skafka.Writer {
	return &skafka.Writer{
		Addr:                   skafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &skafka.Hash{},
		RequiredAcks:           skafka.RequireOne,
		BatchTimeout:           flushInterval,
		AllowAutoTopicCreation: true,
	}
}

// NewPublisherWithWriter allows injecting a test writer
func NewPublisherWithWriter(w Writer, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{writer: w, timeout: 5 * time.Second, logger: logger}
}

// Publish implements domain.EventPublisher
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := skafka.Message{
		Key:   []byte(event.EmployeeID),
		Value: value,
		Time:  event.At,
		Headers: []skafka.Header{
			{Key: "type", Value: []byte(event.Type)},
			{Key: "organization_id", Value: []byte(event.OrganizationID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("kafka write failed",
			slog.String("type", string(event.Type)),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close flushes and closes the writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
