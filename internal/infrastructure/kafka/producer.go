package kafka

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cassiomorais/paygate/internal/domain/outbox"
	"github.com/cassiomorais/paygate/pkg/retry"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

// Config configures the bus producer. SSL/username/password are optional;
// an empty Username disables SASL entirely.
type Config struct {
	Brokers  []string
	ClientID string
	SSL      bool
	Username string
	Password string
}

var routingTable = map[outbox.EventType]string{
	outbox.EventPaymentCompleted: "payment.completed",
	outbox.EventPaymentFailed:    "payment.failed",
	outbox.EventPaymentCancelled: "payment.cancelled",
}

// TopicFor returns the topic an outbox event type routes to, or false if
// the event type has no registered route.
func TopicFor(eventType outbox.EventType) (string, bool) {
	topic, ok := routingTable[eventType]
	return topic, ok
}

// Producer wraps a kafka.Writer with the topic-routing and connect-retry
// discipline the outbox publisher needs: WriteMessages blocks until every
// broker in the ISR has acked (RequiredAcks: kafka.RequireAll).
type Producer struct {
	writer *kafka.Writer
}

// Connect dials the first broker, retrying at a fixed 750ms interval for
// up to 30s, before handing back a Producer, so a bus outage at process
// start does not crash-loop the worker.
func Connect(ctx context.Context, cfg Config) (*Producer, error) {
	var transport *kafka.Transport
	if cfg.SSL || cfg.Username != "" {
		transport = &kafka.Transport{TLS: &tls.Config{MinVersion: tls.VersionTLS12}}
		if cfg.Username != "" {
			transport.SASL = plain.Mechanism{Username: cfg.Username, Password: cfg.Password}
		}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireAll,
		Transport:    transport,
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	connectRetry := retry.Config{
		MaxAttempts:  0, // retry until connectCtx is done
		InitialDelay: 750 * time.Millisecond,
		MaxDelay:     750 * time.Millisecond,
		Multiplier:   1,
	}
	err := retry.Do(connectCtx, connectRetry, func() error {
		dialCtx, dialCancel := context.WithTimeout(connectCtx, 5*time.Second)
		defer dialCancel()
		conn, dialErr := kafka.DialContext(dialCtx, "tcp", cfg.Brokers[0])
		if dialErr != nil {
			return dialErr
		}
		return conn.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("connect to kafka brokers %v: %w", cfg.Brokers, err)
	}

	return &Producer{writer: writer}, nil
}

// PublishRecord marshals the outbox record's payload and writes it to the
// event type's routed topic, keyed by aggregate id for per-payment
// ordering within a partition.
func (p *Producer) PublishRecord(ctx context.Context, record *outbox.Record) error {
	topic, ok := TopicFor(record.EventType)
	if !ok {
		return fmt.Errorf("no topic route for event type %q", record.EventType)
	}

	value, err := json.Marshal(record.Payload)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(record.AggregateID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "messageId", Value: []byte(uuid.New().String())},
			{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
			{Key: "eventType", Value: []byte(record.EventType)},
			{Key: "eventVersion", Value: []byte("1.0")},
			{Key: "source", Value: []byte("payment-service")},
			{Key: "correlationId", Value: []byte(record.AggregateID.String())},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return p.writer.WriteMessages(writeCtx, msg)
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
