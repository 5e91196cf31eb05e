// Package events publishes transaction lifecycle events to Kafka so
// downstream ERP modules (order entry, billing, warehouse) can react to
// exchanges without polling the API.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/sedge/pkg/models"
	"github.com/Ramsey-B/sedge/pkg/tracing"
)

// EventType names a transaction lifecycle event.
type EventType string

const (
	EventTransactionCreated      EventType = "edi.transaction.created"
	EventTransactionCompleted    EventType = "edi.transaction.completed"
	EventTransactionFailed       EventType = "edi.transaction.failed"
	EventTransactionAcknowledged EventType = "edi.transaction.acknowledged"
)

// TransactionEvent is the published payload.
type TransactionEvent struct {
	Type              EventType                `json:"type"`
	TenantID          string                   `json:"tenant_id"`
	TransactionID     string                   `json:"transaction_id"`
	TransactionNumber string                   `json:"transaction_number"`
	PartnerID         string                   `json:"partner_id"`
	DocumentType      models.DocumentType      `json:"document_type"`
	Direction         models.Direction         `json:"direction"`
	Status            models.TransactionStatus `json:"status"`
	ErrorMessage      string                   `json:"error_message,omitempty"`
	TraceID           string                   `json:"trace_id,omitempty"`
	Timestamp         time.Time                `json:"timestamp"`
}

// Publisher is what the exchange service depends on; NoopPublisher stands
// in when Kafka is disabled.
type Publisher interface {
	PublishTransactionEvent(ctx context.Context, event TransactionEvent)
}

// Config holds Kafka producer configuration.
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// Producer publishes transaction events to one topic, keyed by tenant and
// partner for partition affinity.
type Producer struct {
	writer *kafka.Writer
	topic  string
	logger ectologger.Logger
}

func NewProducer(cfg Config, logger ectologger.Logger) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 100 * time.Millisecond
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		Async:                  true,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	return &Producer{writer: writer, topic: cfg.Topic, logger: logger}, nil
}

// PublishTransactionEvent publishes fire-and-forget: a broker outage must
// never fail the exchange that triggered the event.
func (p *Producer) PublishTransactionEvent(ctx context.Context, event TransactionEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.TraceID == "" {
		event.TraceID = tracing.GetTraceID(ctx)
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.WithContext(ctx).WithError(err).Errorf("Failed to serialize %s event", event.Type)
		return
	}

	msg := kafka.Message{
		Key:   []byte(fmt.Sprintf("%s:%s", event.TenantID, event.PartnerID)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "tenant_id", Value: []byte(event.TenantID)},
		},
		Time: event.Timestamp,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).
			WithField("transaction_id", event.TransactionID).
			Errorf("Failed to publish %s event", event.Type)
	}
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops events; used when Kafka is not configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishTransactionEvent(context.Context, TransactionEvent) {}
