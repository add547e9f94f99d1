package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/oshokin/outage-watch/internal/domain/outage"
)

// Record is one appended event with the cycle that produced it.
type Record struct {
	// CycleID correlates the record with the cycle logs.
	CycleID string
	// Address the event belongs to.
	Address string
	// Event is the appended event.
	Event outage.Event
}

// Publisher sends appended events to the feed.
type Publisher interface {
	Publish(ctx context.Context, records ...Record) error
	Close() error
}

// messageWriter is the part of *kafka.Writer the publisher needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var (
	// errTopicRequired is returned when the topic is empty.
	errTopicRequired = errors.New("kafka topic must not be empty")
	// errBrokersRequired is returned when no broker is configured.
	errBrokersRequired = errors.New("at least one kafka broker is required")
)

// KafkaPublisher writes records to a Kafka topic.
type KafkaPublisher struct {
	// writer delivers the messages.
	writer messageWriter
	// timeout bounds one Publish call.
	timeout time.Duration
}

// NewKafkaPublisher creates a publisher for topic on brokers.
func NewKafkaPublisher(brokers []string, topic string, timeout time.Duration) (*KafkaPublisher, error) {
	if strings.TrimSpace(topic) == "" {
		return nil, errTopicRequired
	}

	if len(brokers) == 0 {
		return nil, errBrokersRequired
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           timeout,
	}

	return newKafkaPublisher(writer, timeout), nil
}

// newKafkaPublisher wires an arbitrary writer. It is used in tests.
func newKafkaPublisher(writer messageWriter, timeout time.Duration) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  writer,
		timeout: timeout,
	}
}

// message is the JSON value of a feed message.
type message struct {
	CycleID    string    `json:"cycle_id"`
	Address    string    `json:"address"`
	Kind       string    `json:"kind"`
	At         string    `json:"at"`
	Since      time.Time `json:"since"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Publish writes the records in one batch.
func (p *KafkaPublisher) Publish(ctx context.Context, records ...Record) error {
	if len(records) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(records))

	for _, record := range records {
		value, err := json.Marshal(&message{
			CycleID:    record.CycleID,
			Address:    record.Address,
			Kind:       record.Event.Kind.String(),
			At:         record.Event.At,
			Since:      record.Event.Since,
			RecordedAt: record.Event.RecordedAt,
		})
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}

		msgs = append(msgs, kafka.Message{
			Key:   []byte(record.Address),
			Value: value,
			Time:  record.Event.RecordedAt,
		})
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d events: %w", len(msgs), err)
	}

	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every record.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, ...Record) error {
	return nil
}

// Close does nothing.
func (NopPublisher) Close() error {
	return nil
}
