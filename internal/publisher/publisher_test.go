package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/outage-watch/internal/domain/outage"
)

// recordingWriter keeps every message it was asked to write.
type recordingWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.err != nil {
		return w.err
	}

	w.messages = append(w.messages, msgs...)

	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true

	return nil
}

// TestKafkaPublisher_MessageShape checks the key and the JSON value of a message.
func TestKafkaPublisher_MessageShape(t *testing.T) {
	t.Parallel()

	writer := new(recordingWriter)
	publisher := newKafkaPublisher(writer, time.Second)

	recordedAt := time.Date(2024, time.June, 1, 10, 0, 0, 0, time.UTC)
	event := outage.NewEvent(outage.EventOff, "09:30", recordedAt)

	err := publisher.Publish(t.Context(), Record{CycleID: "c-1", Address: "Street 1", Event: event})
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	msg := writer.messages[0]
	require.Equal(t, []byte("Street 1"), msg.Key)
	require.Equal(t, recordedAt, msg.Time)

	var value map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &value))
	require.Equal(t, "c-1", value["cycle_id"])
	require.Equal(t, "Street 1", value["address"])
	require.Equal(t, "off", value["kind"])
	require.Equal(t, "09:30:00", value["at"])
	require.Equal(t, "2024-06-01T09:30:00Z", value["since"])
	require.Equal(t, "2024-06-01T10:00:00Z", value["recorded_at"])

	require.NoError(t, publisher.Close())
	require.True(t, writer.closed)
}

// TestKafkaPublisher_Empty ensures nothing is written for an empty batch.
func TestKafkaPublisher_Empty(t *testing.T) {
	t.Parallel()

	writer := &recordingWriter{err: errors.New("must not be called")}
	require.NoError(t, newKafkaPublisher(writer, time.Second).Publish(t.Context()))
}

// TestKafkaPublisher_WriteError verifies that writer failures are returned.
func TestKafkaPublisher_WriteError(t *testing.T) {
	t.Parallel()

	writer := &recordingWriter{err: errors.New("broker down")}
	event := outage.NewEvent(outage.EventOn, "12:00", time.Now())

	err := newKafkaPublisher(writer, time.Second).Publish(t.Context(), Record{Address: "a", Event: event})
	require.ErrorIs(t, err, writer.err)
}

// TestNewKafkaPublisher_Validates checks required settings.
func TestNewKafkaPublisher_Validates(t *testing.T) {
	t.Parallel()

	_, err := NewKafkaPublisher([]string{"localhost:9092"}, " ", time.Second)
	require.ErrorIs(t, err, errTopicRequired)

	_, err = NewKafkaPublisher(nil, "outages", time.Second)
	require.ErrorIs(t, err, errBrokersRequired)

	publisher, err := NewKafkaPublisher([]string{"localhost:9092"}, "outages", time.Second)
	require.NoError(t, err)
	require.NoError(t, publisher.Close())
}
