package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Writer appends JSON records to a Kafka topic. Records sharing a key land on
// the same partition, preserving their relative order.
type Writer struct {
	writer  *kafka.Writer
	timeout time.Duration
}

// Config holds Kafka producer configuration
type Config struct {
	Brokers []string
	Topic   string
	Timeout time.Duration
}

// NewWriter creates a producer. Connections are opened lazily on first write.
func NewWriter(cfg Config) *Writer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	return &Writer{writer: w, timeout: timeout}
}

// Publish writes one record
func (w *Writer) Publish(ctx context.Context, key, recordType string, at time.Time, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s record: %w", recordType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	return w.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: b,
		Time:  at,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(recordType)},
		},
	})
}

// Close flushes pending messages
func (w *Writer) Close() error {
	if w.writer == nil {
		return nil
	}
	return w.writer.Close()
}
