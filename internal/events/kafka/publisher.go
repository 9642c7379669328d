package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/mamadbah2/foodstation/internal/events"
)

// DefaultTopic receives ledger record changes.
const DefaultTopic = "ledger.record_changed"

// Publisher writes ledger events to Kafka, keyed by pipeline so a partition
// sees one pipeline's changes in order.
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher builds a publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
	}
}

var _ events.Publisher = (*Publisher)(nil)

// Publish encodes the events as JSON and writes them in one batch.
func (p *Publisher) Publish(ctx context.Context, evts ...events.RecordChanged) error {
	if len(evts) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(evts))
	for _, e := range evts {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode ledger event: %w", err)
		}
		msgs = append(msgs, kafka.Message{Key: []byte(e.Pipeline), Value: data})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write ledger events: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
