// Package publish ships finished shipment estimates to a Kafka topic so
// downstream pipelines can consume them without re-running the engine.
package publish

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/rshade/freightfocus/internal/engine"
	"github.com/rshade/freightfocus/internal/logging"
)

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// Sentinel errors for publisher construction, comparable with errors.Is().
const (
	// ErrNoBrokers indicates publishing was requested without any broker
	// addresses configured.
	ErrNoBrokers = constError("no kafka brokers configured")

	// ErrNoTopic indicates publishing was requested without a topic.
	ErrNoTopic = constError("no kafka topic configured")
)

// Writer is the subset of kafka.Writer the publisher needs, split out so
// tests can capture messages without a broker.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Options configure a Publisher.
type Options struct {
	// Brokers lists Kafka bootstrap addresses (host:port).
	Brokers []string

	// Topic receives one event per shipment result.
	Topic string
}

// Event is the envelope published for one shipment estimate. EventID is
// unique per message; RunID groups the events of one batch run.
type Event struct {
	EventID string                `json:"event_id"`
	RunID   string                `json:"run_id"`
	Result  engine.ShipmentResult `json:"result"`
}

// Publisher writes shipment estimate events to Kafka. The underlying
// writer connects lazily on first publish.
type Publisher struct {
	writer Writer
	topic  string
}

// New builds a Publisher from options.
func New(opts Options) (*Publisher, error) {
	if len(opts.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if opts.Topic == "" {
		return nil, ErrNoTopic
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(opts.Brokers...),
		Topic:    opts.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &Publisher{writer: writer, topic: opts.Topic}, nil
}

// NewWithWriter builds a Publisher around an existing writer. Tests use
// this to capture messages in memory.
func NewWithWriter(w Writer, topic string) *Publisher {
	return &Publisher{writer: w, topic: topic}
}

// PublishBatch publishes one event per shipment result in a single write.
// Messages are keyed by shipment reference so events for the same shipment
// land on the same partition in order.
func (p *Publisher) PublishBatch(ctx context.Context, batch *engine.BatchResult) error {
	if batch == nil || len(batch.Results) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(batch.Results))
	for _, result := range batch.Results {
		event := Event{
			EventID: uuid.NewString(),
			RunID:   batch.RunID,
			Result:  result,
		}
		value, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("encoding event for %s: %w", result.Reference, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(result.Reference),
			Value: value,
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publishing %d events to %s: %w", len(msgs), p.topic, err)
	}

	logging.FromContext(ctx).Debug().
		Ctx(ctx).
		Str("component", "publish").
		Str("operation", "publish_batch").
		Str("topic", p.topic).
		Str("run_id", batch.RunID).
		Int("events", len(msgs)).
		Msg("published shipment results")
	return nil
}

// Close flushes buffered messages and releases the connection.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
