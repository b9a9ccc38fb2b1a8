package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SequenceSource hands out the next number for a named counter.
type SequenceSource interface {
	Next(ctx context.Context, name string) (int64, error)
}

type Publisher struct {
	transport Transport
	seq       SequenceSource
	producer  string
	now       func() time.Time
}

type PublisherOptions struct {
	Producer string
}

func NewPublisher(transport Transport, seq SequenceSource, opts PublisherOptions) *Publisher {
	producer := opts.Producer
	if producer == "" {
		producer = checkoutServiceName
	}
	return &Publisher{
		transport: transport,
		seq:       seq,
		producer:  producer,
		now:       time.Now,
	}
}

func (p *Publisher) Close() error {
	return p.transport.Close()
}

func (p *Publisher) PublishOrderConfirmationRequested(ctx context.Context, meta EventMeta, payload OrderConfirmationRequestedPayload) error {
	seq, err := p.nextSequence(ctx, meta.PartitionKey)
	if err != nil {
		return err
	}
	env := newEnvelope(meta, seq, p.producer, EventTypeOrderConfirmationRequested, orderConfirmationRequestedSchema, payload, p.now().UTC())
	return p.publish(ctx, OrderConfirmationRequestedRoutingKey, env.PartitionKey, env)
}

func (p *Publisher) PublishDealerNotificationRequested(ctx context.Context, meta EventMeta, payload DealerNotificationRequestedPayload) error {
	seq, err := p.nextSequence(ctx, meta.PartitionKey)
	if err != nil {
		return err
	}
	env := newEnvelope(meta, seq, p.producer, EventTypeDealerNotificationRequested, dealerNotificationRequestedSchema, payload, p.now().UTC())
	return p.publish(ctx, DealerNotificationRequestedRoutingKey, env.PartitionKey, env)
}

func (p *Publisher) nextSequence(ctx context.Context, partitionKey string) (int64, error) {
	if partitionKey == "" {
		return 0, fmt.Errorf("missing partition key")
	}
	seq, err := p.seq.Next(ctx, SequenceName(partitionKey))
	if err != nil {
		return 0, fmt.Errorf("reserve sequence: %w", err)
	}
	return seq, nil
}

func (p *Publisher) publish(ctx context.Context, routingKey, key string, env any) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", routingKey, err)
	}
	if err := p.transport.Publish(ctx, routingKey, key, body); err != nil {
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

// SequenceName namespaces per-partition event counters in the shared
// sequence_counter table.
func SequenceName(partitionKey string) string {
	return "event:" + partitionKey
}

func newEnvelope[T any](meta EventMeta, seq int64, producer, name, schema string, payload T, occurredAt time.Time) EventEnvelope[T] {
	eventID := meta.EventID
	if eventID == "" {
		eventID = uuid.NewString()
	}
	return EventEnvelope[T]{
		EventName:     name,
		EventVersion:  1,
		EventID:       eventID,
		CorrelationID: meta.CorrelationID,
		CausationID:   meta.CausationID,
		Producer:      producer,
		PartitionKey:  meta.PartitionKey,
		Sequence:      &seq,
		OccurredAt:    occurredAt,
		Schema:        schema,
		Payload:       payload,
	}
}
