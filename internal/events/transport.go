package events

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
)

// Transport delivers an encoded event to a topic. For AMQP the topic is the
// routing key on the events exchange.
type Transport interface {
	Publish(ctx context.Context, topic, key string, body []byte) error
	Close() error
}

func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	return conn, nil
}

// AMQPTransport publishes to the events exchange. It owns conn and closes it
// on Close.
type AMQPTransport struct {
	conn *amqp.Connection

	mu sync.Mutex
	ch *amqp.Channel
}

func NewAMQPTransport(conn *amqp.Connection) (*AMQPTransport, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	return &AMQPTransport{conn: conn, ch: ch}, nil
}

func (t *AMQPTransport) Publish(ctx context.Context, topic, key string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      amqp.Table{"partitionKey": key},
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
}

func (t *AMQPTransport) Close() error {
	chErr := t.ch.Close()
	if err := t.conn.Close(); err != nil {
		return err
	}
	return chErr
}

// KafkaTransport keeps one writer per topic. Messages are keyed by partition
// key so events sharing a key stay ordered on one partition.
type KafkaTransport struct {
	brokers []string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

func NewKafkaTransport(brokers []string) (*KafkaTransport, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka: no brokers configured")
	}
	return &KafkaTransport{brokers: brokers, writers: map[string]*kafka.Writer{}}, nil
}

func (t *KafkaTransport) writer(topic string) *kafka.Writer {
	t.mu.Lock()
	defer t.mu.Unlock()
	if w, ok := t.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(t.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	t.writers[topic] = w
	return w
}

func (t *KafkaTransport) Publish(ctx context.Context, topic, key string, body []byte) error {
	return t.writer(topic).WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: body,
		Time:  time.Now().UTC(),
	})
}

func (t *KafkaTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	var firstErr error
	for topic, w := range t.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close writer %s: %w", topic, err)
		}
	}
	t.writers = map[string]*kafka.Writer{}
	return firstErr
}

// LogTransport writes events to the logger instead of a broker.
type LogTransport struct {
	Logger *log.Logger
}

func (t LogTransport) Publish(_ context.Context, topic, key string, body []byte) error {
	t.Logger.Printf("event topic=%s key=%s body=%s", topic, key, body)
	return nil
}

func (LogTransport) Close() error { return nil }
