package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends schedule notifications. Callers treat failures as
// non-fatal.
type Publisher interface {
	PublishEventsScheduled(ctx context.Context, msg EventsScheduled) error
}

// NewPublisher returns an AMQP publisher for url, or a no-op publisher when
// url is empty.
func NewPublisher(url string) Publisher {
	if url == "" {
		return NoopPublisher{}
	}
	return &AMQPPublisher{url: url}
}

type NoopPublisher struct{}

func (NoopPublisher) PublishEventsScheduled(context.Context, EventsScheduled) error { return nil }

// AMQPPublisher dials the broker per message.
type AMQPPublisher struct {
	url string
}

func (p *AMQPPublisher) PublishEventsScheduled(ctx context.Context, msg EventsScheduled) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := declareQueue(ch); err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", ScheduledQueueName, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func declareQueue(ch *amqp.Channel) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(ScheduledQueueName, true, false, false, false, nil)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("queue declare: %w", err)
	}
	return q, nil
}
