package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Handler processes one decoded notification.
type Handler func(ctx context.Context, msg EventsScheduled) error

// LogHandler writes each notification to logger.
func LogHandler(logger zerolog.Logger) Handler {
	return func(_ context.Context, msg EventsScheduled) error {
		arr := zerolog.Arr()
		for _, e := range msg.Events {
			arr = arr.Dict(zerolog.Dict().
				Uint("id", e.ID).
				Int("day_of_week", e.DayOfWeek).
				Time("start_time", e.StartTime).
				Time("end_time", e.EndTime))
		}
		logger.Info().
			Uint("place_id", msg.PlaceID).
			Str("place", msg.PlaceName).
			Uint("activity_id", msg.ActivityID).
			Str("activity", msg.ActivityName).
			Bool("rescheduled", msg.Rescheduled).
			Uint("scheduled_by", msg.ScheduledBy).
			Array("events", arr).
			Msg("Events scheduled")
		return nil
	}
}

// Consume reads notifications until ctx is cancelled, reconnecting with
// exponential backoff (capped at 30s) when the broker goes away.
func Consume(ctx context.Context, url string, logger zerolog.Logger, handle Handler) error {
	if url == "" {
		return errors.New("RABBITMQ_URL is not set")
	}

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warn().Err(err).Dur("retry_in", backoff).Msg("Failed to dial broker")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, logger, handle)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn().Err(err).Msg("Consume loop ended, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logger zerolog.Logger, handle Handler) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(20, 0, false); err != nil {
		logger.Warn().Err(err).Msg("Failed to set QoS")
	}
	if _, err := declareQueue(ch); err != nil {
		return err
	}

	deliveries, err := ch.Consume(ScheduledQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleDelivery(ctx, d.Body, handle); err != nil {
				logger.Error().Err(err).Msg("Failed to handle message")
				// Do not requeue: a malformed message would loop forever.
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleDelivery(ctx context.Context, body []byte, handle Handler) error {
	var msg EventsScheduled
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return handle(ctx, msg)
}
