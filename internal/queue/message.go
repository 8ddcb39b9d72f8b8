// Package queue carries schedule notifications over RabbitMQ.
package queue

import "time"

const ScheduledQueueName = "events.scheduled"

// EventsScheduled is published when events are created or rescheduled.
type EventsScheduled struct {
	PlaceID      uint             `json:"place_id"`
	PlaceName    string           `json:"place_name"`
	ActivityID   uint             `json:"activity_id"`
	ActivityName string           `json:"activity_name"`
	Rescheduled  bool             `json:"rescheduled"`
	Events       []ScheduledEvent `json:"events"`
	ScheduledBy  uint             `json:"scheduled_by"`
	ScheduledAt  time.Time        `json:"scheduled_at"`
}

type ScheduledEvent struct {
	ID        uint      `json:"id"`
	DayOfWeek int       `json:"day_of_week"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}
