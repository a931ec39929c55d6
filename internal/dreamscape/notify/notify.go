// Package notify fans event lifecycle changes out to other systems.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Topic is the routing key of a notification.
type Topic string

const (
	TopicEventCreated       Topic = "event.created"
	TopicEventUpdated       Topic = "event.updated"
	TopicEventDeleted       Topic = "event.deleted"
	TopicEventStatusChanged Topic = "event.status_changed"
	TopicEventRSVPChanged   Topic = "event.rsvp_changed"
)

// Message is the JSON body published for every topic. Fields that do not
// apply to a topic are omitted.
type Message struct {
	ID         string    `json:"id"`
	Topic      Topic     `json:"topic"`
	EventID    string    `json:"eventId"`
	ActorID    string    `json:"actorId"`
	Status     string    `json:"status,omitempty"`
	RSVP       string    `json:"rsvp,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// NewMessage stamps a message with a fresh id and the current time.
func NewMessage(topic Topic, eventID, actorID string) Message {
	return Message{
		ID:         uuid.NewString(),
		Topic:      topic,
		EventID:    eventID,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers messages. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, m Message) error
	Close() error
}

// LogPublisher writes messages to a logger. It is the fallback when no
// broker is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p *LogPublisher) Publish(ctx context.Context, m Message) error {
	p.Logger.DebugContext(ctx, "notification",
		slog.String("id", m.ID),
		slog.String("topic", string(m.Topic)),
		slog.String("event_id", m.EventID),
		slog.String("actor_id", m.ActorID),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }
