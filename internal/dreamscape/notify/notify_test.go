package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	m := NewMessage(TopicEventRSVPChanged, "evt", "usr")

	_, err := uuid.Parse(m.ID)
	require.NoError(t, err)
	require.Equal(t, TopicEventRSVPChanged, m.Topic)
	require.False(t, m.OccurredAt.IsZero())

	other := NewMessage(TopicEventRSVPChanged, "evt", "usr")
	require.NotEqual(t, m.ID, other.ID)
}

func TestPublishing(t *testing.T) {
	m := NewMessage(TopicEventStatusChanged, "evt", "usr")
	m.Status = "cancelled"

	body, err := json.Marshal(m)
	require.NoError(t, err)

	p := publishing(m, body)
	require.Equal(t, m.ID, p.MessageId)
	require.Equal(t, "event.status_changed", p.Type)
	require.Equal(t, amqp.Persistent, p.DeliveryMode)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(p.Body, &decoded))
	require.Equal(t, "cancelled", decoded["status"])
	require.Equal(t, "evt", decoded["eventId"])
	require.NotContains(t, decoded, "rsvp")
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := &LogPublisher{Logger: slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}

	require.NoError(t, p.Publish(context.Background(), NewMessage(TopicEventCreated, "evt", "usr")))
	require.Contains(t, buf.String(), `"topic":"event.created"`)
	require.NoError(t, p.Close())
}
