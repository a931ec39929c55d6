package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/domain"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/notify"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/service"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func (e *env) createEvent(t *testing.T, organizerID, title string, at time.Time) service.EventView {
	t.Helper()

	v, err := e.events.Create(context.Background(), organizerID, service.CreateEventParams{
		Title:     title,
		Datetime:  at.Format(time.RFC3339),
		Location:  "Main hall",
		EventType: "workshop",
	})
	require.NoError(t, err)
	return v
}

func attendeeStatuses(v service.EventView) map[string]domain.RSVPStatus {
	out := map[string]domain.RSVPStatus{}
	for _, a := range v.People {
		out[a.User.ID] = a.Status
	}
	return out
}

func TestCreateEvent(t *testing.T) {
	e := newEnv(t)
	a := e.signup(t, "Alice", "alice@example.com")

	v := e.createEvent(t, a.ID, "Launch party", e.clock.Now().Add(48*time.Hour))

	require.Equal(t, domain.StatusPublished, v.Status)
	require.Equal(t, a.ID, v.OrganizerID)
	require.Equal(t, service.UserRef{ID: a.ID, FirstName: "Alice", LastName: "Tester", Email: a.Email}, v.Organizer)
	require.Len(t, v.People, 1)
	require.Equal(t, a.ID, v.People[0].User.ID)
	require.Equal(t, domain.RSVPAttending, v.People[0].Status)
	require.Equal(t, domain.EventTypeWorkshop, v.EventType)
	require.Equal(t, []notify.Topic{notify.TopicEventCreated}, e.notes.topics())
}

func TestCreateEvent_Validation(t *testing.T) {
	e := newEnv(t)
	a := e.signup(t, "Alice", "alice@example.com")
	ctx := context.Background()

	_, err := e.events.Create(ctx, a.ID, service.CreateEventParams{})
	se := requireKind(t, err, service.KindValidation)
	require.Equal(t, []string{"Title is required", "Datetime is required"}, se.Details)

	_, err = e.events.Create(ctx, a.ID, service.CreateEventParams{Title: "x", Datetime: "next tuesday"})
	requireKind(t, err, service.KindValidation)

	_, err = e.events.Create(ctx, a.ID, service.CreateEventParams{Title: "x", Datetime: "2026-05-01T10:00", EventType: "party"})
	requireKind(t, err, service.KindValidation)

	v, err := e.events.Create(ctx, a.ID, service.CreateEventParams{Title: "x", Datetime: "2026-05-01T10:00"})
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC), v.Datetime)
	require.Empty(t, v.EventType)
}

func TestParseDatetime(t *testing.T) {
	for _, in := range []string{
		"2026-05-01T12:00:00Z",
		"2026-05-01T14:00:00+02:00",
		"2026-05-01T12:00:00.000Z",
		"2026-05-01T12:00:00",
		"2026-05-01T12:00",
	} {
		got, err := service.ParseDatetime(in)
		require.NoError(t, err, in)
		require.True(t, got.Equal(time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)), in)
	}

	_, err := service.ParseDatetime("01/05/2026")
	require.Error(t, err)
}

// Organizer A creates E, B says maybe then declines, A cancels, and the
// cancellation survives E's datetime passing.
func TestEventLifecycleScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.signup(t, "Alice", "alice@example.com")
	b := e.signup(t, "Bob", "bob@example.com")

	v := e.createEvent(t, a.ID, "Retro", e.clock.Now().Add(time.Hour))
	require.Equal(t, domain.StatusPublished, v.Status)
	require.Equal(t, map[string]domain.RSVPStatus{a.ID: domain.RSVPAttending}, attendeeStatuses(v))

	v, err := e.events.RSVP(ctx, b.ID, v.ID, "maybe")
	require.NoError(t, err)
	require.Equal(t, map[string]domain.RSVPStatus{a.ID: domain.RSVPAttending, b.ID: domain.RSVPMaybe}, attendeeStatuses(v))
	require.Equal(t, "Bob", v.People[1].User.FirstName)

	v, err = e.events.RSVP(ctx, b.ID, v.ID, "declined")
	require.NoError(t, err)
	require.Equal(t, map[string]domain.RSVPStatus{a.ID: domain.RSVPAttending}, attendeeStatuses(v))

	v, err = e.events.SetStatus(ctx, a.ID, v.ID, "cancelled")
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, v.Status)

	e.clock.Advance(2 * time.Hour)

	v, err = e.events.Get(ctx, v.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCancelled, v.Status)

	require.Equal(t, []notify.Topic{
		notify.TopicEventCreated,
		notify.TopicEventRSVPChanged,
		notify.TopicEventRSVPChanged,
		notify.TopicEventStatusChanged,
	}, e.notes.topics())
}

func TestRSVP(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.signup(t, "Alice", "alice@example.com")
	b := e.signup(t, "Bob", "bob@example.com")
	v := e.createEvent(t, a.ID, "Standup", e.clock.Now().Add(time.Hour))

	t.Run("invalid status", func(t *testing.T) {
		_, err := e.events.RSVP(ctx, b.ID, v.ID, "interested")
		se := requireKind(t, err, service.KindValidation)
		require.Equal(t, "Invalid RSVP status", se.Msg)
	})

	t.Run("missing event", func(t *testing.T) {
		_, err := e.events.RSVP(ctx, b.ID, "01J0000000000000000000000", "attending")
		requireKind(t, err, service.KindNotFound)
	})

	t.Run("declining twice is idempotent", func(t *testing.T) {
		first, err := e.events.RSVP(ctx, b.ID, v.ID, "declined")
		require.NoError(t, err)
		second, err := e.events.RSVP(ctx, b.ID, v.ID, "declined")
		require.NoError(t, err)
		require.Equal(t, attendeeStatuses(first), attendeeStatuses(second))
		require.Len(t, second.People, 1)
	})

	t.Run("re-rsvp overwrites in place", func(t *testing.T) {
		_, err := e.events.RSVP(ctx, b.ID, v.ID, "attending")
		require.NoError(t, err)
		got, err := e.events.RSVP(ctx, b.ID, v.ID, "maybe")
		require.NoError(t, err)
		require.Len(t, got.People, 2)
		require.Equal(t, domain.RSVPMaybe, attendeeStatuses(got)[b.ID])
	})

	t.Run("organizer can decline their own event", func(t *testing.T) {
		got, err := e.events.RSVP(ctx, a.ID, v.ID, "declined")
		require.NoError(t, err)
		require.NotContains(t, attendeeStatuses(got), a.ID)
		require.Equal(t, a.ID, got.Organizer.ID)
	})
}

func TestOrganizerOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.signup(t, "Alice", "alice@example.com")
	b := e.signup(t, "Bob", "bob@example.com")
	v := e.createEvent(t, a.ID, "Private", e.clock.Now().Add(time.Hour))

	// Valid and invalid payloads alike are refused.
	_, err := e.events.Update(ctx, b.ID, v.ID, service.UpdateEventParams{Title: ptr("Hijacked")})
	requireKind(t, err, service.KindForbidden)
	_, err = e.events.Update(ctx, b.ID, v.ID, service.UpdateEventParams{Title: ptr(""), Datetime: ptr("garbage")})
	requireKind(t, err, service.KindForbidden)

	_, err = e.events.SetStatus(ctx, b.ID, v.ID, "cancelled")
	requireKind(t, err, service.KindForbidden)
	_, err = e.events.SetStatus(ctx, b.ID, v.ID, "archived")
	requireKind(t, err, service.KindForbidden)

	err = e.events.Delete(ctx, b.ID, v.ID)
	requireKind(t, err, service.KindForbidden)

	got, err := e.events.Get(ctx, v.ID)
	require.NoError(t, err)
	require.Equal(t, "Private", got.Title)
	require.Equal(t, domain.StatusPublished, got.Status)

	// Missing events are reported before ownership.
	_, err = e.events.SetStatus(ctx, b.ID, "missing", "cancelled")
	requireKind(t, err, service.KindNotFound)
}

func TestUpdateEvent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.signup(t, "Alice", "alice@example.com")
	v := e.createEvent(t, a.ID, "Draft title", e.clock.Now().Add(time.Hour))

	e.clock.Advance(time.Minute)
	got, err := e.events.Update(ctx, a.ID, v.ID, service.UpdateEventParams{
		Title:     ptr("Final title"),
		Location:  ptr("Room 2"),
		EventType: ptr("meeting"),
	})
	require.NoError(t, err)
	require.Equal(t, "Final title", got.Title)
	require.Equal(t, "Room 2", got.Location)
	require.Equal(t, domain.EventTypeMeeting, got.EventType)
	require.Equal(t, v.Description, got.Description)
	require.True(t, got.UpdatedAt.After(v.UpdatedAt))
	require.Equal(t, a.ID, got.OrganizerID)

	_, err = e.events.Update(ctx, a.ID, v.ID, service.UpdateEventParams{Title: ptr("  ")})
	requireKind(t, err, service.KindValidation)
	_, err = e.events.Update(ctx, a.ID, v.ID, service.UpdateEventParams{Datetime: ptr("soon")})
	requireKind(t, err, service.KindValidation)
	_, err = e.events.Update(ctx, a.ID, v.ID, service.UpdateEventParams{EventType: ptr("rave")})
	requireKind(t, err, service.KindValidation)

	_, err = e.events.Update(ctx, a.ID, "missing", service.UpdateEventParams{})
	requireKind(t, err, service.KindNotFound)
}

func TestDeleteEvent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.signup(t, "Alice", "alice@example.com")
	v := e.createEvent(t, a.ID, "Short lived", e.clock.Now().Add(time.Hour))

	require.NoError(t, e.events.Delete(ctx, a.ID, v.ID))

	_, err := e.events.Get(ctx, v.ID)
	requireKind(t, err, service.KindNotFound)
	requireKind(t, e.events.Delete(ctx, a.ID, v.ID), service.KindNotFound)
	require.Contains(t, e.notes.topics(), notify.TopicEventDeleted)
}

func TestSetStatus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.signup(t, "Alice", "alice@example.com")
	v := e.createEvent(t, a.ID, "Planning", e.clock.Now().Add(time.Hour))

	_, err := e.events.SetStatus(ctx, a.ID, v.ID, "archived")
	se := requireKind(t, err, service.KindValidation)
	require.Equal(t, "Invalid status", se.Msg)

	for _, st := range []domain.Status{domain.StatusDraft, domain.StatusCompleted, domain.StatusPublished, domain.StatusCancelled} {
		got, err := e.events.SetStatus(ctx, a.ID, v.ID, string(st))
		require.NoError(t, err)
		require.Equal(t, st, got.Status)
	}
}

func TestListEvents_DerivesAndPersistsStatus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.signup(t, "Alice", "alice@example.com")
	b := e.signup(t, "Bob", "bob@example.com")

	now := e.clock.Now()
	past := e.createEvent(t, a.ID, "Yesterday", now.Add(-24*time.Hour))
	soon := e.createEvent(t, a.ID, "Soon", now.Add(time.Hour))
	later := e.createEvent(t, b.ID, "Later", now.Add(72*time.Hour))

	draft := e.createEvent(t, a.ID, "Old draft", now.Add(-48*time.Hour))
	_, err := e.events.SetStatus(ctx, a.ID, draft.ID, "draft")
	require.NoError(t, err)

	all, err := e.events.List(ctx, service.ListEventsParams{})
	require.NoError(t, err)
	require.Equal(t, []string{later.ID, soon.ID, past.ID, draft.ID}, ids(all))
	require.Equal(t, domain.StatusCompleted, all[2].Status)
	require.Equal(t, domain.StatusDraft, all[3].Status)

	stored, err := e.store.Events().GetEvent(ctx, past.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, stored.Status, "correction is persisted")

	completed, err := e.events.List(ctx, service.ListEventsParams{Status: "completed"})
	require.NoError(t, err)
	require.Equal(t, []string{past.ID}, ids(completed))

	// Time passes: Soon elapses without any write in between.
	e.clock.Advance(2 * time.Hour)

	published, err := e.events.List(ctx, service.ListEventsParams{Status: "published"})
	require.NoError(t, err)
	require.Equal(t, []string{later.ID}, ids(published))

	completed, err = e.events.List(ctx, service.ListEventsParams{Status: "completed"})
	require.NoError(t, err)
	require.Equal(t, []string{soon.ID, past.ID}, ids(completed))

	mine, err := e.events.List(ctx, service.ListEventsParams{OrganizerID: b.ID})
	require.NoError(t, err)
	require.Equal(t, []string{later.ID}, ids(mine))

	for _, status := range []string{"archived", "Published"} {
		none, err := e.events.List(ctx, service.ListEventsParams{Status: status})
		require.NoError(t, err, status)
		require.Empty(t, none, status)
	}
}

func TestNotificationFailureIsNotSurfaced(t *testing.T) {
	e := newEnv(t)
	e.notes.err = errors.New("broker down")
	a := e.signup(t, "Alice", "alice@example.com")

	v := e.createEvent(t, a.ID, "Still works", e.clock.Now().Add(time.Hour))
	require.NotEmpty(t, v.ID)
}

func ids(views []service.EventView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}
