package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/domain"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/notify"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/store"
	"github.com/dreamscape-events/dreamscape/pkg/idx"
	"github.com/dreamscape-events/dreamscape/pkg/slogx"
)

// EventService runs the event lifecycle: creation, organizer-only edits,
// status changes and RSVPs. Reads always return the derived status.
type EventService struct {
	Store    store.Store
	Notifier notify.Publisher // optional

	// Now defaults to time.Now.
	Now func() time.Time
}

// UserRef is the public part of a user shown inside events.
type UserRef struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
}

type AttendeeView struct {
	User   UserRef
	Status domain.RSVPStatus
}

// EventView is an event with organizer and attendees resolved to users.
// Event.Status holds the derived status.
type EventView struct {
	domain.Event
	Organizer UserRef
	People    []AttendeeView
}

type CreateEventParams struct {
	Title       string
	Description string
	Datetime    string
	Location    string
	EventType   string
}

// Create stores a published event owned by callerID, who attends it.
func (s *EventService) Create(ctx context.Context, callerID string, p CreateEventParams) (EventView, error) {
	log := slogx.FromContext(ctx)

	var missing []string
	if strings.TrimSpace(p.Title) == "" {
		missing = append(missing, "Title is required")
	}
	if strings.TrimSpace(p.Datetime) == "" {
		missing = append(missing, "Datetime is required")
	}
	if len(missing) > 0 {
		return EventView{}, invalid("Missing required fields", missing...)
	}

	when, err := ParseDatetime(p.Datetime)
	if err != nil {
		return EventView{}, invalid("Invalid datetime")
	}
	eventType, err := parseEventType(p.EventType)
	if err != nil {
		return EventView{}, err
	}

	e := domain.NewEvent(idx.New().String(), callerID, domain.NewEventParams{
		Title:       strings.TrimSpace(p.Title),
		Description: p.Description,
		Datetime:    when,
		Location:    strings.TrimSpace(p.Location),
		EventType:   eventType,
	}, s.now())

	if err := s.Store.Events().CreateEvent(ctx, e); err != nil {
		return EventView{}, internal(fmt.Errorf("create event: %w", err))
	}

	log.Info("event created", slog.String("event_id", e.ID))
	s.publish(ctx, notify.NewMessage(notify.TopicEventCreated, e.ID, callerID))

	return s.populateOne(ctx, e)
}

type ListEventsParams struct {
	Status      string
	OrganizerID string
}

// List returns events newest first. A status filter applies to the derived
// status, so an elapsed published event is listed as completed. A status no
// event can have matches nothing.
func (s *EventService) List(ctx context.Context, p ListEventsParams) ([]EventView, error) {
	filter := store.EventFilter{OrganizerID: strings.TrimSpace(p.OrganizerID)}

	want := domain.Status(strings.TrimSpace(p.Status))
	if want != "" {
		if !want.Valid() {
			return []EventView{}, nil
		}
		filter.Statuses = []domain.Status{want}
		if want == domain.StatusCompleted {
			filter.Statuses = append(filter.Statuses, domain.StatusPublished)
		}
	}

	events, err := s.Store.Events().ListEvents(ctx, filter)
	if err != nil {
		return nil, internal(fmt.Errorf("list events: %w", err))
	}

	now := s.now()
	out := events[:0]
	for _, e := range events {
		e = s.reconcile(ctx, e, now)
		if want != "" && e.Status != want {
			continue
		}
		out = append(out, e)
	}

	return s.populate(ctx, out)
}

// Get returns one event.
func (s *EventService) Get(ctx context.Context, id string) (EventView, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return EventView{}, err
	}
	return s.populateOne(ctx, s.reconcile(ctx, e, s.now()))
}

type UpdateEventParams struct {
	Title       *string
	Description *string
	Datetime    *string
	Location    *string
	EventType   *string
}

// Update changes the given fields. Only the organizer may update.
func (s *EventService) Update(ctx context.Context, callerID, id string, p UpdateEventParams) (EventView, error) {
	if _, err := s.RequireOrganizer(ctx, callerID, id); err != nil {
		return EventView{}, err
	}

	u := store.EventUpdate{
		Description: p.Description,
		UpdatedAt:   s.now(),
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return EventView{}, invalid("Title is required")
		}
		u.Title = &title
	}
	if p.Datetime != nil {
		when, err := ParseDatetime(*p.Datetime)
		if err != nil {
			return EventView{}, invalid("Invalid datetime")
		}
		u.Datetime = &when
	}
	if p.Location != nil {
		loc := strings.TrimSpace(*p.Location)
		u.Location = &loc
	}
	if p.EventType != nil {
		t, err := parseEventType(*p.EventType)
		if err != nil {
			return EventView{}, err
		}
		u.EventType = &t
	}

	e, err := s.Store.Events().UpdateEvent(ctx, id, u)
	if err != nil {
		return EventView{}, s.mapEventErr(err)
	}

	slogx.FromContext(ctx).Info("event updated", slog.String("event_id", id))
	s.publish(ctx, notify.NewMessage(notify.TopicEventUpdated, id, callerID))

	return s.populateOne(ctx, s.reconcile(ctx, e, s.now()))
}

// Delete removes an event. Only the organizer may delete.
func (s *EventService) Delete(ctx context.Context, callerID, id string) error {
	if _, err := s.RequireOrganizer(ctx, callerID, id); err != nil {
		return err
	}

	if err := s.Store.Events().DeleteEvent(ctx, id); err != nil {
		return s.mapEventErr(err)
	}

	slogx.FromContext(ctx).Info("event deleted", slog.String("event_id", id))
	s.publish(ctx, notify.NewMessage(notify.TopicEventDeleted, id, callerID))
	return nil
}

// SetStatus stores any of the four statuses. Only the organizer may change
// the status, and that is checked before the requested value.
func (s *EventService) SetStatus(ctx context.Context, callerID, id, status string) (EventView, error) {
	if _, err := s.RequireOrganizer(ctx, callerID, id); err != nil {
		return EventView{}, err
	}

	st := domain.Status(strings.TrimSpace(status))
	if !st.Valid() {
		return EventView{}, invalid("Invalid status")
	}

	e, err := s.Store.Events().SetStatus(ctx, id, st, s.now())
	if err != nil {
		return EventView{}, s.mapEventErr(err)
	}

	slogx.FromContext(ctx).Info("event status changed",
		slog.String("event_id", id),
		slog.String("status", string(st)),
	)
	msg := notify.NewMessage(notify.TopicEventStatusChanged, id, callerID)
	msg.Status = string(st)
	s.publish(ctx, msg)

	return s.populateOne(ctx, s.reconcile(ctx, e, s.now()))
}

// RSVP records the caller's attendance intent. Declining removes the
// caller from the attendee list.
func (s *EventService) RSVP(ctx context.Context, callerID, id, status string) (EventView, error) {
	rs := domain.RSVPStatus(strings.TrimSpace(status))
	if !rs.Valid() {
		return EventView{}, invalid("Invalid RSVP status")
	}

	e, err := s.Store.Events().ApplyRSVP(ctx, id, callerID, rs, s.now())
	if err != nil {
		return EventView{}, s.mapEventErr(err)
	}

	slogx.FromContext(ctx).Info("rsvp recorded",
		slog.String("event_id", id),
		slog.String("rsvp", string(rs)),
	)
	msg := notify.NewMessage(notify.TopicEventRSVPChanged, id, callerID)
	msg.RSVP = string(rs)
	s.publish(ctx, msg)

	return s.populateOne(ctx, s.reconcile(ctx, e, s.now()))
}

// RequireOrganizer loads an event and fails with Forbidden unless callerID
// organizes it.
func (s *EventService) RequireOrganizer(ctx context.Context, callerID, id string) (domain.Event, error) {
	e, err := s.load(ctx, id)
	if err != nil {
		return domain.Event{}, err
	}
	if !e.IsOrganizer(callerID) {
		slogx.FromContext(ctx).Warn("non-organizer attempted to modify event", slog.String("event_id", id))
		return domain.Event{}, forbidden("Only the organizer can modify this event")
	}
	return e, nil
}

func (s *EventService) load(ctx context.Context, id string) (domain.Event, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Event{}, notFound("Event not found")
	}
	e, err := s.Store.Events().GetEvent(ctx, id)
	if err != nil {
		return domain.Event{}, s.mapEventErr(err)
	}
	return e, nil
}

// reconcile returns e with its derived status and persists the correction
// when the stored status is stale. The write is conditional on the status we
// read, so a concurrent status change wins over it. A failed write is only
// logged.
func (s *EventService) reconcile(ctx context.Context, e domain.Event, now time.Time) domain.Event {
	derived := e.DerivedStatus(now)
	if derived == e.Status {
		return e
	}

	err := s.Store.Events().CompareAndSetStatus(ctx, e.ID, e.Status, derived)
	if err != nil && !errors.Is(err, store.ErrConflict) {
		slogx.FromContext(ctx).Warn("status correction failed",
			slog.String("event_id", e.ID),
			slog.String("from", string(e.Status)),
			slog.String("to", string(derived)),
			slog.Any("error", err),
		)
	}

	e.Status = derived
	return e
}

func (s *EventService) populateOne(ctx context.Context, e domain.Event) (EventView, error) {
	views, err := s.populate(ctx, []domain.Event{e})
	if err != nil {
		return EventView{}, err
	}
	return views[0], nil
}

// populate resolves organizers and attendees with one user lookup.
func (s *EventService) populate(ctx context.Context, events []domain.Event) ([]EventView, error) {
	var ids []string
	for _, e := range events {
		ids = append(ids, e.OrganizerID)
		for _, a := range e.Attendees {
			ids = append(ids, a.UserID)
		}
	}
	slices.Sort(ids)
	ids = slices.Compact(ids)

	users := map[string]UserRef{}
	if len(ids) > 0 {
		found, err := s.Store.Users().GetUsersByIDs(ctx, ids)
		if err != nil {
			return nil, internal(fmt.Errorf("resolve users: %w", err))
		}
		for _, u := range found {
			users[u.ID] = UserRef{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
		}
	}
	ref := func(id string) UserRef {
		if u, ok := users[id]; ok {
			return u
		}
		return UserRef{ID: id}
	}

	views := make([]EventView, 0, len(events))
	for _, e := range events {
		v := EventView{Event: e, Organizer: ref(e.OrganizerID)}
		v.People = make([]AttendeeView, 0, len(e.Attendees))
		for _, a := range e.Attendees {
			v.People = append(v.People, AttendeeView{User: ref(a.UserID), Status: a.Status})
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *EventService) mapEventErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound("Event not found")
	}
	return internal(err)
}

func (s *EventService) publish(ctx context.Context, m notify.Message) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Publish(ctx, m); err != nil {
		slogx.FromContext(ctx).Warn("notification publish failed",
			slog.String("topic", string(m.Topic)),
			slog.String("event_id", m.EventID),
			slog.Any("error", err),
		)
	}
}

func (s *EventService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// datetimeLayouts are tried in order. Layouts without a zone are UTC.
var datetimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseDatetime parses an event datetime as an absolute instant.
func ParseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range datetimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised datetime %q", s)
}

func parseEventType(s string) (domain.EventType, error) {
	t := domain.EventType(strings.TrimSpace(s))
	if t != "" && !t.Valid() {
		return "", invalid("Invalid event type")
	}
	return t, nil
}
