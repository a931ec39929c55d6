package domain

import "time"

// EventType categorises an event.
type EventType string

const (
	EventTypeConference EventType = "conference"
	EventTypeWorkshop   EventType = "workshop"
	EventTypeMeeting    EventType = "meeting"
	EventTypeSocial     EventType = "social"
)

func (t EventType) Valid() bool {
	switch t {
	case EventTypeConference, EventTypeWorkshop, EventTypeMeeting, EventTypeSocial:
		return true
	}
	return false
}

// Status of an event in its lifecycle.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// Statuses lists every lifecycle status.
var Statuses = []Status{StatusDraft, StatusPublished, StatusCancelled, StatusCompleted}

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

type Event struct {
	ID          string
	Title       string
	Description string
	Datetime    time.Time
	Location    string
	EventType   EventType // optional
	OrganizerID string    // immutable after creation
	Attendees   []Attendee
	Status      Status // as stored; see DeriveStatus for what callers should see
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewEventParams are the caller supplied fields of a new event.
type NewEventParams struct {
	Title       string
	Description string
	Datetime    time.Time
	Location    string
	EventType   EventType
}

// NewEvent builds a published event owned by organizerID, who is recorded
// as the first attendee.
func NewEvent(id, organizerID string, p NewEventParams, now time.Time) Event {
	return Event{
		ID:          id,
		Title:       p.Title,
		Description: p.Description,
		Datetime:    p.Datetime.UTC(),
		Location:    p.Location,
		EventType:   p.EventType,
		OrganizerID: organizerID,
		Attendees:   []Attendee{{UserID: organizerID, Status: RSVPAttending}},
		Status:      StatusPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// DeriveStatus returns the status an event should be presented with at now.
//
// Draft, cancelled and completed are terminal for derivation. A published
// event whose datetime has passed is completed.
func DeriveStatus(stored Status, datetime, now time.Time) Status {
	switch stored {
	case StatusDraft, StatusCancelled, StatusCompleted:
		return stored
	}
	if datetime.Before(now) {
		return StatusCompleted
	}
	return StatusPublished
}

// DerivedStatus is DeriveStatus applied to e.
func (e Event) DerivedStatus(now time.Time) Status {
	return DeriveStatus(e.Status, e.Datetime, now)
}

// IsOrganizer reports whether userID owns the event.
func (e Event) IsOrganizer(userID string) bool {
	return userID != "" && e.OrganizerID == userID
}
