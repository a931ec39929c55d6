package store

import (
	"context"
	"errors"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict is returned by conditional writes whose precondition no
	// longer holds.
	ErrConflict = errors.New("store: conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite, mongo)
// implement this and hand out one repository per collection.
//
// Every write touches a single user or a single event and is atomic on its
// own. There is deliberately no transaction API.
type Store interface {
	Users() Users
	Events() Events
	SigningKeys() SigningKeys

	// ApplyMigrations brings the schema (tables, indexes) up to date.
	ApplyMigrations(ctx context.Context) error

	// Close releases the underlying client.
	Close(ctx context.Context) error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

type Users interface {
	// CreateUser inserts a new user. ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail expects an already normalised email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUsersByIDs returns the users that exist, in no particular order.
	GetUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error)

	// EmailExists is a cheap existence check for the signup form.
	EmailExists(ctx context.Context, email string) (bool, error)

	// UpdateProfile sets first name, last name and image and bumps updated_at.
	UpdateProfile(ctx context.Context, id string, p ProfileUpdate) (domain.User, error)

	// UpdatePasswordHash replaces the stored hash (used to upgrade legacy hashes).
	UpdatePasswordHash(ctx context.Context, id, hash string) error

	// LinkProvider attaches an external identity to an existing user.
	LinkProvider(ctx context.Context, id, providerID string) error
}

// ProfileUpdate carries the user-editable profile fields.
type ProfileUpdate struct {
	FirstName string
	LastName  string
	Image     string
	UpdatedAt time.Time
}

// EventFilter narrows ListEvents. Empty fields match everything.
type EventFilter struct {
	Statuses    []domain.Status
	OrganizerID string
}

type Events interface {
	CreateEvent(ctx context.Context, e domain.Event) error

	GetEvent(ctx context.Context, id string) (domain.Event, error)

	// ListEvents returns matching events sorted by datetime, newest first.
	ListEvents(ctx context.Context, f EventFilter) ([]domain.Event, error)

	// UpdateEvent merges the non-nil fields into the event and bumps updated_at.
	UpdateEvent(ctx context.Context, id string, u EventUpdate) (domain.Event, error)

	// SetStatus stores a new status and bumps updated_at.
	SetStatus(ctx context.Context, id string, status domain.Status, at time.Time) (domain.Event, error)

	// CompareAndSetStatus moves the status from one value to another only if
	// it still holds from. ErrConflict otherwise. updated_at is left alone.
	CompareAndSetStatus(ctx context.Context, id string, from, to domain.Status) error

	// CompleteElapsed marks every published event whose datetime is before
	// now as completed and returns how many changed.
	CompleteElapsed(ctx context.Context, now time.Time) (int64, error)

	// ApplyRSVP atomically records a user's RSVP on one event with
	// domain.Event.ApplyRSVP semantics and returns the resulting event.
	ApplyRSVP(ctx context.Context, id, userID string, status domain.RSVPStatus, at time.Time) (domain.Event, error)

	DeleteEvent(ctx context.Context, id string) error
}

// EventUpdate lists the mutable event fields. Organizer, attendees and
// status have their own operations.
type EventUpdate struct {
	Title       *string
	Description *string
	Datetime    *time.Time
	Location    *string
	EventType   *domain.EventType
	UpdatedAt   time.Time
}

// SigningKeys persists sealed session signing keys. Keys are never updated;
// they expire and are pruned.
type SigningKeys interface {
	// CreateSigningKey inserts a key. ErrAlreadyExists when the kid is taken.
	CreateSigningKey(ctx context.Context, k domain.SigningKey) error

	// ListSigningKeys returns keys not yet expired at now, oldest first.
	ListSigningKeys(ctx context.Context, now time.Time) ([]domain.SigningKey, error)

	// DeleteExpiredSigningKeys removes keys expired at now.
	DeleteExpiredSigningKeys(ctx context.Context, now time.Time) (int64, error)
}
