package dreamsdk

import (
	"time"

	"github.com/dreamscape-events/dreamscape/pkg/jwtx"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is one of the ErrorCode* constants.
	Error string `json:"error"`

	// ErrorDescription is a human-readable message.
	ErrorDescription string `json:"error_description"`

	// Errors lists every individual problem of a validation error.
	Errors []string `json:"errors,omitempty"`
}

// ============================================================================
// Health
// ============================================================================

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type HealthChecks struct {
	Database string `json:"database"`
	Signer   string `json:"signer"`
}

// JWKSResponse publishes the session verification keys.
type JWKSResponse jwtx.JWKS

// ============================================================================
// Users and sessions
// ============================================================================

type SignupRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

type SigninRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Image     string    `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SessionResponse is returned by every sign-in flow. The token is also set
// as an HttpOnly cookie for browsers.
type SessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      UserResponse `json:"user"`
}

// GoogleCallbackResponse either signs the user in or asks them to complete
// their profile with ProfileToken.
type GoogleCallbackResponse struct {
	NeedsProfileCompletion bool             `json:"needsProfileCompletion"`
	ProfileToken           string           `json:"profileToken,omitempty"`
	Email                  string           `json:"email"`
	Name                   string           `json:"name,omitempty"`
	Picture                string           `json:"picture,omitempty"`
	Session                *SessionResponse `json:"session,omitempty"`
}

type CompleteProfileRequest struct {
	ProfileToken string `json:"profileToken"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Role         string `json:"role"`
	Password     string `json:"password,omitempty"`
}

type UpdateProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Image     string `json:"image,omitempty"`
}

type CheckEmailResponse struct {
	Exists bool `json:"exists"`
}

// ============================================================================
// Events
// ============================================================================

// RSVP statuses.
const (
	RSVPAttending = "attending"
	RSVPMaybe     = "maybe"
	RSVPDeclined  = "declined"
)

// Event statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusCancelled = "cancelled"
	StatusCompleted = "completed"
)

// UserRef is a user as shown inside an event.
type UserRef struct {
	ID        string `json:"id"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}

type AttendeeResponse struct {
	User   UserRef `json:"user"`
	Status string  `json:"status"`
}

type EventResponse struct {
	ID          string             `json:"id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Datetime    time.Time          `json:"datetime"`
	Location    string             `json:"location"`
	EventType   string             `json:"eventType,omitempty"`
	Organizer   UserRef            `json:"organizer"`
	Attendees   []AttendeeResponse `json:"attendees"`
	Status      string             `json:"status"`
	CreatedAt   time.Time          `json:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt"`
}

// AttendeeStatus returns the RSVP of userID, or "" when absent.
func (e EventResponse) AttendeeStatus(userID string) string {
	for _, a := range e.Attendees {
		if a.User.ID == userID {
			return a.Status
		}
	}
	return ""
}

type ListEventsResponse struct {
	Events []EventResponse `json:"events"`
}

type CreateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Datetime    time.Time `json:"datetime"`
	Location    string    `json:"location,omitempty"`
	EventType   string    `json:"eventType,omitempty"`
}

// UpdateEventRequest only changes the fields that are set.
type UpdateEventRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Datetime    *time.Time `json:"datetime,omitempty"`
	Location    *string    `json:"location,omitempty"`
	EventType   *string    `json:"eventType,omitempty"`
}

type RSVPRequest struct {
	Status string `json:"status"`
}

type StatusRequest struct {
	Status string `json:"status"`
}

// ListEventsOptions filters ListEvents. Empty fields match everything.
type ListEventsOptions struct {
	Status      string
	OrganizerID string
}
