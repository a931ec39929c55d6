package domain

import (
	"strings"
	"time"
)

// Role a user picks at signup. Stored verbatim.
type Role string

const (
	RoleOrganizer   Role = "Organizer"
	RoleCoOrganizer Role = "Co-organizer"
	RoleAttendee    Role = "Attendee"
)

// Roles lists every accepted role, in display order.
var Roles = []Role{RoleOrganizer, RoleCoOrganizer, RoleAttendee}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOrganizer, RoleCoOrganizer, RoleAttendee:
		return true
	}
	return false
}

type User struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string // unique, lower-cased
	PasswordHash string // argon2id PHC or legacy bcrypt; empty for provider-only users
	Role         Role
	Image        string // profile image reference, optional
	ProviderID   string // external identity (e.g. Google subject), optional
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName is how the user is displayed.
func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// HasCredential reports whether the user can sign in at all. A user needs
// either a password or a linked external identity.
func (u User) HasCredential() bool {
	return u.PasswordHash != "" || u.ProviderID != ""
}

// NormalizeEmail trims and lower-cases an address so lookups are exact.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MinPasswordLength for locally set passwords.
const MinPasswordLength = 8
