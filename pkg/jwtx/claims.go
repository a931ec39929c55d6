package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL mirrors a browser session that lasts a month.
const DefaultSessionTTL = 30 * 24 * time.Hour

// DefaultProfileCompletionTTL bounds how long an OAuth sign-in may wait for
// the user to finish their profile.
const DefaultProfileCompletionTTL = 15 * time.Minute

// Token purposes. A profile completion token must never be accepted as a
// session and vice versa.
const (
	PurposeSession           = "session"
	PurposeProfileCompletion = "profile_completion"
)

// Claims carried by every token we mint.
type Claims struct {
	jwt.RegisteredClaims

	// Purpose is one of the Purpose* constants.
	Purpose string `json:"purpose"`

	// Role of the user at sign-in time (Organizer, Co-organizer, Attendee).
	Role string `json:"role,omitempty"`

	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`

	// Provider and Picture are only set on profile completion tokens, where
	// the subject is the external provider identifier.
	Provider string `json:"provider,omitempty"`
	Picture  string `json:"picture,omitempty"`
}

// NewSessionClaims builds claims for an authenticated user session.
func NewSessionClaims(
	subject, role, email, name string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: registered(subject, issuer, ttl, now),
		Purpose:          PurposeSession,
		Role:             role,
		Email:            email,
		Name:             name,
	}
}

// NewProfileCompletionClaims builds claims for an external identity that has
// no local account yet.
func NewProfileCompletionClaims(
	provider, providerID, email, name, picture string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: registered(providerID, issuer, ttl, now),
		Purpose:          PurposeProfileCompletion,
		Email:            email,
		Name:             name,
		Provider:         provider,
		Picture:          picture,
	}
}

func registered(subject, issuer string, ttl time.Duration, now time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        NewJTI(),
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidatePurpose rejects tokens minted for a different flow.
func (c *Claims) ValidatePurpose(expected string) error {
	if c.Purpose != expected {
		return ErrPurpose
	}
	return nil
}

// ValidateExpiry ensures the token hasn't expired (exp) and isn't before nbf.
func (c *Claims) ValidateExpiry() error {
	return c.ValidateExpiryWithLeeway(0)
}

// ValidateExpiryWithLeeway adds a small grace period for clock skew.
func (c *Claims) ValidateExpiryWithLeeway(leeway time.Duration) error {
	now := time.Now().UTC()

	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-leeway)) {
		return ErrNotYetValid
	}
	return nil
}
