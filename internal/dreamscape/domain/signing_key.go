package domain

import "time"

// SigningKey is a persisted session signing key. PrivateKey is sealed with
// the master key; the store never sees it in the clear.
type SigningKey struct {
	Kid        string
	Algorithm  string
	PrivateKey []byte
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// Expired reports whether the key can no longer verify tokens at now.
func (k SigningKey) Expired(now time.Time) bool {
	return !now.Before(k.ExpiresAt)
}
