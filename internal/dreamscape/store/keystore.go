package store

import (
	"context"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/domain"
	"github.com/dreamscape-events/dreamscape/pkg/jwtx"
)

// KeyStoreAdapter exposes a Store's signing keys as a jwtx.KeyStore.
type KeyStoreAdapter struct {
	keys SigningKeys
}

var _ jwtx.KeyStore = (*KeyStoreAdapter)(nil)

func NewKeyStoreAdapter(s Store) *KeyStoreAdapter {
	return &KeyStoreAdapter{keys: s.SigningKeys()}
}

func (a *KeyStoreAdapter) ListSigningKeys(ctx context.Context, now time.Time) ([]jwtx.SigningKeyRecord, error) {
	keys, err := a.keys.ListSigningKeys(ctx, now)
	if err != nil {
		return nil, err
	}

	out := make([]jwtx.SigningKeyRecord, 0, len(keys))
	for _, k := range keys {
		out = append(out, jwtx.SigningKeyRecord{
			Kid:        k.Kid,
			Algorithm:  k.Algorithm,
			PrivateKey: k.PrivateKey,
			CreatedAt:  k.CreatedAt,
			ExpiresAt:  k.ExpiresAt,
		})
	}
	return out, nil
}

func (a *KeyStoreAdapter) CreateSigningKey(ctx context.Context, rec jwtx.SigningKeyRecord) error {
	return a.keys.CreateSigningKey(ctx, domain.SigningKey{
		Kid:        rec.Kid,
		Algorithm:  rec.Algorithm,
		PrivateKey: rec.PrivateKey,
		CreatedAt:  rec.CreatedAt,
		ExpiresAt:  rec.ExpiresAt,
	})
}
