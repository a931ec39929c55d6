package jwtx_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dreamscape-events/dreamscape/pkg/cryptox"
	"github.com/dreamscape-events/dreamscape/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

type memKeyStore struct {
	mu   sync.Mutex
	recs []jwtx.SigningKeyRecord
}

func (m *memKeyStore) ListSigningKeys(_ context.Context, now time.Time) ([]jwtx.SigningKeyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []jwtx.SigningKeyRecord
	for _, r := range m.recs {
		if r.ExpiresAt.After(now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memKeyStore) CreateSigningKey(_ context.Context, rec jwtx.SigningKeyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs = append(m.recs, rec)
	return nil
}

func newCipher(t *testing.T, fill string) *cryptox.KeyCipher {
	t.Helper()
	c, err := cryptox.NewKeyCipher([]byte(strings.Repeat(fill, cryptox.MinMasterKeyLength)))
	require.NoError(t, err)
	return c
}

func TestPersistentKeyManager_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	ks := &memKeyStore{}
	sealer := newCipher(t, "k")
	opts := jwtx.PersistentKeyManagerOptions{Store: ks, Sealer: sealer, Issuer: exampleIssuer}

	first, err := jwtx.NewPersistentKeyManager(ctx, opts)
	require.NoError(t, err)
	require.Equal(t, jwtx.AlgorithmEdDSA, first.Algorithm())
	require.Equal(t, 2, first.NumSigners())
	require.Len(t, ks.recs, 2)
	for _, r := range ks.recs {
		require.Len(t, r.PrivateKey, 12+32+16, "seed is stored sealed")
	}

	token, err := first.Sign(jwtx.NewSessionClaims("user-1", "Organizer", "o@example.com", "Olive", time.Hour, exampleIssuer, time.Now()))
	require.NoError(t, err)

	second, err := jwtx.NewPersistentKeyManager(ctx, opts)
	require.NoError(t, err)
	require.Len(t, ks.recs, 2, "no new keys on restart")
	require.Equal(t, first.PublicJWKS(), second.PublicJWKS())

	claims, err := second.Verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
}

func TestPersistentKeyManager_Rotation(t *testing.T) {
	ctx := context.Background()
	ks := &memKeyStore{}
	start := time.Now().UTC()
	clock := start

	opts := jwtx.PersistentKeyManagerOptions{
		Store:       ks,
		Sealer:      newCipher(t, "k"),
		Issuer:      exampleIssuer,
		NumKeys:     1,
		Lifetime:    24 * time.Hour,
		GracePeriod: 24 * time.Hour,
		Now:         func() time.Time { return clock },
	}

	first, err := jwtx.NewPersistentKeyManager(ctx, opts)
	require.NoError(t, err)
	token, err := first.Sign(jwtx.NewSessionClaims("user-1", "", "", "", time.Hour, exampleIssuer, time.Now()))
	require.NoError(t, err)

	// Past its lifetime the old key only verifies.
	clock = start.Add(36 * time.Hour)
	second, err := jwtx.NewPersistentKeyManager(ctx, opts)
	require.NoError(t, err)
	require.Equal(t, 1, second.NumSigners())
	require.Len(t, second.PublicJWKS().Keys, 2)
	_, err = second.Verifier.Verify(token)
	require.NoError(t, err)

	// Past lifetime plus grace it is gone.
	clock = start.Add(49 * time.Hour)
	third, err := jwtx.NewPersistentKeyManager(ctx, opts)
	require.NoError(t, err)
	require.Len(t, third.PublicJWKS().Keys, 1)
	_, err = third.Verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrUnknownKID)
}

func TestPersistentKeyManager_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{Issuer: exampleIssuer})
	require.Error(t, err)

	ks := &memKeyStore{}
	_, err = jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{Store: ks, Sealer: newCipher(t, "a"), Issuer: exampleIssuer})
	require.NoError(t, err)

	_, err = jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{Store: ks, Sealer: newCipher(t, "b"), Issuer: exampleIssuer})
	require.Error(t, err, "a different master key cannot open stored keys")

	ks.recs[0].Algorithm = "RS256"
	_, err = jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{Store: ks, Sealer: newCipher(t, "a"), Issuer: exampleIssuer})
	require.ErrorIs(t, err, jwtx.ErrUnsupportedKey)
}
