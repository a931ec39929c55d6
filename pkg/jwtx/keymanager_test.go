package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/dreamscape-events/dreamscape/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestNewEphemeralKeyManager(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Issuer: exampleIssuer, NumKeys: 3})
	require.NoError(t, err)
	require.Equal(t, jwtx.AlgorithmEdDSA, km.Algorithm())
	require.True(t, km.IsReady())
	require.Equal(t, 3, km.NumSigners())
	require.Len(t, km.PublicJWKS().Keys, 3)

	for _, k := range km.PublicJWKS().Keys {
		require.True(t, strings.HasPrefix(k.Kid, "dreamscape-"))
	}
}

func TestNewEphemeralKeyManager_Bounds(t *testing.T) {
	km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Issuer: exampleIssuer, NumKeys: 50})
	require.NoError(t, err)
	require.Equal(t, 10, km.NumSigners())

	km, err = jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Issuer: exampleIssuer})
	require.NoError(t, err)
	require.Equal(t, 2, km.NumSigners())

	_, err = jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{})
	require.Error(t, err)
}

func TestKeyManager_RoundTrip(t *testing.T) {
	managers := map[string]jwtx.KeyManagerOptions{
		"ephemeral": {Issuer: exampleIssuer, NumKeys: 2},
		"shared":    {Issuer: exampleIssuer, Secret: []byte(strings.Repeat("s", 32))},
	}

	for name, opts := range managers {
		t.Run(name, func(t *testing.T) {
			km, err := jwtx.NewKeyManager(opts)
			require.NoError(t, err)

			// Sign a few times so every key gets used.
			for range 8 {
				token, err := km.Sign(jwtx.NewSessionClaims("user-1", "Organizer", "o@example.com", "O", time.Minute, exampleIssuer, time.Now()))
				require.NoError(t, err)

				got, err := km.Verifier.Verify(token)
				require.NoError(t, err)
				require.Equal(t, "user-1", got.Subject)
			}
		})
	}
}

func TestSharedSecretKeyManager(t *testing.T) {
	secret := []byte(strings.Repeat("k", 40))

	km, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: exampleIssuer, Secret: secret})
	require.NoError(t, err)
	require.Equal(t, jwtx.AlgorithmHS256, km.Algorithm())
	require.Empty(t, km.PublicJWKS().Keys)

	// A second instance with the same secret verifies tokens from the first.
	other, err := jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: exampleIssuer, Secret: secret})
	require.NoError(t, err)

	token, err := km.Sign(jwtx.NewSessionClaims("user-2", "", "", "", time.Minute, exampleIssuer, time.Now()))
	require.NoError(t, err)
	_, err = other.Verifier.Verify(token)
	require.NoError(t, err)

	_, err = jwtx.NewKeyManager(jwtx.KeyManagerOptions{Issuer: exampleIssuer, Secret: []byte("short")})
	require.Error(t, err)
}

func TestKeyManager_AlgorithmConfusion(t *testing.T) {
	eph, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{Issuer: exampleIssuer})
	require.NoError(t, err)
	shared, err := jwtx.NewSharedSecretKeyManager(jwtx.KeyManagerOptions{Issuer: exampleIssuer, Secret: []byte(strings.Repeat("x", 32))})
	require.NoError(t, err)

	token, err := shared.Sign(jwtx.NewSessionClaims("u", "", "", "", time.Minute, exampleIssuer, time.Now()))
	require.NoError(t, err)

	_, err = eph.Verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrMalformed)
}
