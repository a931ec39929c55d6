package jwtx_test

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/dreamscape-events/dreamscape/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "dreamscape-test"

func newEdDSASigner(t *testing.T, kid string) jwtx.PublicSigner {
	t.Helper()

	signer, err := jwtx.GenerateSignerEdDSA(kid)
	require.NoError(t, err)
	require.NoError(t, signer.Validate())
	return signer
}

func TestEdDSASignAndVerify(t *testing.T) {
	signer := newEdDSASigner(t, "test-key-eddsa")
	require.Equal(t, "EdDSA", signer.Alg())

	claims := jwtx.NewSessionClaims("user-456", "Attendee", "e@example.com", "Ed User", 5*time.Minute, exampleIssuer, time.Now().UTC())
	token, err := signer.Sign(claims)
	require.NoError(t, err)

	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))

	jwks := keyset.PublicJWKS()
	require.Len(t, jwks.Keys, 1)
	require.Equal(t, "OKP", jwks.Keys[0].Kty)
	require.Equal(t, "Ed25519", jwks.Keys[0].Crv)

	got, err := jwtx.NewVerifierEdDSA(keyset, exampleIssuer).Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-456", got.Subject)
	require.Equal(t, "Attendee", got.Role)
	require.Equal(t, jwtx.PurposeSession, got.Purpose)
}

func TestEdDSAVerify_Rejects(t *testing.T) {
	signer := newEdDSASigner(t, "k1")
	keyset := jwtx.NewKeySet()
	require.NoError(t, keyset.AddSigner(signer))
	verifier := jwtx.NewVerifierEdDSA(keyset, exampleIssuer)

	t.Run("unknown kid", func(t *testing.T) {
		stranger := newEdDSASigner(t, "k2")
		token, err := stranger.Sign(jwtx.NewSessionClaims("u", "", "", "", time.Minute, exampleIssuer, time.Now()))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrUnknownKID)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewSessionClaims("u", "", "", "", time.Minute, exampleIssuer, time.Now().Add(-time.Hour)))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrExpired)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		token, err := signer.Sign(jwtx.NewSessionClaims("u", "", "", "", time.Minute, "elsewhere", time.Now()))
		require.NoError(t, err)

		_, err = verifier.Verify(token)
		require.ErrorIs(t, err, jwtx.ErrIssuer)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := verifier.Verify("not.a.jwt")
		require.ErrorIs(t, err, jwtx.ErrMalformed)
	})
}

func TestNewSignerEdDSA(t *testing.T) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signer, err := jwtx.NewSignerEdDSA("k1", key)
	require.NoError(t, err)
	require.Equal(t, "k1", signer.KID())
	require.Equal(t, "EdDSA", signer.PublicJWK().Alg)

	_, err = jwtx.NewSignerEdDSA("k2", key[:16])
	require.Error(t, err)
}
