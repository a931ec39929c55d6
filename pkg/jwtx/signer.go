package jwtx

import "crypto/ed25519"

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	Validate() error
}

// PublicSigner is a Signer whose verification key can be published.
type PublicSigner interface {
	Signer
	PublicJWK() JWK
}

// NewSignerEdDSA wraps an existing Ed25519 private key.
func NewSignerEdDSA(kid string, key ed25519.PrivateKey) (PublicSigner, error) {
	return newEdDSASigner(kid, key)
}

// GenerateSignerEdDSA creates a signer with a fresh in-memory key. The key
// never leaves the process, so tokens it signs die with it.
func GenerateSignerEdDSA(kid string) (PublicSigner, error) {
	return generateEdDSASigner(kid)
}

// NewSignerHS256 creates an HMAC signer from a shared secret.
func NewSignerHS256(kid string, secret []byte) (Signer, error) {
	return newHS256Signer(kid, secret)
}
