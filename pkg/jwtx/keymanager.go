package jwtx

import (
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/dreamscape-events/dreamscape/pkg/cryptox"
)

// Supported JWT signing algorithms
const (
	AlgorithmEdDSA = "EdDSA"
	AlgorithmHS256 = "HS256"
)

// KeyManager owns the signing keys of this instance and the matching
// verifier. Signing is spread across the active keys at random.
type KeyManager struct {
	Verifier Verifier

	// KeySet is nil for shared secret managers, which have nothing to publish.
	KeySet *KeySet

	algorithm string
	mu        sync.RWMutex
	signers   []Signer
}

// KeyManagerOptions configures the KeyManager for a specific use case.
type KeyManagerOptions struct {
	// Issuer is the iss claim minted into and required from tokens.
	Issuer string

	// NumKeys is how many ephemeral Ed25519 keys to generate (1..10, default 2).
	NumKeys int

	// Secret switches the manager to HS256 with a shared secret.
	Secret []byte
}

// NewKeyManager builds a shared secret manager when opts.Secret is set and
// an ephemeral Ed25519 manager otherwise.
func NewKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if len(opts.Secret) > 0 {
		return NewSharedSecretKeyManager(opts)
	}
	return NewEphemeralKeyManager(opts)
}

// NewEphemeralKeyManager creates Ed25519 keys that only live in memory.
// Every session is invalidated on restart.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	numKeys := opts.NumKeys
	if numKeys <= 0 {
		numKeys = 2
	}
	numKeys = min(numKeys, 10)

	keyset := NewKeySet()
	signers := make([]Signer, 0, numKeys)

	for i := range numKeys {
		kid, err := generateRandomKeyID()
		if err != nil {
			return nil, err
		}

		signer, err := GenerateSignerEdDSA(kid)
		if err != nil {
			return nil, fmt.Errorf("jwtx: failed to generate key %d: %w", i+1, err)
		}
		if err := keyset.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("jwtx: failed to add key %d to keyset: %w", i+1, err)
		}
		signers = append(signers, signer)
	}

	return &KeyManager{
		Verifier:  NewVerifierEdDSA(keyset, opts.Issuer),
		KeySet:    keyset,
		algorithm: AlgorithmEdDSA,
		signers:   signers,
	}, nil
}

// NewSharedSecretKeyManager signs and verifies with one HS256 secret.
func NewSharedSecretKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	signer, err := NewSignerHS256("shared", opts.Secret)
	if err != nil {
		return nil, err
	}

	return &KeyManager{
		Verifier:  NewVerifierHS256(opts.Secret, opts.Issuer),
		algorithm: AlgorithmHS256,
		signers:   []Signer{signer},
	}, nil
}

// Algorithm returns the signing algorithm being used.
func (km *KeyManager) Algorithm() string {
	return km.algorithm
}

// IsReady returns true if the KeyManager can sign tokens.
func (km *KeyManager) IsReady() bool {
	return km.NumSigners() > 0
}

// GetSigner returns one of the active signers at random.
func (km *KeyManager) GetSigner() Signer {
	km.mu.RLock()
	defer km.mu.RUnlock()

	switch len(km.signers) {
	case 0:
		return nil
	case 1:
		return km.signers[0]
	default:
		return km.signers[rand.IntN(len(km.signers))]
	}
}

// Sign signs claims with a random active key.
func (km *KeyManager) Sign(c Claims) (string, error) {
	s := km.GetSigner()
	if s == nil {
		return "", fmt.Errorf("jwtx: no signing keys")
	}
	return s.Sign(c)
}

// PublicJWKS returns the published keys, empty for shared secret managers.
func (km *KeyManager) PublicJWKS() JWKS {
	if km.KeySet == nil {
		return JWKS{Keys: []JWK{}}
	}
	return km.KeySet.PublicJWKS()
}

// NumSigners returns the number of active signing keys.
func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// generateRandomKeyID creates a random key identifier, "dreamscape-{token}".
func generateRandomKeyID() (string, error) {
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		return "", fmt.Errorf("jwtx: failed to generate key ID: %w", err)
	}
	return "dreamscape-" + token, nil
}
