package jwtx

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"time"
)

// SigningKeyRecord is a stored session key. PrivateKey holds the sealed
// Ed25519 seed, never the raw key.
type SigningKeyRecord struct {
	Kid        string
	Algorithm  string
	PrivateKey []byte
	CreatedAt  time.Time
	ExpiresAt  time.Time
}

// KeyStore persists signing keys. It is kept minimal so jwtx does not
// depend on the application's store package.
type KeyStore interface {
	// ListSigningKeys returns every key whose ExpiresAt is after now.
	ListSigningKeys(ctx context.Context, now time.Time) ([]SigningKeyRecord, error)
	CreateSigningKey(ctx context.Context, rec SigningKeyRecord) error
}

// KeySealer encrypts key material at rest. cryptox.KeyCipher implements it.
type KeySealer interface {
	Seal(plaintext []byte) ([]byte, error)
	Open(sealed []byte) ([]byte, error)
}

// PersistentKeyManagerOptions configures NewPersistentKeyManager.
type PersistentKeyManagerOptions struct {
	Store  KeyStore
	Sealer KeySealer
	Issuer string

	// NumKeys is how many keys should be signing (1..10, default 2).
	NumKeys int

	// Lifetime is how long a new key is used for signing. Default 30 days.
	Lifetime time.Duration

	// GracePeriod keeps a key verifying after its Lifetime. Set it to the
	// session TTL so no session outlives its key.
	GracePeriod time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// ErrUnsupportedKey is returned for stored keys this manager cannot load.
var ErrUnsupportedKey = errors.New("jwtx: unsupported stored key")

// NewPersistentKeyManager loads the stored Ed25519 keys, verifying with all
// of them and signing with those still inside their lifetime, and tops the
// signing set up to NumKeys with freshly generated keys. Sessions survive
// restarts as long as the master key does. Rotation happens at startup.
func NewPersistentKeyManager(ctx context.Context, opts PersistentKeyManagerOptions) (*KeyManager, error) {
	if opts.Store == nil || opts.Sealer == nil {
		return nil, fmt.Errorf("jwtx: Store and Sealer are required")
	}
	if opts.Issuer == "" {
		return nil, fmt.Errorf("jwtx: Issuer is required")
	}

	numKeys := opts.NumKeys
	if numKeys <= 0 {
		numKeys = 2
	}
	numKeys = min(numKeys, 10)

	lifetime := opts.Lifetime
	if lifetime <= 0 {
		lifetime = 30 * 24 * time.Hour
	}
	grace := opts.GracePeriod
	if grace <= 0 {
		grace = 30 * 24 * time.Hour
	}

	now := time.Now().UTC()
	if opts.Now != nil {
		now = opts.Now().UTC()
	}

	records, err := opts.Store.ListSigningKeys(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("jwtx: load signing keys: %w", err)
	}

	keyset := NewKeySet()
	var signers []Signer

	for _, rec := range records {
		signer, err := openSigningKey(opts.Sealer, rec)
		if err != nil {
			return nil, err
		}
		if err := keyset.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("jwtx: add key %s: %w", rec.Kid, err)
		}
		if now.Before(rec.CreatedAt.Add(lifetime)) && len(signers) < numKeys {
			signers = append(signers, signer)
		}
	}

	for len(signers) < numKeys {
		kid, err := generateRandomKeyID()
		if err != nil {
			return nil, err
		}

		_, key, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, fmt.Errorf("jwtx: generate Ed25519 key: %w", err)
		}
		sealed, err := opts.Sealer.Seal(key.Seed())
		if err != nil {
			return nil, fmt.Errorf("jwtx: seal key: %w", err)
		}

		err = opts.Store.CreateSigningKey(ctx, SigningKeyRecord{
			Kid:        kid,
			Algorithm:  AlgorithmEdDSA,
			PrivateKey: sealed,
			CreatedAt:  now,
			ExpiresAt:  now.Add(lifetime + grace),
		})
		if err != nil {
			return nil, fmt.Errorf("jwtx: store new key: %w", err)
		}

		signer, err := newEdDSASigner(kid, key)
		if err != nil {
			return nil, err
		}
		if err := keyset.AddSigner(signer); err != nil {
			return nil, fmt.Errorf("jwtx: add key %s: %w", kid, err)
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

func openSigningKey(sealer KeySealer, rec SigningKeyRecord) (*EdDSASigner, error) {
	if rec.Algorithm != AlgorithmEdDSA {
		return nil, fmt.Errorf("%w: %s uses %q", ErrUnsupportedKey, rec.Kid, rec.Algorithm)
	}

	seed, err := sealer.Open(rec.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("jwtx: unseal key %s: %w", rec.Kid, err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: %s has a %d byte seed", ErrUnsupportedKey, rec.Kid, len(seed))
	}
	return newEdDSASigner(rec.Kid, ed25519.NewKeyFromSeed(seed))
}
