package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/store"
	"github.com/dreamscape-events/dreamscape/pkg/cryptox"
	"github.com/dreamscape-events/dreamscape/pkg/jwtx"
)

// InitSessionKeys creates the KeyManager that signs session tokens.
//
// Modes, in order of precedence:
//   - SESSION_SECRET set: HS256 with the shared secret.
//   - SESSION_KEY_STORAGE=persistent: Ed25519 keys sealed with the master
//     key in SESSION_MASTER_KEY_FILE and kept in the store. Keys sign for
//     SESSION_KEY_LIFETIME and verify for a further SESSION_TTL, so sessions
//     survive restarts.
//   - otherwise: SESSION_NUM_KEYS ephemeral Ed25519 keys that die with the
//     process.
func InitSessionKeys(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (*jwtx.KeyManager, error) {
	switch {
	case cfg.SessionSecret != "":
		km, err := jwtx.NewSharedSecretKeyManager(jwtx.KeyManagerOptions{
			Issuer: cfg.SessionIssuer,
			Secret: []byte(cfg.SessionSecret),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize session keys: %w", err)
		}
		logger.Info("session keys loaded from shared secret", "algorithm", km.Algorithm(), "issuer", cfg.SessionIssuer)
		return km, nil

	case cfg.SessionKeyStorage == KeyStoragePersistent:
		sealer, err := cryptox.LoadKeyCipher(cfg.SessionMasterKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load session master key: %w", err)
		}

		now := time.Now().UTC()
		pruned, err := db.SigningKeys().DeleteExpiredSigningKeys(ctx, now)
		if err != nil {
			return nil, fmt.Errorf("failed to prune expired session keys: %w", err)
		}

		km, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
			Store:       store.NewKeyStoreAdapter(db),
			Sealer:      sealer,
			Issuer:      cfg.SessionIssuer,
			NumKeys:     cfg.SessionNumKeys,
			Lifetime:    cfg.SessionKeyLifetime,
			GracePeriod: cfg.SessionTTL,
			Now:         func() time.Time { return now },
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize persistent session keys: %w", err)
		}
		logger.Info("persistent session keys loaded",
			"algorithm", km.Algorithm(),
			"signing_keys", km.NumSigners(),
			"verifying_keys", len(km.PublicJWKS().Keys),
			"pruned", pruned,
			"issuer", cfg.SessionIssuer,
		)
		return km, nil

	default:
		km, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
			Issuer:  cfg.SessionIssuer,
			NumKeys: cfg.SessionNumKeys,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize session keys: %w", err)
		}
		logger.Info("ephemeral session keys generated",
			"algorithm", km.Algorithm(),
			"num_keys", km.NumSigners(),
			"issuer", cfg.SessionIssuer,
		)
		logger.Warn("ephemeral key mode - sessions will be invalidated on restart")
		return km, nil
	}
}
