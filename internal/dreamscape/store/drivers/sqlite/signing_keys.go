package sqlite

import (
	"context"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/domain"
)

type signingKeysRepo struct {
	q *Queries
}

func (r *signingKeysRepo) CreateSigningKey(ctx context.Context, k domain.SigningKey) error {
	err := r.q.CreateSigningKey(ctx, signingKeyRow{
		Kid:        k.Kid,
		Algorithm:  k.Algorithm,
		PrivateKey: k.PrivateKey,
		CreatedAt:  millis(k.CreatedAt),
		ExpiresAt:  millis(k.ExpiresAt),
	})
	return mapConstraint(err)
}

func (r *signingKeysRepo) ListSigningKeys(ctx context.Context, now time.Time) ([]domain.SigningKey, error) {
	rows, err := r.q.ListSigningKeys(ctx, millis(now))
	if err != nil {
		return nil, err
	}

	out := make([]domain.SigningKey, 0, len(rows))
	for _, row := range rows {
		out = append(out, domain.SigningKey{
			Kid:        row.Kid,
			Algorithm:  row.Algorithm,
			PrivateKey: row.PrivateKey,
			CreatedAt:  fromMillis(row.CreatedAt),
			ExpiresAt:  fromMillis(row.ExpiresAt),
		})
	}
	return out, nil
}

func (r *signingKeysRepo) DeleteExpiredSigningKeys(ctx context.Context, now time.Time) (int64, error) {
	return r.q.DeleteExpiredSigningKeys(ctx, millis(now))
}
