package sqlite

import (
	"context"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/domain"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/store"
)

type usersRepo struct {
	q *Queries
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	err := r.q.CreateUser(ctx, userRow{
		ID:           u.ID,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Image:        u.Image,
		ProviderID:   u.ProviderID,
		CreatedAt:    millis(u.CreatedAt),
		UpdatedAt:    millis(u.UpdatedAt),
	})
	return mapConstraint(err)
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row, err := r.q.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row, err := r.q.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return mapUser(row), nil
}

func (r *usersRepo) GetUsersByIDs(ctx context.Context, ids []string) ([]domain.User, error) {
	rows, err := r.q.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapUser(row))
	}
	return out, nil
}

func (r *usersRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := r.q.CountUsersByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *usersRepo) UpdateProfile(ctx context.Context, id string, p store.ProfileUpdate) (domain.User, error) {
	n, err := r.q.UpdateUserProfile(ctx, id, p.FirstName, p.LastName, p.Image, millis(p.UpdatedAt))
	if err := affected(n, err); err != nil {
		return domain.User{}, err
	}
	return r.GetUserByID(ctx, id)
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return affected(r.q.UpdateUserPasswordHash(ctx, id, hash, millis(time.Now())))
}

func (r *usersRepo) LinkProvider(ctx context.Context, id, providerID string) error {
	return affected(r.q.UpdateUserProviderID(ctx, id, providerID, millis(time.Now())))
}
