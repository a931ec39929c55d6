package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/domain"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/store"
	"github.com/dreamscape-events/dreamscape/pkg/cryptox"
	"github.com/dreamscape-events/dreamscape/pkg/idx"
	"github.com/dreamscape-events/dreamscape/pkg/jwtx"
	"github.com/dreamscape-events/dreamscape/pkg/slogx"
)

// IdentityService creates and maintains user records.
type IdentityService struct {
	Store store.Store
}

type SignupParams struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      string
}

// Signup registers a user with a local password. Every missing field is
// reported in one validation error.
func (s *IdentityService) Signup(ctx context.Context, p SignupParams) (domain.User, error) {
	log := slogx.FromContext(ctx)

	var missing []string
	for _, f := range []struct{ value, msg string }{
		{p.FirstName, "First name is required"},
		{p.LastName, "Last name is required"},
		{p.Email, "Email is required"},
		{p.Password, "Password is required"},
		{p.Role, "Role is required"},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.msg)
		}
	}
	if len(missing) > 0 {
		return domain.User{}, invalid("Missing required fields", missing...)
	}

	role := domain.Role(strings.TrimSpace(p.Role))
	if !role.Valid() {
		return domain.User{}, invalid("Invalid role")
	}
	if err := checkPassword(p.Password); err != nil {
		return domain.User{}, err
	}

	email := domain.NormalizeEmail(p.Email)
	if !strings.Contains(email, "@") {
		return domain.User{}, invalid("Invalid email")
	}

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return domain.User{}, internal(fmt.Errorf("hash password: %w", err))
	}

	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.create(ctx, u); err != nil {
		return domain.User{}, err
	}

	log.Info("user signed up", slog.String("user_id", u.ID), slog.String("role", string(role)))
	return u, nil
}

type CompleteProfileParams struct {
	FirstName string
	LastName  string
	Role      string
	Password  string // optional
}

// CompleteProfile creates the local account of an external identity that
// signed in for the first time. claims must be a verified profile completion
// token.
func (s *IdentityService) CompleteProfile(
	ctx context.Context,
	claims jwtx.Claims,
	p CompleteProfileParams,
) (domain.User, error) {
	log := slogx.FromContext(ctx)

	if err := claims.ValidatePurpose(jwtx.PurposeProfileCompletion); err != nil {
		return domain.User{}, unauthorized("Invalid profile completion token")
	}
	if claims.Subject == "" || claims.Email == "" {
		return domain.User{}, unauthorized("Invalid profile completion token")
	}

	var missing []string
	if strings.TrimSpace(p.FirstName) == "" {
		missing = append(missing, "First name is required")
	}
	if strings.TrimSpace(p.LastName) == "" {
		missing = append(missing, "Last name is required")
	}
	if strings.TrimSpace(p.Role) == "" {
		missing = append(missing, "Role is required")
	}
	if len(missing) > 0 {
		return domain.User{}, invalid("Missing required fields", missing...)
	}

	role := domain.Role(strings.TrimSpace(p.Role))
	if !role.Valid() {
		return domain.User{}, invalid("Invalid role")
	}

	var hash string
	if p.Password != "" {
		if err := checkPassword(p.Password); err != nil {
			return domain.User{}, err
		}
		h, err := cryptox.HashPassword(p.Password)
		if err != nil {
			return domain.User{}, internal(fmt.Errorf("hash password: %w", err))
		}
		hash = h
	}

	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		FirstName:    strings.TrimSpace(p.FirstName),
		LastName:     strings.TrimSpace(p.LastName),
		Email:        domain.NormalizeEmail(claims.Email),
		PasswordHash: hash,
		Role:         role,
		Image:        claims.Picture,
		ProviderID:   claims.Subject,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.create(ctx, u); err != nil {
		return domain.User{}, err
	}

	log.Info("external user completed profile",
		slog.String("user_id", u.ID),
		slog.String("provider", claims.Provider),
	)
	return u, nil
}

func (s *IdentityService) create(ctx context.Context, u domain.User) error {
	err := s.Store.Users().CreateUser(ctx, u)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrAlreadyExists):
		return &Error{Kind: KindDuplicateEmail, Msg: "Email already registered"}
	default:
		return internal(fmt.Errorf("create user: %w", err))
	}
}

// CheckEmail reports whether an account already uses email.
func (s *IdentityService) CheckEmail(ctx context.Context, email string) (bool, error) {
	email = domain.NormalizeEmail(email)
	if email == "" {
		return false, invalid("Email is required")
	}

	exists, err := s.Store.Users().EmailExists(ctx, email)
	if err != nil {
		return false, internal(err)
	}
	return exists, nil
}

// GetProfile returns the user behind a session.
func (s *IdentityService) GetProfile(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, notFound("User not found")
		}
		return domain.User{}, internal(err)
	}
	return u, nil
}

type ProfileParams struct {
	FirstName string
	LastName  string
	Image     string
}

// UpdateProfile replaces the editable profile fields of userID.
func (s *IdentityService) UpdateProfile(ctx context.Context, userID string, p ProfileParams) (domain.User, error) {
	var missing []string
	if strings.TrimSpace(p.FirstName) == "" {
		missing = append(missing, "First name is required")
	}
	if strings.TrimSpace(p.LastName) == "" {
		missing = append(missing, "Last name is required")
	}
	if len(missing) > 0 {
		return domain.User{}, invalid("Missing required fields", missing...)
	}

	u, err := s.Store.Users().UpdateProfile(ctx, userID, store.ProfileUpdate{
		FirstName: strings.TrimSpace(p.FirstName),
		LastName:  strings.TrimSpace(p.LastName),
		Image:     strings.TrimSpace(p.Image),
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, notFound("User not found")
		}
		return domain.User{}, internal(err)
	}
	return u, nil
}

func checkPassword(pw string) error {
	if len(pw) < domain.MinPasswordLength {
		return invalid(fmt.Sprintf("Password must be at least %d characters", domain.MinPasswordLength))
	}
	return nil
}
