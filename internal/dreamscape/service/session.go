package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/domain"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/store"
	"github.com/dreamscape-events/dreamscape/pkg/cryptox"
	"github.com/dreamscape-events/dreamscape/pkg/jwtx"
	"github.com/dreamscape-events/dreamscape/pkg/slogx"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// GoogleUserInfoURL is the OpenID Connect userinfo endpoint.
const GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// ProviderGoogle tags profile completion tokens minted for Google sign-ins.
const ProviderGoogle = "google"

// SessionService signs users in and mints their session tokens.
type SessionService struct {
	Store      store.Store
	KeyManager *jwtx.KeyManager
	Issuer     string
	TTL        time.Duration

	// Google is nil when Google sign-in is not configured.
	Google *oauth2.Config

	// UserInfoURL defaults to GoogleUserInfoURL.
	UserInfoURL string
}

// Session is a signed session token and the user it belongs to.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

// NewGoogleConfig builds the OAuth2 client config for Google sign-in.
func NewGoogleConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     endpoints.Google,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

// SignIn checks an email and password. Unknown emails and wrong passwords
// fail the same way.
func (s *SessionService) SignIn(ctx context.Context, email, password string) (Session, error) {
	log := slogx.FromContext(ctx)
	fail := unauthorized("Invalid email or password")

	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, invalid("Email and password are required")
	}

	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Session{}, fail
		}
		return Session{}, internal(err)
	}
	if u.PasswordHash == "" {
		log.Info("password sign-in for external-only account", slog.String("user_id", u.ID))
		return Session{}, fail
	}

	if err := cryptox.VerifyPassword(password, u.PasswordHash); err != nil {
		if !errors.Is(err, cryptox.ErrMismatch) {
			log.Error("stored password hash unusable", slog.String("user_id", u.ID), slog.Any("error", err))
		}
		return Session{}, fail
	}

	if cryptox.NeedsRehash(u.PasswordHash) {
		s.upgradeHash(ctx, u.ID, password)
	}

	return s.Issue(u)
}

// upgradeHash replaces a legacy hash after a successful sign-in. Failure
// only costs another upgrade attempt next time.
func (s *SessionService) upgradeHash(ctx context.Context, userID, password string) {
	log := slogx.FromContext(ctx)

	hash, err := cryptox.HashPassword(password)
	if err == nil {
		err = s.Store.Users().UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		log.Warn("password hash upgrade failed", slog.String("user_id", userID), slog.Any("error", err))
		return
	}
	log.Info("password hash upgraded", slog.String("user_id", userID))
}

// Issue mints a session token for u.
func (s *SessionService) Issue(u domain.User) (Session, error) {
	now := time.Now().UTC()
	ttl := s.ttl()

	token, err := s.KeyManager.Sign(jwtx.NewSessionClaims(
		u.ID, string(u.Role), u.Email, u.FullName(), ttl, s.Issuer, now,
	))
	if err != nil {
		return Session{}, internal(fmt.Errorf("sign session: %w", err))
	}

	return Session{Token: token, ExpiresAt: now.Add(ttl), User: u}, nil
}

func (s *SessionService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return jwtx.DefaultSessionTTL
}

// GoogleEnabled reports whether Google sign-in is configured.
func (s *SessionService) GoogleEnabled() bool {
	return s.Google != nil && s.Google.ClientID != ""
}

// GoogleAuthURL is where the browser is sent to start a Google sign-in.
func (s *SessionService) GoogleAuthURL(state string) (string, error) {
	if !s.GoogleEnabled() {
		return "", notFound("Google sign-in is not configured")
	}
	return s.Google.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// GoogleResult is the outcome of a Google callback: either a session for a
// known user or a token to finish creating the account with.
type GoogleResult struct {
	Session      *Session
	ProfileToken string
	Email        string
	Name         string
	Picture      string
}

// NeedsProfileCompletion reports whether the user still has to pick a role.
func (r GoogleResult) NeedsProfileCompletion() bool {
	return r.Session == nil
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleCallback exchanges an authorization code and signs the Google user
// in. A Google account whose email matches an existing user signs in as that
// user and gets linked to it.
func (s *SessionService) GoogleCallback(ctx context.Context, code string) (GoogleResult, error) {
	log := slogx.FromContext(ctx)

	if !s.GoogleEnabled() {
		return GoogleResult{}, notFound("Google sign-in is not configured")
	}
	if code == "" {
		return GoogleResult{}, invalid("Missing authorization code")
	}

	tok, err := s.Google.Exchange(ctx, code)
	if err != nil {
		log.Warn("google code exchange failed", slog.Any("error", err))
		return GoogleResult{}, unauthorized("Google sign-in failed")
	}

	info, err := s.fetchUserInfo(ctx, tok)
	if err != nil {
		return GoogleResult{}, internal(err)
	}
	if info.Sub == "" || info.Email == "" {
		return GoogleResult{}, unauthorized("Google account has no email")
	}
	if !info.EmailVerified {
		return GoogleResult{}, unauthorized("Google account email is not verified")
	}

	email := domain.NormalizeEmail(info.Email)
	u, err := s.Store.Users().GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if u.ProviderID == "" {
			if err := s.Store.Users().LinkProvider(ctx, u.ID, info.Sub); err != nil {
				return GoogleResult{}, internal(fmt.Errorf("link provider: %w", err))
			}
			u.ProviderID = info.Sub
			log.Info("linked google account", slog.String("user_id", u.ID))
		}
		sess, err := s.Issue(u)
		if err != nil {
			return GoogleResult{}, err
		}
		return GoogleResult{Session: &sess, Email: email, Name: info.Name, Picture: info.Picture}, nil

	case errors.Is(err, store.ErrNotFound):
		token, err := s.KeyManager.Sign(jwtx.NewProfileCompletionClaims(
			ProviderGoogle, info.Sub, email, info.Name, info.Picture,
			jwtx.DefaultProfileCompletionTTL, s.Issuer, time.Now().UTC(),
		))
		if err != nil {
			return GoogleResult{}, internal(fmt.Errorf("sign profile token: %w", err))
		}
		return GoogleResult{ProfileToken: token, Email: email, Name: info.Name, Picture: info.Picture}, nil

	default:
		return GoogleResult{}, internal(err)
	}
}

func (s *SessionService) fetchUserInfo(ctx context.Context, tok *oauth2.Token) (googleUserInfo, error) {
	url := s.UserInfoURL
	if url == "" {
		url = GoogleUserInfoURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return googleUserInfo{}, err
	}

	resp, err := s.Google.Client(ctx, tok).Do(req)
	if err != nil {
		return googleUserInfo{}, fmt.Errorf("google userinfo: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return googleUserInfo{}, fmt.Errorf("google userinfo: unexpected status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return googleUserInfo{}, fmt.Errorf("google userinfo: %w", err)
	}
	return info, nil
}

// VerifyProfileToken checks a profile completion token and returns its claims.
func (s *SessionService) VerifyProfileToken(raw string) (jwtx.Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return jwtx.Claims{}, unauthorized("Missing profile completion token")
	}

	claims, err := s.KeyManager.Verifier.Verify(raw)
	if err != nil {
		return jwtx.Claims{}, unauthorized("Invalid or expired profile completion token")
	}
	if err := claims.ValidatePurpose(jwtx.PurposeProfileCompletion); err != nil {
		return jwtx.Claims{}, unauthorized("Invalid or expired profile completion token")
	}
	return claims, nil
}
