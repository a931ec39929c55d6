package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/service"
	"github.com/dreamscape-events/dreamscape/pkg/dreamsdk"
	"github.com/dreamscape-events/dreamscape/pkg/httpx"
)

type AuthHandler struct {
	Identity *service.IdentityService
	Sessions *service.SessionService

	// SecureCookies sets the Secure flag on session cookies.
	SecureCookies bool
}

// HandleSignup registers a user.
//
//	@Summary		Sign up
//	@Description	Creates a user with a local password. Every missing field is listed in `errors`.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dreamsdk.SignupRequest	true	"New user"
//	@Success		201		{object}	dreamsdk.UserResponse
//	@Failure		400		{object}	dreamsdk.ErrorResponse	"Validation error or email already registered"
//	@Failure		500		{object}	dreamsdk.ErrorResponse
//	@Router			/api/auth/signup [post].
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req dreamsdk.SignupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, httpx.ErrEmptyBody) {
		writeError(w, r, errBadBody)
		return
	}

	u, err := h.Identity.Signup(r.Context(), service.SignupParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
		Role:      req.Role,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toUserResponse(u))
}

// HandleSignin authenticates with email and password.
//
//	@Summary		Sign in
//	@Description	Returns a session token and sets it as the `dreamscape_session` cookie.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dreamsdk.SigninRequest	true	"Credentials"
//	@Success		200		{object}	dreamsdk.SessionResponse
//	@Failure		400		{object}	dreamsdk.ErrorResponse
//	@Failure		401		{object}	dreamsdk.ErrorResponse	"Invalid email or password"
//	@Failure		429		{object}	dreamsdk.ErrorResponse
//	@Router			/api/auth/signin [post].
func (h *AuthHandler) HandleSignin(w http.ResponseWriter, r *http.Request) {
	var req dreamsdk.SigninRequest
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, httpx.ErrEmptyBody) {
		writeError(w, r, errBadBody)
		return
	}

	sess, err := h.Sessions.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setSessionCookie(w, sess)
	httpx.WriteJSON(w, http.StatusOK, toSessionResponse(sess))
}

// HandleSignout clears the session cookie.
//
//	@Summary	Sign out
//	@Tags		Auth
//	@Success	204
//	@Router		/api/auth/signout [post].
func (h *AuthHandler) HandleSignout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpx.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleSession returns the signed-in user.
//
//	@Summary	Current session
//	@Tags		Auth
//	@Produce	json
//	@Success	200	{object}	dreamsdk.UserResponse
//	@Failure	401	{object}	dreamsdk.ErrorResponse
//	@Security	BearerAuth
//	@Router		/api/auth/session [get].
func (h *AuthHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		writeError(w, r, errNoSession)
		return
	}

	u, err := h.Identity.GetProfile(r.Context(), userID)
	if err != nil {
		if service.KindOf(err) == service.KindNotFound {
			// The account behind a valid token is gone.
			err = errNoSession
		}
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleCompleteProfile creates the account of a first-time external sign-in.
//
//	@Summary		Complete profile
//	@Description	Finishes a Google sign-in for an unknown email using the profile token from the callback.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dreamsdk.CompleteProfileRequest	true	"Profile"
//	@Success		201		{object}	dreamsdk.SessionResponse
//	@Failure		400		{object}	dreamsdk.ErrorResponse
//	@Failure		401		{object}	dreamsdk.ErrorResponse	"Missing, invalid or expired profile token"
//	@Router			/api/auth/complete-profile [post].
func (h *AuthHandler) HandleCompleteProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req dreamsdk.CompleteProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, httpx.ErrEmptyBody) {
		writeError(w, r, errBadBody)
		return
	}

	claims, err := h.Sessions.VerifyProfileToken(req.ProfileToken)
	if err != nil {
		writeError(w, r, err)
		return
	}

	u, err := h.Identity.CompleteProfile(ctx, claims, service.CompleteProfileParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		Password:  req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	sess, err := h.Sessions.Issue(u)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.setSessionCookie(w, sess)
	httpx.WriteJSON(w, http.StatusCreated, toSessionResponse(sess))
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, s service.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     httpx.SessionCookieName,
		Value:    s.Token,
		Path:     "/",
		Expires:  s.ExpiresAt,
		MaxAge:   int(time.Until(s.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}
