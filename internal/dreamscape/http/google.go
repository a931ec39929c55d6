package http

import (
	"net/http"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/service"
	"github.com/dreamscape-events/dreamscape/pkg/cryptox"
	"github.com/dreamscape-events/dreamscape/pkg/dreamsdk"
	"github.com/dreamscape-events/dreamscape/pkg/httpx"
)

const (
	stateCookieName = "dreamscape_oauth_state"
	stateCookiePath = "/api/auth/google"
	stateMaxAge     = 10 * 60
)

var errBadState = &service.Error{Kind: service.KindValidation, Msg: "Invalid OAuth state"}

// HandleGoogleLogin redirects the browser to Google.
//
//	@Summary		Start Google sign-in
//	@Description	Redirects to Google's consent screen. Returns 404 when Google sign-in is not configured.
//	@Tags			Auth
//	@Success		302
//	@Failure		404	{object}	dreamsdk.ErrorResponse
//	@Router			/api/auth/google/login [get].
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		writeError(w, r, err)
		return
	}

	target, err := h.Sessions.GoogleAuthURL(state)
	if err != nil {
		writeError(w, r, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     stateCookiePath,
		MaxAge:   stateMaxAge,
		HttpOnly: true,
		Secure:   h.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.NoCache(w)
	http.Redirect(w, r, target, http.StatusFound)
}

// HandleGoogleCallback finishes a Google sign-in.
//
//	@Summary		Google sign-in callback
//	@Description	Known emails get a session. Unknown emails get `needsProfileCompletion` and a short-lived profile token for /api/auth/complete-profile.
//	@Tags			Auth
//	@Produce		json
//	@Param			code	query		string	true	"Authorization code"
//	@Param			state	query		string	true	"State issued by /api/auth/google/login"
//	@Success		200		{object}	dreamsdk.GoogleCallbackResponse
//	@Failure		400		{object}	dreamsdk.ErrorResponse
//	@Failure		401		{object}	dreamsdk.ErrorResponse
//	@Router			/api/auth/google/callback [get].
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	c, err := r.Cookie(stateCookieName)
	if err != nil || c.Value == "" || c.Value != r.URL.Query().Get("state") {
		writeError(w, r, errBadState)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Path: stateCookiePath, MaxAge: -1})

	res, err := h.Sessions.GoogleCallback(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := dreamsdk.GoogleCallbackResponse{
		NeedsProfileCompletion: res.NeedsProfileCompletion(),
		ProfileToken:           res.ProfileToken,
		Email:                  res.Email,
		Name:                   res.Name,
		Picture:                res.Picture,
	}
	if res.Session != nil {
		h.setSessionCookie(w, *res.Session)
		sess := toSessionResponse(*res.Session)
		resp.Session = &sess
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}
