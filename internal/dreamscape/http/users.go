package http

import (
	"errors"
	"net/http"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/service"
	"github.com/dreamscape-events/dreamscape/pkg/dreamsdk"
	"github.com/dreamscape-events/dreamscape/pkg/httpx"
)

type UsersHandler struct {
	Identity *service.IdentityService
}

// HandleCheckEmail reports whether an account exists for an email.
//
//	@Summary	Check email
//	@Tags		Users
//	@Produce	json
//	@Param		email	query		string	true	"Email address"
//	@Success	200		{object}	dreamsdk.CheckEmailResponse
//	@Failure	400		{object}	dreamsdk.ErrorResponse
//	@Failure	429		{object}	dreamsdk.ErrorResponse
//	@Router		/api/user/check [get].
func (h *UsersHandler) HandleCheckEmail(w http.ResponseWriter, r *http.Request) {
	exists, err := h.Identity.CheckEmail(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, dreamsdk.CheckEmailResponse{Exists: exists})
}

// HandleGetProfile returns the caller's profile.
//
//	@Summary	Get profile
//	@Tags		Users
//	@Produce	json
//	@Success	200	{object}	dreamsdk.UserResponse
//	@Failure	401	{object}	dreamsdk.ErrorResponse
//	@Failure	404	{object}	dreamsdk.ErrorResponse
//	@Security	BearerAuth
//	@Router		/api/user/profile [get].
func (h *UsersHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		writeError(w, r, errNoSession)
		return
	}

	u, err := h.Identity.GetProfile(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}

// HandleUpdateProfile replaces the caller's name and image.
//
//	@Summary	Update profile
//	@Tags		Users
//	@Accept		json
//	@Produce	json
//	@Param		request	body		dreamsdk.UpdateProfileRequest	true	"Profile"
//	@Success	200		{object}	dreamsdk.UserResponse
//	@Failure	400		{object}	dreamsdk.ErrorResponse
//	@Failure	401		{object}	dreamsdk.ErrorResponse
//	@Security	BearerAuth
//	@Router		/api/user/profile [put].
func (h *UsersHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		writeError(w, r, errNoSession)
		return
	}

	var req dreamsdk.UpdateProfileRequest
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, httpx.ErrEmptyBody) {
		writeError(w, r, errBadBody)
		return
	}

	u, err := h.Identity.UpdateProfile(r.Context(), userID, service.ProfileParams{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Image:     req.Image,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toUserResponse(u))
}
