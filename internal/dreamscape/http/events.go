package http

import (
	"errors"
	"net/http"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/service"
	"github.com/dreamscape-events/dreamscape/pkg/dreamsdk"
	"github.com/dreamscape-events/dreamscape/pkg/httpx"
)

type EventsHandler struct {
	Events *service.EventService
}

// createEventBody mirrors dreamsdk.CreateEventRequest but keeps the datetime
// as text so the service can accept its local formats too.
type createEventBody struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Datetime    string `json:"datetime"`
	Location    string `json:"location"`
	EventType   string `json:"eventType"`
}

type updateEventBody struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Datetime    *string `json:"datetime"`
	Location    *string `json:"location"`
	EventType   *string `json:"eventType"`
}

// HandleList lists events.
//
//	@Summary		List events
//	@Description	Newest first. The status filter matches the status clients see, so `completed` includes published events whose time has passed.
//	@Tags			Events
//	@Produce		json
//	@Param			status		query		string	false	"draft, published, cancelled or completed"
//	@Param			organizerId	query		string	false	"Organizer user id"
//	@Success		200			{object}	dreamsdk.ListEventsResponse
//	@Failure		401			{object}	dreamsdk.ErrorResponse
//	@Failure		500			{object}	dreamsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/events [get].
func (h *EventsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	views, err := h.Events.List(r.Context(), service.ListEventsParams{
		Status:      q.Get("status"),
		OrganizerID: q.Get("organizerId"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := dreamsdk.ListEventsResponse{Events: make([]dreamsdk.EventResponse, 0, len(views))}
	for _, v := range views {
		resp.Events = append(resp.Events, toEventResponse(v))
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// HandleCreate creates an event owned by the caller.
//
//	@Summary		Create event
//	@Description	New events are published and list the organizer as attending.
//	@Tags			Events
//	@Accept			json
//	@Produce		json
//	@Param			request	body		dreamsdk.CreateEventRequest	true	"Event"
//	@Success		201		{object}	dreamsdk.EventResponse
//	@Failure		400		{object}	dreamsdk.ErrorResponse
//	@Failure		401		{object}	dreamsdk.ErrorResponse
//	@Security		BearerAuth
//	@Router			/api/events [post].
func (h *EventsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		writeError(w, r, errNoSession)
		return
	}

	var body createEventBody
	if err := httpx.DecodeJSON(r, &body); err != nil && !errors.Is(err, httpx.ErrEmptyBody) {
		writeError(w, r, errBadBody)
		return
	}

	v, err := h.Events.Create(r.Context(), userID, service.CreateEventParams{
		Title:       body.Title,
		Description: body.Description,
		Datetime:    body.Datetime,
		Location:    body.Location,
		EventType:   body.EventType,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toEventResponse(v))
}

// HandleGet returns one event.
//
//	@Summary	Get event
//	@Tags		Events
//	@Produce	json
//	@Param		id	path		string	true	"Event id"
//	@Success	200	{object}	dreamsdk.EventResponse
//	@Failure	401	{object}	dreamsdk.ErrorResponse
//	@Failure	404	{object}	dreamsdk.ErrorResponse
//	@Security	BearerAuth
//	@Router		/api/events/{id} [get].
func (h *EventsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	v, err := h.Events.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toEventResponse(v))
}

// HandleUpdate changes event fields. Organizer only.
//
//	@Summary	Update event
//	@Tags		Events
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string						true	"Event id"
//	@Param		request	body		dreamsdk.UpdateEventRequest	true	"Fields to change"
//	@Success	200		{object}	dreamsdk.EventResponse
//	@Failure	400		{object}	dreamsdk.ErrorResponse
//	@Failure	401		{object}	dreamsdk.ErrorResponse
//	@Failure	403		{object}	dreamsdk.ErrorResponse	"Caller is not the organizer"
//	@Failure	404		{object}	dreamsdk.ErrorResponse
//	@Security	BearerAuth
//	@Router		/api/events/{id} [put].
func (h *EventsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		writeError(w, r, errNoSession)
		return
	}
	id := r.PathValue("id")

	var body updateEventBody
	if err := httpx.DecodeJSON(r, &body); err != nil && !errors.Is(err, httpx.ErrEmptyBody) {
		// Existence and ownership are reported before the body.
		if _, err := h.Events.RequireOrganizer(r.Context(), userID, id); err != nil {
			writeError(w, r, err)
			return
		}
		writeError(w, r, errBadBody)
		return
	}

	v, err := h.Events.Update(r.Context(), userID, id, service.UpdateEventParams{
		Title:       body.Title,
		Description: body.Description,
		Datetime:    body.Datetime,
		Location:    body.Location,
		EventType:   body.EventType,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toEventResponse(v))
}

// HandleDelete removes an event. Organizer only.
//
//	@Summary	Delete event
//	@Tags		Events
//	@Param		id	path	string	true	"Event id"
//	@Success	204
//	@Failure	401	{object}	dreamsdk.ErrorResponse
//	@Failure	403	{object}	dreamsdk.ErrorResponse
//	@Failure	404	{object}	dreamsdk.ErrorResponse
//	@Security	BearerAuth
//	@Router		/api/events/{id} [delete].
func (h *EventsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		writeError(w, r, errNoSession)
		return
	}

	if err := h.Events.Delete(r.Context(), userID, r.PathValue("id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleRSVP records the caller's response. Declining removes the caller
// from the attendee list.
//
//	@Summary	RSVP to event
//	@Tags		Events
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string				true	"Event id"
//	@Param		request	body		dreamsdk.RSVPRequest	true	"attending, maybe or declined"
//	@Success	200		{object}	dreamsdk.EventResponse
//	@Failure	400		{object}	dreamsdk.ErrorResponse
//	@Failure	401		{object}	dreamsdk.ErrorResponse
//	@Failure	404		{object}	dreamsdk.ErrorResponse
//	@Security	BearerAuth
//	@Router		/api/events/{id}/rsvp [post].
func (h *EventsHandler) HandleRSVP(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		writeError(w, r, errNoSession)
		return
	}

	var body dreamsdk.RSVPRequest
	if err := httpx.DecodeJSON(r, &body); err != nil && !errors.Is(err, httpx.ErrEmptyBody) {
		writeError(w, r, errBadBody)
		return
	}

	v, err := h.Events.RSVP(r.Context(), userID, r.PathValue("id"), body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toEventResponse(v))
}

// HandleStatus sets the lifecycle status. Organizer only.
//
//	@Summary	Set event status
//	@Tags		Events
//	@Accept		json
//	@Produce	json
//	@Param		id		path		string					true	"Event id"
//	@Param		request	body		dreamsdk.StatusRequest	true	"draft, published, cancelled or completed"
//	@Success	200		{object}	dreamsdk.EventResponse
//	@Failure	400		{object}	dreamsdk.ErrorResponse
//	@Failure	401		{object}	dreamsdk.ErrorResponse
//	@Failure	403		{object}	dreamsdk.ErrorResponse
//	@Failure	404		{object}	dreamsdk.ErrorResponse
//	@Security	BearerAuth
//	@Router		/api/events/{id}/status [put].
func (h *EventsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r)
	if !ok {
		writeError(w, r, errNoSession)
		return
	}

	// An unreadable body reaches the service as an empty status so that
	// existence and ownership are still checked first.
	var body dreamsdk.StatusRequest
	_ = httpx.DecodeJSON(r, &body)

	v, err := h.Events.SetStatus(r.Context(), userID, r.PathValue("id"), body.Status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toEventResponse(v))
}
