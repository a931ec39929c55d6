package dreamsdk

import (
	"context"
	"net/http"
	"net/url"
)

// Session makes requests as a signed-in user. It is safe for concurrent use.
type Session struct {
	client *Client
	token  string
}

// Token returns the raw session token.
func (s *Session) Token() string { return s.token }

func (s *Session) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	return s.client.doRequest(ctx, method, path, body, s.token)
}

// Me returns the signed-in user.
func (s *Session) Me(ctx context.Context) (*UserResponse, error) {
	resp, err := s.do(ctx, http.MethodGet, "/api/auth/session", nil)
	if err != nil {
		return nil, err
	}

	var out UserResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignOut asks the server to clear the session cookie. Bearer tokens stay
// valid until they expire.
func (s *Session) SignOut(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodPost, "/api/auth/signout", nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

func (s *Session) GetProfile(ctx context.Context) (*UserResponse, error) {
	resp, err := s.do(ctx, http.MethodGet, "/api/user/profile", nil)
	if err != nil {
		return nil, err
	}

	var out UserResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*UserResponse, error) {
	resp, err := s.do(ctx, http.MethodPut, "/api/user/profile", req)
	if err != nil {
		return nil, err
	}

	var out UserResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEvents returns events newest first.
func (s *Session) ListEvents(ctx context.Context, opts ListEventsOptions) ([]EventResponse, error) {
	q := url.Values{}
	if opts.Status != "" {
		q.Set("status", opts.Status)
	}
	if opts.OrganizerID != "" {
		q.Set("organizerId", opts.OrganizerID)
	}
	path := "/api/events"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	resp, err := s.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var out ListEventsResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return out.Events, nil
}

func (s *Session) CreateEvent(ctx context.Context, req CreateEventRequest) (*EventResponse, error) {
	return s.event(ctx, http.MethodPost, "/api/events", req, http.StatusCreated)
}

func (s *Session) GetEvent(ctx context.Context, id string) (*EventResponse, error) {
	return s.event(ctx, http.MethodGet, "/api/events/"+url.PathEscape(id), nil, http.StatusOK)
}

func (s *Session) UpdateEvent(ctx context.Context, id string, req UpdateEventRequest) (*EventResponse, error) {
	return s.event(ctx, http.MethodPut, "/api/events/"+url.PathEscape(id), req, http.StatusOK)
}

func (s *Session) DeleteEvent(ctx context.Context, id string) error {
	resp, err := s.do(ctx, http.MethodDelete, "/api/events/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	return checkStatusNoContent(resp)
}

// RSVP records the caller's attendance. RSVPDeclined removes them.
func (s *Session) RSVP(ctx context.Context, id, status string) (*EventResponse, error) {
	return s.event(ctx, http.MethodPost, "/api/events/"+url.PathEscape(id)+"/rsvp", RSVPRequest{Status: status}, http.StatusOK)
}

// SetStatus changes an event's status. Organizer only.
func (s *Session) SetStatus(ctx context.Context, id, status string) (*EventResponse, error) {
	return s.event(ctx, http.MethodPut, "/api/events/"+url.PathEscape(id)+"/status", StatusRequest{Status: status}, http.StatusOK)
}

func (s *Session) event(ctx context.Context, method, path string, body any, expected int) (*EventResponse, error) {
	resp, err := s.do(ctx, method, path, body)
	if err != nil {
		return nil, err
	}

	var out EventResponse
	if err := decodeJSON(resp, &out, expected); err != nil {
		return nil, err
	}
	return &out, nil
}
