package http

import (
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/domain"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/service"
	"github.com/dreamscape-events/dreamscape/pkg/dreamsdk"
)

func toUserResponse(u domain.User) dreamsdk.UserResponse {
	return dreamsdk.UserResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      string(u.Role),
		Image:     u.Image,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func toSessionResponse(s service.Session) dreamsdk.SessionResponse {
	return dreamsdk.SessionResponse{
		Token:     s.Token,
		ExpiresAt: s.ExpiresAt,
		User:      toUserResponse(s.User),
	}
}

func toUserRef(u service.UserRef) dreamsdk.UserRef {
	return dreamsdk.UserRef{ID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Email: u.Email}
}

func toEventResponse(v service.EventView) dreamsdk.EventResponse {
	attendees := make([]dreamsdk.AttendeeResponse, 0, len(v.People))
	for _, a := range v.People {
		attendees = append(attendees, dreamsdk.AttendeeResponse{User: toUserRef(a.User), Status: string(a.Status)})
	}

	return dreamsdk.EventResponse{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		Datetime:    v.Datetime,
		Location:    v.Location,
		EventType:   string(v.EventType),
		Organizer:   toUserRef(v.Organizer),
		Attendees:   attendees,
		Status:      string(v.Status),
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}
