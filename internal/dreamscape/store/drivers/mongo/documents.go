package mongo

import (
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/domain"
)

type userDoc struct {
	ID         string    `bson:"_id"`
	FirstName  string    `bson:"firstName"`
	LastName   string    `bson:"lastName"`
	Email      string    `bson:"email"`
	Password   string    `bson:"password,omitempty"`
	Role       string    `bson:"role"`
	Image      string    `bson:"image,omitempty"`
	ProviderID string    `bson:"providerId,omitempty"`
	CreatedAt  time.Time `bson:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt"`
}

type attendeeDoc struct {
	User   string `bson:"user"`
	Status string `bson:"status"`
}

type eventDoc struct {
	ID          string        `bson:"_id"`
	Title       string        `bson:"title"`
	Description string        `bson:"description"`
	Datetime    time.Time     `bson:"datetime"`
	Location    string        `bson:"location"`
	EventType   string        `bson:"eventType,omitempty"`
	Organizer   string        `bson:"organizer"`
	Attendees   []attendeeDoc `bson:"attendees"`
	Status      string        `bson:"status"`
	CreatedAt   time.Time     `bson:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt"`
}

func toUserDoc(u domain.User) userDoc {
	return userDoc{
		ID:         u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		Password:   u.PasswordHash,
		Role:       string(u.Role),
		Image:      u.Image,
		ProviderID: u.ProviderID,
		CreatedAt:  u.CreatedAt.UTC(),
		UpdatedAt:  u.UpdatedAt.UTC(),
	}
}

func (d userDoc) toDomain() domain.User {
	return domain.User{
		ID:           d.ID,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Email:        d.Email,
		PasswordHash: d.Password,
		Role:         domain.Role(d.Role),
		Image:        d.Image,
		ProviderID:   d.ProviderID,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
}

func toEventDoc(e domain.Event) eventDoc {
	attendees := make([]attendeeDoc, 0, len(e.Attendees))
	for _, a := range e.Attendees {
		attendees = append(attendees, attendeeDoc{User: a.UserID, Status: string(a.Status)})
	}

	return eventDoc{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Description,
		Datetime:    e.Datetime.UTC(),
		Location:    e.Location,
		EventType:   string(e.EventType),
		Organizer:   e.OrganizerID,
		Attendees:   attendees,
		Status:      string(e.Status),
		CreatedAt:   e.CreatedAt.UTC(),
		UpdatedAt:   e.UpdatedAt.UTC(),
	}
}

func (d eventDoc) toDomain() domain.Event {
	attendees := make([]domain.Attendee, 0, len(d.Attendees))
	for _, a := range d.Attendees {
		attendees = append(attendees, domain.Attendee{UserID: a.User, Status: domain.RSVPStatus(a.Status)})
	}

	return domain.Event{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Datetime:    d.Datetime.UTC(),
		Location:    d.Location,
		EventType:   domain.EventType(d.EventType),
		OrganizerID: d.Organizer,
		Attendees:   attendees,
		Status:      domain.Status(d.Status),
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

type signingKeyDoc struct {
	Kid        string    `bson:"_id"`
	Algorithm  string    `bson:"algorithm"`
	PrivateKey []byte    `bson:"privateKey"`
	CreatedAt  time.Time `bson:"createdAt"`
	ExpiresAt  time.Time `bson:"expiresAt"`
}

func toSigningKeyDoc(k domain.SigningKey) signingKeyDoc {
	return signingKeyDoc{
		Kid:        k.Kid,
		Algorithm:  k.Algorithm,
		PrivateKey: k.PrivateKey,
		CreatedAt:  k.CreatedAt.UTC(),
		ExpiresAt:  k.ExpiresAt.UTC(),
	}
}

func (d signingKeyDoc) toDomain() domain.SigningKey {
	return domain.SigningKey{
		Kid:        d.Kid,
		Algorithm:  d.Algorithm,
		PrivateKey: d.PrivateKey,
		CreatedAt:  d.CreatedAt.UTC(),
		ExpiresAt:  d.ExpiresAt.UTC(),
	}
}
