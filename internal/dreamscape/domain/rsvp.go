package domain

// RSVPStatus is a user's declared attendance intent.
type RSVPStatus string

const (
	RSVPAttending RSVPStatus = "attending"
	RSVPMaybe     RSVPStatus = "maybe"

	// RSVPDeclined is never stored. Declining removes the entry.
	RSVPDeclined RSVPStatus = "declined"
)

func (s RSVPStatus) Valid() bool {
	switch s {
	case RSVPAttending, RSVPMaybe, RSVPDeclined:
		return true
	}
	return false
}

// Attendee is one RSVP entry embedded in an event.
type Attendee struct {
	UserID string
	Status RSVPStatus
}

// AttendeeStatus returns the caller's entry status, or false when absent.
func (e Event) AttendeeStatus(userID string) (RSVPStatus, bool) {
	for _, a := range e.Attendees {
		if a.UserID == userID {
			return a.Status, true
		}
	}
	return "", false
}

// ApplyRSVP records userID's intent on the event and reports whether the
// attendee list changed. Declining removes the entry; any other status
// overwrites an existing entry or appends a new one. The list never holds
// two entries for the same user.
func (e *Event) ApplyRSVP(userID string, status RSVPStatus) bool {
	for i, a := range e.Attendees {
		if a.UserID != userID {
			continue
		}
		if status == RSVPDeclined {
			e.Attendees = append(e.Attendees[:i:i], e.Attendees[i+1:]...)
			return true
		}
		if a.Status == status {
			return false
		}
		e.Attendees[i].Status = status
		return true
	}

	if status == RSVPDeclined {
		return false
	}
	e.Attendees = append(e.Attendees, Attendee{UserID: userID, Status: status})
	return true
}
