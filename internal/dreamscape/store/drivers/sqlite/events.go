package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/domain"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/store"
)

type eventsRepo struct {
	db *sql.DB
	q  *Queries
}

func (r *eventsRepo) CreateEvent(ctx context.Context, e domain.Event) error {
	err := withTx(ctx, r.db, func(q *Queries) error {
		if err := q.CreateEvent(ctx, eventRow{
			ID:          e.ID,
			Title:       e.Title,
			Description: e.Description,
			Datetime:    millis(e.Datetime),
			Location:    e.Location,
			EventType:   string(e.EventType),
			OrganizerID: e.OrganizerID,
			Status:      string(e.Status),
			CreatedAt:   millis(e.CreatedAt),
			UpdatedAt:   millis(e.UpdatedAt),
		}); err != nil {
			return err
		}

		for _, a := range e.Attendees {
			if err := q.UpsertAttendee(ctx, e.ID, a.UserID, string(a.Status)); err != nil {
				return err
			}
		}
		return nil
	})
	return mapConstraint(err)
}

func (r *eventsRepo) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	return loadEvent(ctx, r.q, id)
}

func loadEvent(ctx context.Context, q *Queries, id string) (domain.Event, error) {
	row, err := q.GetEvent(ctx, id)
	if err != nil {
		return domain.Event{}, mapNotFound(err)
	}

	attendees, err := q.ListAttendees(ctx, []string{id})
	if err != nil {
		return domain.Event{}, err
	}
	return mapEvent(row, attendees), nil
}

func (r *eventsRepo) ListEvents(ctx context.Context, f store.EventFilter) ([]domain.Event, error) {
	statuses := make([]string, 0, len(f.Statuses))
	for _, s := range f.Statuses {
		statuses = append(statuses, string(s))
	}

	rows, err := r.q.ListEvents(ctx, statuses, f.OrganizerID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}

	attendees, err := r.q.ListAttendees(ctx, ids)
	if err != nil {
		return nil, err
	}
	byEvent := make(map[string][]attendeeRow, len(rows))
	for _, a := range attendees {
		byEvent[a.EventID] = append(byEvent[a.EventID], a)
	}

	out := make([]domain.Event, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapEvent(row, byEvent[row.ID]))
	}
	return out, nil
}

func (r *eventsRepo) UpdateEvent(ctx context.Context, id string, u store.EventUpdate) (domain.Event, error) {
	p := updateEventParams{
		Title:       u.Title,
		Description: u.Description,
		Location:    u.Location,
		UpdatedAt:   millis(u.UpdatedAt),
		ID:          id,
	}
	if u.Datetime != nil {
		ms := millis(*u.Datetime)
		p.Datetime = &ms
	}
	if u.EventType != nil {
		t := string(*u.EventType)
		p.EventType = &t
	}

	if err := affected(r.q.UpdateEvent(ctx, p)); err != nil {
		return domain.Event{}, err
	}
	return r.GetEvent(ctx, id)
}

func (r *eventsRepo) SetStatus(ctx context.Context, id string, status domain.Status, at time.Time) (domain.Event, error) {
	if err := affected(r.q.SetEventStatus(ctx, id, string(status), millis(at))); err != nil {
		return domain.Event{}, err
	}
	return r.GetEvent(ctx, id)
}

func (r *eventsRepo) CompareAndSetStatus(ctx context.Context, id string, from, to domain.Status) error {
	n, err := r.q.CompareAndSetEventStatus(ctx, id, string(from), string(to))
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *eventsRepo) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	return r.q.CompleteElapsedEvents(ctx, millis(now))
}

func (r *eventsRepo) ApplyRSVP(
	ctx context.Context,
	id, userID string,
	status domain.RSVPStatus,
	at time.Time,
) (domain.Event, error) {
	var out domain.Event

	err := withTx(ctx, r.db, func(q *Queries) error {
		e, err := loadEvent(ctx, q, id)
		if err != nil {
			return err
		}

		if !e.ApplyRSVP(userID, status) {
			out = e
			return nil
		}

		if status == domain.RSVPDeclined {
			err = q.DeleteAttendee(ctx, id, userID)
		} else {
			err = q.UpsertAttendee(ctx, id, userID, string(status))
		}
		if err != nil {
			return err
		}

		if err := q.TouchEvent(ctx, id, millis(at)); err != nil {
			return err
		}
		e.UpdatedAt = fromMillis(millis(at))

		out = e
		return nil
	})
	if err != nil {
		return domain.Event{}, mapConstraint(err)
	}
	return out, nil
}

func (r *eventsRepo) DeleteEvent(ctx context.Context, id string) error {
	return affected(r.q.DeleteEvent(ctx, id))
}
