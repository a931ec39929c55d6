package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/domain"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/store"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type Store struct {
	db *sql.DB
	q  *Queries
}

var _ store.Store = (*Store)(nil)

// NewStore opens the database at path (":memory:" for a throwaway one).
//
// The pool is pinned to a single connection: SQLite serialises writers
// anyway, an in-memory database only exists on the connection that made it,
// and the read-modify-write in ApplyRSVP relies on nothing interleaving.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, q: newQueries(db)}, nil
}

func dsn(path string) string {
	const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	if path == ":memory:" {
		return "file::memory:?" + pragmas
	}
	if strings.Contains(path, "?") {
		return path + "&" + pragmas
	}
	return path + "?" + pragmas
}

func (s *Store) Close(context.Context) error { return s.db.Close() }

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Users() store.Users   { return &usersRepo{q: s.q} }
func (s *Store) Events() store.Events { return &eventsRepo{db: s.db, q: s.q} }

func (s *Store) SigningKeys() store.SigningKeys {
	return &signingKeysRepo{q: s.q}
}

// withTx runs fn in a transaction, rolling back on error.
func withTx(ctx context.Context, db *sql.DB, fn func(q *Queries) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(newQueries(tx)); err != nil {
		return err
	}
	return tx.Commit()
}

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapConstraint(err error) error {
	var se *sqlitedrv.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return store.ErrAlreadyExists
		case sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY:
			return store.ErrNotFound
		}

		// Primary code only, when extended codes are off.
		if se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			msg := se.Error()
			switch {
			case strings.Contains(msg, "UNIQUE"):
				return store.ErrAlreadyExists
			case strings.Contains(msg, "FOREIGN KEY"):
				return store.ErrNotFound
			}
		}
	}
	return err
}

// affected turns "0 rows touched" into ErrNotFound.
func affected(n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func millis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func mapUser(row userRow) domain.User {
	return domain.User{
		ID:           row.ID,
		FirstName:    row.FirstName,
		LastName:     row.LastName,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		Role:         domain.Role(row.Role),
		Image:        row.Image,
		ProviderID:   row.ProviderID,
		CreatedAt:    fromMillis(row.CreatedAt),
		UpdatedAt:    fromMillis(row.UpdatedAt),
	}
}

func mapEvent(row eventRow, attendees []attendeeRow) domain.Event {
	e := domain.Event{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Datetime:    fromMillis(row.Datetime),
		Location:    row.Location,
		EventType:   domain.EventType(row.EventType),
		OrganizerID: row.OrganizerID,
		Attendees:   make([]domain.Attendee, 0, len(attendees)),
		Status:      domain.Status(row.Status),
		CreatedAt:   fromMillis(row.CreatedAt),
		UpdatedAt:   fromMillis(row.UpdatedAt),
	}
	for _, a := range attendees {
		e.Attendees = append(e.Attendees, domain.Attendee{
			UserID: a.UserID,
			Status: domain.RSVPStatus(a.Status),
		})
	}
	return e
}
