package sqlite

import (
	"context"
	"database/sql"
	"strings"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same queries run
// inside and outside a transaction.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func newQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// Rows as stored. Timestamps are unix milliseconds.

type userRow struct {
	ID           string
	FirstName    string
	LastName     string
	Email        string
	PasswordHash string
	Role         string
	Image        string
	ProviderID   string
	CreatedAt    int64
	UpdatedAt    int64
}

type eventRow struct {
	ID          string
	Title       string
	Description string
	Datetime    int64
	Location    string
	EventType   string
	OrganizerID string
	Status      string
	CreatedAt   int64
	UpdatedAt   int64
}

type attendeeRow struct {
	EventID string
	UserID  string
	Status  string
}

const userColumns = `id, first_name, last_name, email, password_hash, role, image, provider_id, created_at, updated_at`

func scanUser(s interface{ Scan(...any) error }) (userRow, error) {
	var u userRow
	err := s.Scan(
		&u.ID,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.PasswordHash,
		&u.Role,
		&u.Image,
		&u.ProviderID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

const createUser = `
INSERT INTO users (` + userColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateUser(ctx context.Context, u userRow) error {
	_, err := q.db.ExecContext(ctx, createUser,
		u.ID,
		u.FirstName,
		u.LastName,
		u.Email,
		u.PasswordHash,
		u.Role,
		u.Image,
		u.ProviderID,
		u.CreatedAt,
		u.UpdatedAt,
	)
	return err
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id string) (userRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (userRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

func (q *Queries) GetUsersByIDs(ctx context.Context, ids []string) ([]userRow, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id IN (` + placeholders(len(ids)) + `)`
	rows, err := q.db.QueryContext(ctx, query, anySlice(ids)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []userRow
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

const countUsersByEmail = `SELECT COUNT(*) FROM users WHERE email = ?`

func (q *Queries) CountUsersByEmail(ctx context.Context, email string) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countUsersByEmail, email).Scan(&n)
	return n, err
}

const updateUserProfile = `
UPDATE users SET first_name = ?, last_name = ?, image = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) UpdateUserProfile(ctx context.Context, id, firstName, lastName, image string, at int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateUserProfile, firstName, lastName, image, at, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateUserPasswordHash = `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateUserPasswordHash(ctx context.Context, id, hash string, at int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateUserPasswordHash, hash, at, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateUserProviderID = `UPDATE users SET provider_id = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateUserProviderID(ctx context.Context, id, providerID string, at int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateUserProviderID, providerID, at, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const eventColumns = `id, title, description, datetime, location, event_type, organizer_id, status, created_at, updated_at`

func scanEvent(s interface{ Scan(...any) error }) (eventRow, error) {
	var e eventRow
	err := s.Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&e.Datetime,
		&e.Location,
		&e.EventType,
		&e.OrganizerID,
		&e.Status,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}

const createEvent = `
INSERT INTO events (` + eventColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateEvent(ctx context.Context, e eventRow) error {
	_, err := q.db.ExecContext(ctx, createEvent,
		e.ID,
		e.Title,
		e.Description,
		e.Datetime,
		e.Location,
		e.EventType,
		e.OrganizerID,
		e.Status,
		e.CreatedAt,
		e.UpdatedAt,
	)
	return err
}

const getEvent = `SELECT ` + eventColumns + ` FROM events WHERE id = ?`

func (q *Queries) GetEvent(ctx context.Context, id string) (eventRow, error) {
	return scanEvent(q.db.QueryRowContext(ctx, getEvent, id))
}

func (q *Queries) ListEvents(ctx context.Context, statuses []string, organizerID string) ([]eventRow, error) {
	var (
		where []string
		args  []any
	)
	if len(statuses) > 0 {
		where = append(where, `status IN (`+placeholders(len(statuses))+`)`)
		args = append(args, anySlice(statuses)...)
	}
	if organizerID != "" {
		where = append(where, `organizer_id = ?`)
		args = append(args, organizerID)
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, ` AND `)
	}
	query += ` ORDER BY datetime DESC, id DESC`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []eventRow
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type updateEventParams struct {
	Title       *string
	Description *string
	Datetime    *int64
	Location    *string
	EventType   *string
	UpdatedAt   int64
	ID          string
}

const updateEvent = `
UPDATE events SET
    title       = COALESCE(?, title),
    description = COALESCE(?, description),
    datetime    = COALESCE(?, datetime),
    location    = COALESCE(?, location),
    event_type  = COALESCE(?, event_type),
    updated_at  = ?
WHERE id = ?`

func (q *Queries) UpdateEvent(ctx context.Context, p updateEventParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateEvent,
		nullable(p.Title),
		nullable(p.Description),
		nullable(p.Datetime),
		nullable(p.Location),
		nullable(p.EventType),
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const setEventStatus = `UPDATE events SET status = ?, updated_at = ? WHERE id = ?`

func (q *Queries) SetEventStatus(ctx context.Context, id, status string, at int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, setEventStatus, status, at, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const compareAndSetEventStatus = `UPDATE events SET status = ? WHERE id = ? AND status = ?`

func (q *Queries) CompareAndSetEventStatus(ctx context.Context, id, from, to string) (int64, error) {
	res, err := q.db.ExecContext(ctx, compareAndSetEventStatus, to, id, from)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const completeElapsedEvents = `
UPDATE events SET status = 'completed'
WHERE status = 'published' AND datetime < ?`

func (q *Queries) CompleteElapsedEvents(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, completeElapsedEvents, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const touchEvent = `UPDATE events SET updated_at = ? WHERE id = ?`

func (q *Queries) TouchEvent(ctx context.Context, id string, at int64) error {
	_, err := q.db.ExecContext(ctx, touchEvent, at, id)
	return err
}

const deleteEvent = `DELETE FROM events WHERE id = ?`

func (q *Queries) DeleteEvent(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteEvent, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) ListAttendees(ctx context.Context, eventIDs []string) ([]attendeeRow, error) {
	if len(eventIDs) == 0 {
		return nil, nil
	}

	query := `SELECT event_id, user_id, status FROM event_attendees
WHERE event_id IN (` + placeholders(len(eventIDs)) + `)
ORDER BY event_id, position`

	rows, err := q.db.QueryContext(ctx, query, anySlice(eventIDs)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []attendeeRow
	for rows.Next() {
		var a attendeeRow
		if err := rows.Scan(&a.EventID, &a.UserID, &a.Status); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const upsertAttendee = `
INSERT INTO event_attendees (event_id, user_id, status, position)
VALUES (?, ?, ?, (SELECT COALESCE(MAX(position), 0) + 1 FROM event_attendees WHERE event_id = ?))
ON CONFLICT (event_id, user_id) DO UPDATE SET status = excluded.status`

func (q *Queries) UpsertAttendee(ctx context.Context, eventID, userID, status string) error {
	_, err := q.db.ExecContext(ctx, upsertAttendee, eventID, userID, status, eventID)
	return err
}

const deleteAttendee = `DELETE FROM event_attendees WHERE event_id = ? AND user_id = ?`

func (q *Queries) DeleteAttendee(ctx context.Context, eventID, userID string) error {
	_, err := q.db.ExecContext(ctx, deleteAttendee, eventID, userID)
	return err
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func anySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// nullable turns a nil pointer into SQL NULL so COALESCE keeps the old value.
func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

type signingKeyRow struct {
	Kid        string
	Algorithm  string
	PrivateKey []byte
	CreatedAt  int64
	ExpiresAt  int64
}

const createSigningKey = `
INSERT INTO signing_keys (kid, algorithm, private_key, created_at, expires_at)
VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateSigningKey(ctx context.Context, k signingKeyRow) error {
	_, err := q.db.ExecContext(ctx, createSigningKey, k.Kid, k.Algorithm, k.PrivateKey, k.CreatedAt, k.ExpiresAt)
	return err
}

const listSigningKeys = `
SELECT kid, algorithm, private_key, created_at, expires_at
FROM signing_keys
WHERE expires_at > ?
ORDER BY created_at, kid`

func (q *Queries) ListSigningKeys(ctx context.Context, now int64) ([]signingKeyRow, error) {
	rows, err := q.db.QueryContext(ctx, listSigningKeys, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []signingKeyRow
	for rows.Next() {
		var k signingKeyRow
		if err := rows.Scan(&k.Kid, &k.Algorithm, &k.PrivateKey, &k.CreatedAt, &k.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

const deleteExpiredSigningKeys = `DELETE FROM signing_keys WHERE expires_at <= ?`

func (q *Queries) DeleteExpiredSigningKeys(ctx context.Context, now int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpiredSigningKeys, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
