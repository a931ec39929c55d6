package sqlite_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/domain"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/store"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/store/drivers/sqlite"
	"github.com/dreamscape-events/dreamscape/pkg/cryptox"
	"github.com/dreamscape-events/dreamscape/pkg/idx"
	"github.com/dreamscape-events/dreamscape/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations(context.Background()))

	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func seedUser(t *testing.T, s store.Store, email string) domain.User {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	u := domain.User{
		ID:           idx.New().String(),
		FirstName:    "First",
		LastName:     "Last",
		Email:        email,
		PasswordHash: "$argon2id$stub",
		Role:         domain.RoleAttendee,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func seedEvent(t *testing.T, s store.Store, organizer string, when time.Time) domain.Event {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Millisecond)
	e := domain.NewEvent(idx.New().String(), organizer, domain.NewEventParams{
		Title:    "Event " + when.Format(time.RFC3339),
		Datetime: when.Truncate(time.Millisecond),
		Location: "Hall A",
	}, now)
	require.NoError(t, s.Events().CreateEvent(context.Background(), e))
	return e
}

func TestMigrationsAreIdempotent(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.ApplyMigrations(context.Background()))
	require.NoError(t, s.Ping(context.Background()))
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	u := seedUser(t, s, "ada@example.com")

	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u, got)

	got, err = s.Users().GetUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)

	_, err = s.Users().GetUserByEmail(ctx, "nobody@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	exists, err := s.Users().EmailExists(ctx, "ada@example.com")
	require.NoError(t, err)
	require.True(t, exists)

	t.Run("duplicate email", func(t *testing.T) {
		dup := u
		dup.ID = idx.New().String()
		require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
	})

	t.Run("credential required", func(t *testing.T) {
		bare := u
		bare.ID = idx.New().String()
		bare.Email = "bare@example.com"
		bare.PasswordHash = ""
		require.Error(t, s.Users().CreateUser(ctx, bare))

		bare.ProviderID = "google-1"
		require.NoError(t, s.Users().CreateUser(ctx, bare))
	})

	t.Run("update profile", func(t *testing.T) {
		at := time.Now().UTC().Add(time.Minute).Truncate(time.Millisecond)
		updated, err := s.Users().UpdateProfile(ctx, u.ID, store.ProfileUpdate{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Image:     "https://img/ada.png",
			UpdatedAt: at,
		})
		require.NoError(t, err)
		require.Equal(t, "Ada", updated.FirstName)
		require.Equal(t, "https://img/ada.png", updated.Image)
		require.Equal(t, at, updated.UpdatedAt)

		_, err = s.Users().UpdateProfile(ctx, "missing", store.ProfileUpdate{})
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("password and provider", func(t *testing.T) {
		require.NoError(t, s.Users().UpdatePasswordHash(ctx, u.ID, "$argon2id$new"))
		require.NoError(t, s.Users().LinkProvider(ctx, u.ID, "google-42"))

		got, err := s.Users().GetUserByID(ctx, u.ID)
		require.NoError(t, err)
		require.Equal(t, "$argon2id$new", got.PasswordHash)
		require.Equal(t, "google-42", got.ProviderID)
	})

	t.Run("batch lookup", func(t *testing.T) {
		other := seedUser(t, s, "other@example.com")
		users, err := s.Users().GetUsersByIDs(ctx, []string{u.ID, other.ID, "missing"})
		require.NoError(t, err)
		require.Len(t, users, 2)

		users, err = s.Users().GetUsersByIDs(ctx, nil)
		require.NoError(t, err)
		require.Empty(t, users)
	})
}

func TestEvents_CreateGetList(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	a := seedUser(t, s, "a@example.com")
	b := seedUser(t, s, "b@example.com")

	now := time.Now().UTC()
	older := seedEvent(t, s, a.ID, now.Add(24*time.Hour))
	newer := seedEvent(t, s, b.ID, now.Add(48*time.Hour))

	got, err := s.Events().GetEvent(ctx, older.ID)
	require.NoError(t, err)
	require.Equal(t, older, got)

	_, err = s.Events().GetEvent(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	all, err := s.Events().ListEvents(ctx, store.EventFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, newer.ID, all[0].ID, "newest datetime first")
	require.Len(t, all[0].Attendees, 1)

	mine, err := s.Events().ListEvents(ctx, store.EventFilter{OrganizerID: a.ID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, older.ID, mine[0].ID)

	_, err = s.Events().SetStatus(ctx, older.ID, domain.StatusCancelled, now)
	require.NoError(t, err)

	cancelled, err := s.Events().ListEvents(ctx, store.EventFilter{Statuses: []domain.Status{domain.StatusCancelled}})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	require.Equal(t, older.ID, cancelled[0].ID)

	t.Run("unknown organizer", func(t *testing.T) {
		e := domain.NewEvent(idx.New().String(), "ghost", domain.NewEventParams{Title: "x", Datetime: now}, now)
		require.ErrorIs(t, s.Events().CreateEvent(ctx, e), store.ErrNotFound)
	})
}

func TestEvents_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	a := seedUser(t, s, "a@example.com")
	e := seedEvent(t, s, a.ID, time.Now().Add(time.Hour))

	title := "Renamed"
	kind := domain.EventTypeWorkshop
	at := time.Now().UTC().Add(time.Minute).Truncate(time.Millisecond)

	got, err := s.Events().UpdateEvent(ctx, e.ID, store.EventUpdate{Title: &title, EventType: &kind, UpdatedAt: at})
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.Title)
	require.Equal(t, domain.EventTypeWorkshop, got.EventType)
	require.Equal(t, e.Location, got.Location, "untouched fields keep their value")
	require.Equal(t, e.OrganizerID, got.OrganizerID)
	require.Equal(t, at, got.UpdatedAt)

	_, err = s.Events().UpdateEvent(ctx, "missing", store.EventUpdate{Title: &title})
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Events().DeleteEvent(ctx, e.ID))
	require.ErrorIs(t, s.Events().DeleteEvent(ctx, e.ID), store.ErrNotFound)
	_, err = s.Events().GetEvent(ctx, e.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEvents_Status(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	a := seedUser(t, s, "a@example.com")
	now := time.Now().UTC()
	past := seedEvent(t, s, a.ID, now.Add(-time.Hour))
	future := seedEvent(t, s, a.ID, now.Add(time.Hour))

	require.NoError(t, s.Events().CompareAndSetStatus(ctx, past.ID, domain.StatusPublished, domain.StatusCompleted))
	require.ErrorIs(t,
		s.Events().CompareAndSetStatus(ctx, past.ID, domain.StatusPublished, domain.StatusCompleted),
		store.ErrConflict,
	)

	got, err := s.Events().GetEvent(ctx, past.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, got.Status)
	require.Equal(t, past.UpdatedAt, got.UpdatedAt, "reconciliation leaves updated_at alone")

	stale := seedEvent(t, s, a.ID, now.Add(-2*time.Hour))
	n, err := s.Events().CompleteElapsed(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	got, err = s.Events().GetEvent(ctx, stale.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, got.Status)

	got, err = s.Events().GetEvent(ctx, future.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPublished, got.Status)
}

func TestEvents_ApplyRSVP(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	a := seedUser(t, s, "a@example.com")
	b := seedUser(t, s, "b@example.com")
	e := seedEvent(t, s, a.ID, time.Now().Add(time.Hour))
	at := time.Now().UTC()

	got, err := s.Events().ApplyRSVP(ctx, e.ID, b.ID, domain.RSVPMaybe, at)
	require.NoError(t, err)
	require.Equal(t, []domain.Attendee{
		{UserID: a.ID, Status: domain.RSVPAttending},
		{UserID: b.ID, Status: domain.RSVPMaybe},
	}, got.Attendees)

	got, err = s.Events().ApplyRSVP(ctx, e.ID, b.ID, domain.RSVPAttending, at)
	require.NoError(t, err)
	require.Len(t, got.Attendees, 2)

	got, err = s.Events().ApplyRSVP(ctx, e.ID, b.ID, domain.RSVPDeclined, at)
	require.NoError(t, err)
	require.Equal(t, []domain.Attendee{{UserID: a.ID, Status: domain.RSVPAttending}}, got.Attendees)

	got, err = s.Events().ApplyRSVP(ctx, e.ID, b.ID, domain.RSVPDeclined, at)
	require.NoError(t, err)
	require.Len(t, got.Attendees, 1)

	stored, err := s.Events().GetEvent(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, got.Attendees, stored.Attendees)

	_, err = s.Events().ApplyRSVP(ctx, "missing", b.ID, domain.RSVPMaybe, at)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSigningKeys(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)
	now := time.Now().UTC().Truncate(time.Millisecond)

	old := domain.SigningKey{Kid: "k-old", Algorithm: "EdDSA", PrivateKey: []byte{1, 2, 3}, CreatedAt: now.Add(-48 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	cur := domain.SigningKey{Kid: "k-cur", Algorithm: "EdDSA", PrivateKey: []byte{4, 5, 6}, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, s.SigningKeys().CreateSigningKey(ctx, old))
	require.NoError(t, s.SigningKeys().CreateSigningKey(ctx, cur))
	require.ErrorIs(t, s.SigningKeys().CreateSigningKey(ctx, cur), store.ErrAlreadyExists)

	keys, err := s.SigningKeys().ListSigningKeys(ctx, now)
	require.NoError(t, err)
	require.Equal(t, []domain.SigningKey{cur}, keys)

	n, err := s.SigningKeys().DeleteExpiredSigningKeys(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	keys, err = s.SigningKeys().ListSigningKeys(ctx, now.Add(-2*time.Hour))
	require.NoError(t, err)
	require.Len(t, keys, 1, "expired key was pruned")
}

func TestSigningKeys_SessionsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dreamscape.db")
	sealer, err := cryptox.NewKeyCipher([]byte(strings.Repeat("s", cryptox.MinMasterKeyLength)))
	require.NoError(t, err)

	open := func() (*sqlite.Store, *jwtx.KeyManager) {
		s, err := sqlite.NewStore(path)
		require.NoError(t, err)
		require.NoError(t, s.ApplyMigrations(ctx))

		km, err := jwtx.NewPersistentKeyManager(ctx, jwtx.PersistentKeyManagerOptions{
			Store:  store.NewKeyStoreAdapter(s),
			Sealer: sealer,
			Issuer: "dreamscape-test",
		})
		require.NoError(t, err)
		return s, km
	}

	s, km := open()
	token, err := km.Sign(jwtx.NewSessionClaims("user-1", "Attendee", "a@example.com", "Ada", time.Hour, "dreamscape-test", time.Now()))
	require.NoError(t, err)
	require.NoError(t, s.Close(ctx))

	s, km = open()
	defer s.Close(ctx)

	claims, err := km.Verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)

	keys, err := s.SigningKeys().ListSigningKeys(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, keys, 2)
}
