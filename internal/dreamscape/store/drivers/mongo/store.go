package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection       = "users"
	eventsCollection      = "events"
	signingKeysCollection = "signing_keys"
)

// Options tune the client pool.
type Options struct {
	MaxPoolSize            uint64
	ServerSelectionTimeout time.Duration
	SocketTimeout          time.Duration
}

// DefaultOptions keeps a small pool and fails fast when the server is away.
var DefaultOptions = Options{
	MaxPoolSize:            10,
	ServerSelectionTimeout: 5 * time.Second,
	SocketTimeout:          45 * time.Second,
}

// Store is a MongoDB backed store. Events embed their attendees so every
// RSVP change is a single document update.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var _ store.Store = (*Store)(nil)

// NewStore connects to uri and verifies the server is reachable. The caller
// owns the returned store and must Close it.
func NewStore(ctx context.Context, uri, database string, opts Options) (*Store, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(opts.MaxPoolSize).
		SetServerSelectionTimeout(opts.ServerSelectionTimeout).
		SetSocketTimeout(opts.SocketTimeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

func (s *Store) Users() store.Users {
	return &usersRepo{c: s.db.Collection(usersCollection)}
}

func (s *Store) Events() store.Events {
	return &eventsRepo{c: s.db.Collection(eventsCollection)}
}

func (s *Store) SigningKeys() store.SigningKeys {
	return &signingKeysRepo{c: s.db.Collection(signingKeysCollection)}
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// ApplyMigrations creates the indexes the queries rely on. Index creation
// is idempotent so this is safe on every start.
func (s *Store) ApplyMigrations(ctx context.Context) error {
	// 1. Unique email per user
	_, err := s.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("users indexes: %w", err)
	}

	// 2. Event listing and reconciliation
	_, err = s.db.Collection(eventsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "datetime", Value: -1}}, Options: options.Index().SetName("datetime_desc")},
		{Keys: bson.D{{Key: "organizer", Value: 1}}, Options: options.Index().SetName("organizer")},
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "datetime", Value: 1}},
			Options: options.Index().SetName("status_datetime"),
		},
	})
	if err != nil {
		return fmt.Errorf("events indexes: %w", err)
	}

	// 3. Expired signing keys are dropped by the server
	_, err = s.db.Collection(signingKeysCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_ttl"),
	})
	if err != nil {
		return fmt.Errorf("signing key indexes: %w", err)
	}

	return nil
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return store.ErrAlreadyExists
	default:
		return err
	}
}
