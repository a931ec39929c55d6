package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/dreamscape-events/dreamscape/internal/dreamscape/domain"
	"github.com/dreamscape-events/dreamscape/internal/dreamscape/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxRSVPAttempts bounds the update/push race in ApplyRSVP.
const maxRSVPAttempts = 3

type eventsRepo struct {
	c *mongo.Collection
}

func (r *eventsRepo) CreateEvent(ctx context.Context, e domain.Event) error {
	_, err := r.c.InsertOne(ctx, toEventDoc(e))
	return mapErr(err)
}

func (r *eventsRepo) GetEvent(ctx context.Context, id string) (domain.Event, error) {
	var doc eventDoc
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return domain.Event{}, mapErr(err)
	}
	return doc.toDomain(), nil
}

func (r *eventsRepo) ListEvents(ctx context.Context, f store.EventFilter) ([]domain.Event, error) {
	filter := bson.M{}
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		filter["status"] = bson.M{"$in": statuses}
	}
	if f.OrganizerID != "" {
		filter["organizer"] = f.OrganizerID
	}

	opts := options.Find().SetSort(bson.D{{Key: "datetime", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var docs []eventDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	out := make([]domain.Event, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toDomain())
	}
	return out, nil
}

func (r *eventsRepo) UpdateEvent(ctx context.Context, id string, u store.EventUpdate) (domain.Event, error) {
	set := bson.M{"updatedAt": u.UpdatedAt.UTC()}
	if u.Title != nil {
		set["title"] = *u.Title
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Datetime != nil {
		set["datetime"] = u.Datetime.UTC()
	}
	if u.Location != nil {
		set["location"] = *u.Location
	}
	if u.EventType != nil {
		set["eventType"] = string(*u.EventType)
	}

	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set})
}

func (r *eventsRepo) SetStatus(ctx context.Context, id string, status domain.Status, at time.Time) (domain.Event, error) {
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"status":    string(status),
		"updatedAt": at.UTC(),
	}})
}

func (r *eventsRepo) CompareAndSetStatus(ctx context.Context, id string, from, to domain.Status) error {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to)}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *eventsRepo) CompleteElapsed(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.c.UpdateMany(ctx,
		bson.M{"status": string(domain.StatusPublished), "datetime": bson.M{"$lt": now.UTC()}},
		bson.M{"$set": bson.M{"status": string(domain.StatusCompleted)}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// ApplyRSVP uses positional and guarded array operators so concurrent RSVPs
// on the same event never produce duplicate entries for a user.
func (r *eventsRepo) ApplyRSVP(
	ctx context.Context,
	id, userID string,
	status domain.RSVPStatus,
	at time.Time,
) (domain.Event, error) {
	if status == domain.RSVPDeclined {
		e, err := r.findOneAndUpdate(ctx,
			bson.M{"_id": id, "attendees.user": userID},
			bson.M{
				"$pull": bson.M{"attendees": bson.M{"user": userID}},
				"$set":  bson.M{"updatedAt": at.UTC()},
			},
		)
		if errors.Is(err, store.ErrNotFound) {
			// Not attending (or no such event): nothing to remove.
			return r.GetEvent(ctx, id)
		}
		return e, err
	}

	for range maxRSVPAttempts {
		// 1. Overwrite an existing entry with a different status
		e, err := r.findOneAndUpdate(ctx,
			bson.M{"_id": id, "attendees": bson.M{"$elemMatch": bson.M{
				"user":   userID,
				"status": bson.M{"$ne": string(status)},
			}}},
			bson.M{"$set": bson.M{
				"attendees.$.status": string(status),
				"updatedAt":          at.UTC(),
			}},
		)
		if !errors.Is(err, store.ErrNotFound) {
			return e, err
		}

		// 2. Append when the user has no entry yet
		e, err = r.findOneAndUpdate(ctx,
			bson.M{"_id": id, "attendees.user": bson.M{"$ne": userID}},
			bson.M{
				"$push": bson.M{"attendees": attendeeDoc{User: userID, Status: string(status)}},
				"$set":  bson.M{"updatedAt": at.UTC()},
			},
		)
		if !errors.Is(err, store.ErrNotFound) {
			return e, err
		}

		// 3. Either the event is gone, the entry already has this status,
		// or someone else raced us between 1 and 2.
		current, err := r.GetEvent(ctx, id)
		if err != nil {
			return domain.Event{}, err
		}
		if got, ok := current.AttendeeStatus(userID); ok && got == status {
			return current, nil
		}
	}

	return domain.Event{}, store.ErrConflict
}

func (r *eventsRepo) DeleteEvent(ctx context.Context, id string) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *eventsRepo) findOneAndUpdate(ctx context.Context, filter, update bson.M) (domain.Event, error) {
	var doc eventDoc
	err := r.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return domain.Event{}, mapErr(err)
	}
	return doc.toDomain(), nil
}
