package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Lookup failures shared by the repositories.
var (
	ErrUserNotFound  = errors.New("user not found")
	ErrEventNotFound = errors.New("event not found")
)

// userCollection captures the MongoDB collection behavior the user repository
// relies on, allowing lightweight stubbing in tests.
type userCollection interface {
	FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
	UpdateOne(ctx context.Context, filter interface{}, update interface{}, opts ...*options.UpdateOptions) (*mongo.UpdateResult, error)
}

// UserRepository persists and retrieves users in MongoDB.
type UserRepository struct {
	collection userCollection
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(collection userCollection) *UserRepository {
	return &UserRepository{collection: collection}
}

// GetByTelegramID fetches a user by Telegram user_id.
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (User, error) {
	if r == nil || r.collection == nil {
		return User{}, errors.New("user repository is not initialized")
	}
	if telegramID == 0 {
		return User{}, errors.New("user_id is required")
	}

	result := r.collection.FindOne(ctx, bson.M{"user_id": telegramID})
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}

	var user User
	if err := result.Decode(&user); err != nil {
		return User{}, fmt.Errorf("decode user: %w", err)
	}

	return user, nil
}

// Create inserts a user with default language, timezone, and authorization
// state. It is an idempotent get-or-create keyed on user_id: a concurrent or
// repeated call returns the already-stored record unchanged.
func (r *UserRepository) Create(ctx context.Context, telegramID int64, username string) (User, error) {
	if r == nil || r.collection == nil {
		return User{}, errors.New("user repository is not initialized")
	}
	if telegramID == 0 {
		return User{}, errors.New("user_id is required")
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	update := bson.M{
		"$setOnInsert": bson.M{
			"user_id":       telegramID,
			"username":      username,
			"language":      DefaultLanguage,
			"timezone":      DefaultTimezone,
			"is_authorized": false,
			"created_at":    now,
			"updated_at":    now,
		},
	}

	result := r.collection.FindOneAndUpdate(ctx,
		bson.M{"user_id": telegramID},
		update,
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	if err := result.Err(); err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}

	var user User
	if err := result.Decode(&user); err != nil {
		return User{}, fmt.Errorf("decode user: %w", err)
	}

	return user, nil
}

// UpdateLanguage stores a new language preference.
func (r *UserRepository) UpdateLanguage(ctx context.Context, telegramID int64, code string) error {
	return r.setUserFields(ctx, telegramID, bson.M{"language": code})
}

// UpdateTimezone stores a new IANA timezone name.
func (r *UserRepository) UpdateTimezone(ctx context.Context, telegramID int64, name string) error {
	return r.setUserFields(ctx, telegramID, bson.M{"timezone": name})
}

// Authorize marks the user as having passed the secret gate. The flag only
// ever transitions false to true.
func (r *UserRepository) Authorize(ctx context.Context, telegramID int64) error {
	return r.setUserFields(ctx, telegramID, bson.M{"is_authorized": true})
}

func (r *UserRepository) setUserFields(ctx context.Context, telegramID int64, fields bson.M) error {
	if r == nil || r.collection == nil {
		return errors.New("user repository is not initialized")
	}
	if telegramID == 0 {
		return errors.New("user_id is required")
	}

	set := bson.M{"updated_at": time.Now().UTC().Truncate(time.Millisecond)}
	for key, value := range fields {
		set[key] = value
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"user_id": telegramID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if result != nil && result.MatchedCount == 0 {
		return ErrUserNotFound
	}

	return nil
}

// eventCollection captures the MongoDB collection behavior the event
// repository relies on.
type eventCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error)
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
}

// sequence allocates monotonically increasing identifiers.
type sequence interface {
	Next(ctx context.Context, name string) (int64, error)
}

// SequenceEvents names the counter backing event ids.
const SequenceEvents = "events"

// EventRepository persists and retrieves calendar events in MongoDB.
type EventRepository struct {
	collection eventCollection
	sequence   sequence
}

// NewEventRepository constructs an EventRepository drawing event ids from seq.
func NewEventRepository(collection eventCollection, seq sequence) *EventRepository {
	return &EventRepository{collection: collection, sequence: seq}
}

// Create inserts an event for ownerID with the next sequential id. Times are
// normalized to UTC before storage.
func (r *EventRepository) Create(ctx context.Context, ownerID int64, start time.Time, title string, end *time.Time) (Event, error) {
	if r == nil || r.collection == nil || r.sequence == nil {
		return Event{}, errors.New("event repository is not initialized")
	}
	if ownerID == 0 {
		return Event{}, errors.New("owner_id is required")
	}
	if title == "" {
		return Event{}, errors.New("title is required")
	}

	eventID, err := r.sequence.Next(ctx, SequenceEvents)
	if err != nil {
		return Event{}, fmt.Errorf("allocate event id: %w", err)
	}

	event := Event{
		EventID:   eventID,
		OwnerID:   ownerID,
		StartTime: start.UTC(),
		Title:     title,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
	if end != nil {
		utcEnd := end.UTC()
		event.EndTime = &utcEnd
	}

	if _, err := r.collection.InsertOne(ctx, event); err != nil {
		return Event{}, fmt.Errorf("insert event: %w", err)
	}

	return event, nil
}

// Update replaces start, end, and title of an event owned by ownerID and
// returns the updated record. ErrEventNotFound is returned when no event with
// that id belongs to the owner.
func (r *EventRepository) Update(ctx context.Context, ownerID, eventID int64, start time.Time, title string, end *time.Time) (Event, error) {
	if r == nil || r.collection == nil {
		return Event{}, errors.New("event repository is not initialized")
	}

	update := bson.M{"$set": bson.M{
		"start_time": start.UTC(),
		"title":      title,
	}}
	if end != nil {
		update["$set"].(bson.M)["end_time"] = end.UTC()
	} else {
		update["$unset"] = bson.M{"end_time": ""}
	}

	result := r.collection.FindOneAndUpdate(ctx,
		bson.M{"owner_id": ownerID, "event_id": eventID},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if err := result.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Event{}, ErrEventNotFound
		}
		return Event{}, fmt.Errorf("update event: %w", err)
	}

	var event Event
	if err := result.Decode(&event); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}

	return event, nil
}

// List returns the owner's events ordered open-first, then by start time and
// id. Closed events are filtered out unless includeClosed is set.
func (r *EventRepository) List(ctx context.Context, ownerID int64, includeClosed bool) ([]Event, error) {
	if r == nil || r.collection == nil {
		return nil, errors.New("event repository is not initialized")
	}

	filter := bson.M{"owner_id": ownerID}
	if !includeClosed {
		filter["is_closed"] = bson.M{"$ne": true}
	}

	sort := bson.D{
		{Key: "is_closed", Value: 1},
		{Key: "start_time", Value: 1},
		{Key: "event_id", Value: 1},
	}

	return r.findEvents(ctx, filter, sort)
}

// ListBetween returns the owner's events, open and closed, with start times
// inside the optional [from, to] bounds, ordered by start time then id.
func (r *EventRepository) ListBetween(ctx context.Context, ownerID int64, from, to *time.Time) ([]Event, error) {
	if r == nil || r.collection == nil {
		return nil, errors.New("event repository is not initialized")
	}

	filter := bson.M{"owner_id": ownerID}
	bounds := bson.M{}
	if from != nil {
		bounds["$gte"] = from.UTC()
	}
	if to != nil {
		bounds["$lte"] = to.UTC()
	}
	if len(bounds) > 0 {
		filter["start_time"] = bounds
	}

	sort := bson.D{
		{Key: "start_time", Value: 1},
		{Key: "event_id", Value: 1},
	}

	return r.findEvents(ctx, filter, sort)
}

func (r *EventRepository) findEvents(ctx context.Context, filter bson.M, sort bson.D) ([]Event, error) {
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("find events: %w", err)
	}

	var events []Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	return events, nil
}

// Close marks the given events closed when they are owned by ownerID and not
// already closed, returning the ids that actually transitioned.
func (r *EventRepository) Close(ctx context.Context, ownerID int64, eventIDs []int64) ([]int64, error) {
	if r == nil || r.collection == nil {
		return nil, errors.New("event repository is not initialized")
	}

	var closed []int64
	for _, eventID := range eventIDs {
		result := r.collection.FindOneAndUpdate(ctx,
			bson.M{"owner_id": ownerID, "event_id": eventID, "is_closed": bson.M{"$ne": true}},
			bson.M{"$set": bson.M{"is_closed": true}},
		)
		if err := result.Err(); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				continue
			}
			return nil, fmt.Errorf("close event %d: %w", eventID, err)
		}
		closed = append(closed, eventID)
	}

	return closed, nil
}
