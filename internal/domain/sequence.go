package domain

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type counterCollection interface {
	FindOneAndUpdate(ctx context.Context, filter interface{}, update interface{}, opts ...*options.FindOneAndUpdateOptions) *mongo.SingleResult
}

// Sequence allocates monotonically increasing integer ids from a counters
// collection using an atomic increment-and-return.
type Sequence struct {
	counters counterCollection
}

// NewSequence constructs a Sequence over the counters collection.
func NewSequence(counters counterCollection) *Sequence {
	return &Sequence{counters: counters}
}

// Next returns the next value of the named counter, creating it at 1 on first
// use.
func (s *Sequence) Next(ctx context.Context, name string) (int64, error) {
	if s == nil || s.counters == nil {
		return 0, errors.New("sequence is not initialized")
	}
	if name == "" {
		return 0, errors.New("counter name is required")
	}

	result := s.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	)
	if err := result.Err(); err != nil {
		return 0, fmt.Errorf("advance counter %s: %w", name, err)
	}

	var counter struct {
		Value int64 `bson:"value"`
	}
	if err := result.Decode(&counter); err != nil {
		return 0, fmt.Errorf("decode counter %s: %w", name, err)
	}

	return counter.Value, nil
}
