package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type countCollection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// StatsProvider exposes helper methods to retrieve collection counts for basic
// diagnostics without leaking MongoDB internals to callers.
type StatsProvider struct {
	users  countCollection
	events countCollection
}

// NewStatsProvider constructs a StatsProvider backed by the provided user and
// event collections.
func NewStatsProvider(users, events countCollection) *StatsProvider {
	return &StatsProvider{
		users:  users,
		events: events,
	}
}

// CountUsers returns the number of documents in the users collection.
func (p *StatsProvider) CountUsers(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.users == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	count, err := p.users.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}

	return count, nil
}

// CountEvents returns the number of documents in the events collection.
func (p *StatsProvider) CountEvents(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.events == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	count, err := p.events.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}

	return count, nil
}

// CountOpenEvents returns the number of events not yet closed.
func (p *StatsProvider) CountOpenEvents(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.events == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	count, err := p.events.CountDocuments(ctx, bson.M{"is_closed": bson.M{"$ne": true}})
	if err != nil {
		return 0, fmt.Errorf("count open events: %w", err)
	}

	return count, nil
}
