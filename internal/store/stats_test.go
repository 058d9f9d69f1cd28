package store

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type fakeCountCollection struct {
	count     int64
	err       error
	gotFilter interface{}
}

func (f *fakeCountCollection) CountDocuments(_ context.Context, filter interface{}, _ ...*options.CountOptions) (int64, error) {
	f.gotFilter = filter
	return f.count, f.err
}

func TestStatsProviderCounts(t *testing.T) {
	users := &fakeCountCollection{count: 12}
	events := &fakeCountCollection{count: 34}
	provider := NewStatsProvider(users, events)

	gotUsers, err := provider.CountUsers(context.Background())
	if err != nil {
		t.Fatalf("CountUsers returned error: %v", err)
	}
	if gotUsers != 12 {
		t.Fatalf("users = %d, want 12", gotUsers)
	}

	gotEvents, err := provider.CountEvents(context.Background())
	if err != nil {
		t.Fatalf("CountEvents returned error: %v", err)
	}
	if gotEvents != 34 {
		t.Fatalf("events = %d, want 34", gotEvents)
	}
}

func TestStatsProviderCountOpenEvents(t *testing.T) {
	events := &fakeCountCollection{count: 3}
	provider := NewStatsProvider(&fakeCountCollection{}, events)

	open, err := provider.CountOpenEvents(context.Background())
	if err != nil {
		t.Fatalf("CountOpenEvents returned error: %v", err)
	}
	if open != 3 {
		t.Fatalf("open = %d, want 3", open)
	}

	filter, ok := events.gotFilter.(bson.M)
	if !ok {
		t.Fatalf("unexpected filter type: %T", events.gotFilter)
	}
	closed, ok := filter["is_closed"].(bson.M)
	if !ok || closed["$ne"] != true {
		t.Fatalf("expected open-only filter, got %v", filter)
	}
}

func TestStatsProviderErrors(t *testing.T) {
	boom := errors.New("count failed")
	provider := NewStatsProvider(&fakeCountCollection{err: boom}, &fakeCountCollection{err: boom})

	if _, err := provider.CountUsers(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if _, err := provider.CountEvents(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}

	var nilProvider *StatsProvider
	if _, err := nilProvider.CountUsers(context.Background()); err == nil {
		t.Fatalf("expected error from nil provider")
	}
}
