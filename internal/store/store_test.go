package store

import (
	"context"
	"errors"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"tg_calendar_bot/internal/config"
)

type fakeMongoClient struct {
	pingErr       error
	disconnectErr error
	db            *mongo.Database

	pings       int
	disconnects int
}

func (f *fakeMongoClient) Ping(_ context.Context, _ *readpref.ReadPref) error {
	f.pings++
	return f.pingErr
}

func (f *fakeMongoClient) Database(_ string, _ ...*options.DatabaseOptions) *mongo.Database {
	return f.db
}

func (f *fakeMongoClient) Disconnect(_ context.Context) error {
	f.disconnects++
	return f.disconnectErr
}

func offlineDatabase(t *testing.T) *mongo.Database {
	t.Helper()

	client, err := mongo.NewClient(options.Client().ApplyURI("mongodb://localhost:27017"))
	if err != nil {
		t.Fatalf("build offline client: %v", err)
	}

	return client.Database("tg_calendar_test")
}

func withFakeMongo(t *testing.T, client *fakeMongoClient, connectErr error) {
	t.Helper()

	original := connectMongo
	connectMongo = func(_ context.Context, _ *options.ClientOptions) (mongoClient, error) {
		if connectErr != nil {
			return nil, connectErr
		}
		return client, nil
	}
	t.Cleanup(func() { connectMongo = original })
}

func testConfig() config.Config {
	return config.Config{
		MongoURI: "mongodb://localhost:27017",
		MongoDB:  "tg_calendar_test",
	}
}

func TestNewManager(t *testing.T) {
	client := &fakeMongoClient{db: offlineDatabase(t)}
	withFakeMongo(t, client, nil)

	manager, err := NewManager(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	if client.pings != 1 {
		t.Fatalf("expected connectivity ping, got %d", client.pings)
	}
	if manager.Database() == nil {
		t.Fatalf("expected database handle")
	}
}

func TestNewManagerConnectFailure(t *testing.T) {
	boom := errors.New("dns failure")
	withFakeMongo(t, nil, boom)

	if _, err := NewManager(context.Background(), testConfig()); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped connect error, got %v", err)
	}
}

func TestNewManagerPingFailureDisconnects(t *testing.T) {
	client := &fakeMongoClient{db: offlineDatabase(t), pingErr: errors.New("no primary")}
	withFakeMongo(t, client, nil)

	if _, err := NewManager(context.Background(), testConfig()); err == nil {
		t.Fatalf("expected error when ping fails")
	}
	if client.disconnects != 1 {
		t.Fatalf("expected client disconnected after failed ping, got %d", client.disconnects)
	}
}

func TestManagerCollections(t *testing.T) {
	client := &fakeMongoClient{db: offlineDatabase(t)}
	withFakeMongo(t, client, nil)

	manager, err := NewManager(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	if got := manager.Users().Name(); got != CollectionUsers {
		t.Fatalf("users collection = %q, want %q", got, CollectionUsers)
	}
	if got := manager.Events().Name(); got != CollectionEvents {
		t.Fatalf("events collection = %q, want %q", got, CollectionEvents)
	}
	if got := manager.Counters().Name(); got != CollectionCounters {
		t.Fatalf("counters collection = %q, want %q", got, CollectionCounters)
	}
}

func TestEnsureBaseIndexes(t *testing.T) {
	client := &fakeMongoClient{db: offlineDatabase(t)}
	withFakeMongo(t, client, nil)

	manager, err := NewManager(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	created := map[string][]mongo.IndexModel{}
	originalCreate := createIndexes
	createIndexes = func(_ context.Context, coll *mongo.Collection, models []mongo.IndexModel) ([]string, error) {
		created[coll.Name()] = models
		return nil, nil
	}
	t.Cleanup(func() { createIndexes = originalCreate })

	if err := manager.EnsureBaseIndexes(context.Background()); err != nil {
		t.Fatalf("EnsureBaseIndexes returned error: %v", err)
	}

	if len(created[CollectionUsers]) != 1 {
		t.Fatalf("expected 1 users index, got %d", len(created[CollectionUsers]))
	}
	if len(created[CollectionEvents]) != 2 {
		t.Fatalf("expected 2 events indexes, got %d", len(created[CollectionEvents]))
	}
}

func TestManagerPing(t *testing.T) {
	client := &fakeMongoClient{db: offlineDatabase(t)}
	withFakeMongo(t, client, nil)

	manager, err := NewManager(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	if err := manager.Ping(context.Background()); err != nil {
		t.Fatalf("Ping returned error: %v", err)
	}
	if client.pings != 2 {
		t.Fatalf("expected second ping, got %d", client.pings)
	}
}

func TestManagerClose(t *testing.T) {
	client := &fakeMongoClient{db: offlineDatabase(t)}
	withFakeMongo(t, client, nil)

	manager, err := NewManager(context.Background(), testConfig())
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}

	if err := manager.Close(context.Background()); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if client.disconnects != 1 {
		t.Fatalf("expected disconnect, got %d", client.disconnects)
	}

	var nilManager *Manager
	if err := nilManager.Close(context.Background()); err != nil {
		t.Fatalf("nil manager Close should be a no-op, got %v", err)
	}
}
