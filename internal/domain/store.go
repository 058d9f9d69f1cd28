package domain

import (
	"context"
	"time"
)

// Store bundles the user and event repositories behind the flat capability
// surface the dispatcher consumes.
type Store struct {
	users  *UserRepository
	events *EventRepository
}

// NewStore constructs a Store over the two repositories.
func NewStore(users *UserRepository, events *EventRepository) *Store {
	return &Store{users: users, events: events}
}

// AuthorizeUser flips the user's authorization flag.
func (s *Store) AuthorizeUser(ctx context.Context, userID int64) error {
	return s.users.Authorize(ctx, userID)
}

// UpdateUserLanguage stores the user's language preference.
func (s *Store) UpdateUserLanguage(ctx context.Context, userID int64, code string) error {
	return s.users.UpdateLanguage(ctx, userID, code)
}

// UpdateUserTimezone stores the user's timezone name.
func (s *Store) UpdateUserTimezone(ctx context.Context, userID int64, name string) error {
	return s.users.UpdateTimezone(ctx, userID, name)
}

// CreateEvent creates an event for the owner.
func (s *Store) CreateEvent(ctx context.Context, ownerID int64, start time.Time, title string, end *time.Time) (Event, error) {
	return s.events.Create(ctx, ownerID, start, title, end)
}

// UpdateEvent replaces an owned event's start, end, and title.
func (s *Store) UpdateEvent(ctx context.Context, ownerID, eventID int64, start time.Time, title string, end *time.Time) (Event, error) {
	return s.events.Update(ctx, ownerID, eventID, start, title, end)
}

// ListEvents returns the owner's events.
func (s *Store) ListEvents(ctx context.Context, ownerID int64, includeClosed bool) ([]Event, error) {
	return s.events.List(ctx, ownerID, includeClosed)
}

// ListEventsBetween returns the owner's events inside the optional bounds.
func (s *Store) ListEventsBetween(ctx context.Context, ownerID int64, from, to *time.Time) ([]Event, error) {
	return s.events.ListBetween(ctx, ownerID, from, to)
}

// CloseEvents closes owned open events and reports which ids changed.
func (s *Store) CloseEvents(ctx context.Context, ownerID int64, ids []int64) ([]int64, error) {
	return s.events.Close(ctx, ownerID, ids)
}
