package domain

import "time"

// Event is a calendar event owned by a single user. Start and end times are
// stored in UTC; EventID is a small sequential integer so users can reference
// events from chat commands.
type Event struct {
	EventID   int64      `bson:"event_id" json:"event_id"`
	OwnerID   int64      `bson:"owner_id" json:"owner_id"`
	StartTime time.Time  `bson:"start_time" json:"start_time"`
	EndTime   *time.Time `bson:"end_time,omitempty" json:"end_time,omitempty"`
	Title     string     `bson:"title" json:"title"`
	IsClosed  bool       `bson:"is_closed" json:"is_closed"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
}
