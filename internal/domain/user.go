package domain

import "time"

// Defaults applied when a user record is first created.
const (
	DefaultLanguage = "en"
	DefaultTimezone = "UTC"
)

// User represents a Telegram user known to the bot. UserID is the stable
// Telegram identifier and uniquely identifies the record.
type User struct {
	UserID       int64     `bson:"user_id" json:"user_id"`
	Username     string    `bson:"username,omitempty" json:"username,omitempty"`
	Language     string    `bson:"language" json:"language"`
	Timezone     string    `bson:"timezone" json:"timezone"`
	IsAuthorized bool      `bson:"is_authorized" json:"is_authorized"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// Location resolves the user's IANA timezone, falling back to UTC when the
// stored name is empty or no longer loadable.
func (u User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}
