package scheduler

import "time"

// DayWindow returns the UTC bounds of the calendar day containing t in zone:
// local midnight through 23:59:59.
func DayWindow(t time.Time, zone *time.Location) (time.Time, time.Time) {
	local := t.In(zone)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, zone)
	end := time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 0, zone)

	return start.UTC(), end.UTC()
}

// MorningWindow covers the current local day; sent at the start of the day.
func MorningWindow(now time.Time, zone *time.Location) (time.Time, time.Time) {
	return DayWindow(now, zone)
}

// EveningWindow covers the next local day; sent the evening before.
func EveningWindow(now time.Time, zone *time.Location) (time.Time, time.Time) {
	return DayWindow(now.In(zone).AddDate(0, 0, 1), zone)
}

// WeeklyWindow covers the ISO week of now in zone, Monday 00:00 through
// Sunday 23:59:59.
func WeeklyWindow(now time.Time, zone *time.Location) (time.Time, time.Time) {
	local := now.In(zone)

	weekday := int(local.Weekday())
	if weekday == 0 {
		weekday = 7
	}

	monday := local.AddDate(0, 0, 1-weekday)
	start := time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, zone)
	sunday := monday.AddDate(0, 0, 6)
	end := time.Date(sunday.Year(), sunday.Month(), sunday.Day(), 23, 59, 59, 0, zone)

	return start.UTC(), end.UTC()
}
