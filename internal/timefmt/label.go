// Package timefmt classifies event start times into coarse day-bucket labels
// used as group headers when rendering event listings.
package timefmt

import "time"

// Label buckets start relative to now, comparing calendar dates in loc rather
// than elapsed time: same day is "Today", the next day "Tomorrow", two to five
// days out the abbreviated weekday name, anything else the ISO date.
func Label(start, now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}

	localStart := start.In(loc)
	days := daysBetween(now.In(loc), localStart)

	switch {
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	case days >= 2 && days <= 5:
		return localStart.Format("Mon")
	default:
		return localStart.Format("2006-01-02")
	}
}

// daysBetween counts whole calendar days from a's date to b's date.
func daysBetween(a, b time.Time) int {
	aDate := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bDate := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)

	return int(bDate.Sub(aDate) / (24 * time.Hour))
}
