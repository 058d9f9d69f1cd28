package scheduler

import (
	"testing"
	"time"
)

func parisZone(t *testing.T) *time.Location {
	t.Helper()

	zone, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}

	return zone
}

func TestDayWindow(t *testing.T) {
	zone := parisZone(t)
	now := time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)

	from, to := DayWindow(now, zone)

	// Paris is UTC+2 in May.
	if !from.Equal(time.Date(2025, 5, 19, 22, 0, 0, 0, time.UTC)) {
		t.Fatalf("from = %v", from)
	}
	if !to.Equal(time.Date(2025, 5, 20, 21, 59, 59, 0, time.UTC)) {
		t.Fatalf("to = %v", to)
	}
}

func TestEveningWindowCoversNextDay(t *testing.T) {
	zone := parisZone(t)
	now := time.Date(2025, 5, 20, 17, 0, 0, 0, time.UTC)

	from, to := EveningWindow(now, zone)

	if !from.Equal(time.Date(2025, 5, 20, 22, 0, 0, 0, time.UTC)) {
		t.Fatalf("from = %v", from)
	}
	if !to.Equal(time.Date(2025, 5, 21, 21, 59, 59, 0, time.UTC)) {
		t.Fatalf("to = %v", to)
	}
}

func TestWeeklyWindow(t *testing.T) {
	zone := parisZone(t)

	tests := []struct {
		name string
		now  time.Time
	}{
		{name: "tuesday", now: time.Date(2025, 5, 20, 10, 0, 0, 0, time.UTC)},
		{name: "monday", now: time.Date(2025, 5, 19, 6, 0, 0, 0, time.UTC)},
		{name: "sunday", now: time.Date(2025, 5, 25, 10, 0, 0, 0, time.UTC)},
	}

	wantFrom := time.Date(2025, 5, 18, 22, 0, 0, 0, time.UTC) // Mon 00:00 Paris
	wantTo := time.Date(2025, 5, 25, 21, 59, 59, 0, time.UTC) // Sun 23:59:59 Paris

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			from, to := WeeklyWindow(tt.now, zone)
			if !from.Equal(wantFrom) {
				t.Fatalf("from = %v, want %v", from, wantFrom)
			}
			if !to.Equal(wantTo) {
				t.Fatalf("to = %v, want %v", to, wantTo)
			}
		})
	}
}
