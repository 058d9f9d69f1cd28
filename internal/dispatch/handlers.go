package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"tg_calendar_bot/internal/domain"
	"tg_calendar_bot/internal/parser"
	"tg_calendar_bot/internal/timefmt"
)

type commandHandler func(ctx context.Context, d *Dispatcher, user *domain.User, args string) (string, error)

// commandHandlers is the fixed routing table. Adding a command is a one-entry
// change here plus its handler below.
var commandHandlers = map[string]commandHandler{
	"/start":           handleStart,
	"/lang":            handleLang,
	"/timezone":        handleTimezone,
	"/add_event":       handleAddEvent,
	"/edit_event":      handleEditEvent,
	"/list_events":     handleListEvents,
	"/list_all_events": handleListAllEvents,
	"/close_event":     handleCloseEvent,
	"/help":            handleHelp,
}

const localTimeLayout = "2006-01-02 15:04"

const helpText = `/start
/lang <code>
/add_event <YYYY-MM-DD HH:mm [YYYY-MM-DD HH:mm] title>
    Required: start date/time and title
    Optional: end date/time in brackets
    Example: /add_event 2024-05-17 14:30 Team meeting
    Example: /add_event 2024-05-17 14:30 2024-05-17 15:30 Team meeting
/edit_event <id> <YYYY-MM-DD HH:mm [YYYY-MM-DD HH:mm] title>
    Example: /edit_event 5 2024-05-17 14:30 Updated meeting
    Example: /edit_event 5 2024-05-17 14:30 2024-05-17 15:00 Updated meeting
/list_events
/list_all_events [<YYYY-MM-DD HH:mm> [YYYY-MM-DD HH:mm]]
    Optional: from date/time, to date/time
    Example: /list_all_events 2024-05-01 00:00 2024-05-31 23:59
/timezone <name>
    Example: /timezone Europe/Paris
    Example: /timezone America/New_York
/close_event <id ...>
/help`

func handleStart(_ context.Context, _ *Dispatcher, _ *domain.User, _ string) (string, error) {
	return "Please provide a secret", nil
}

func handleHelp(_ context.Context, _ *Dispatcher, _ *domain.User, _ string) (string, error) {
	return helpText, nil
}

func handleLang(ctx context.Context, d *Dispatcher, user *domain.User, args string) (string, error) {
	code := strings.TrimSpace(args)
	if code == "" {
		return "", &HandlerError{Message: "Language code required"}
	}

	if err := d.store.UpdateUserLanguage(ctx, user.UserID, code); err != nil {
		return "", fmt.Errorf("update language: %w", err)
	}
	user.Language = code

	return fmt.Sprintf("Language updated to %s", code), nil
}

func handleTimezone(ctx context.Context, d *Dispatcher, user *domain.User, args string) (string, error) {
	name := strings.TrimSpace(args)
	if name == "" {
		return "", &HandlerError{Message: "Timezone name required"}
	}

	if _, err := time.LoadLocation(name); err != nil {
		return "", &HandlerError{Message: "Invalid timezone"}
	}

	if err := d.store.UpdateUserTimezone(ctx, user.UserID, name); err != nil {
		return "", fmt.Errorf("update timezone: %w", err)
	}
	user.Timezone = name

	return fmt.Sprintf("Timezone updated to %s", name), nil
}

func handleAddEvent(ctx context.Context, d *Dispatcher, user *domain.User, args string) (string, error) {
	loc := user.Location()

	start, end, title, err := parser.ParseEventLine(args, loc)
	if err != nil {
		return "", userFacing(err)
	}

	event, err := d.store.CreateEvent(ctx, user.UserID, start, title, end)
	if err != nil {
		return "", fmt.Errorf("create event: %w", err)
	}

	return fmt.Sprintf("Event %d added%s: %s %s | id=%d",
		event.EventID, pastWarning(start, d.now()), start.In(loc).Format(localTimeLayout), title, event.EventID), nil
}

func handleEditEvent(ctx context.Context, d *Dispatcher, user *domain.User, args string) (string, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "", &HandlerError{Message: "Invalid edit usage"}
	}

	eventID, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return "", &HandlerError{Message: "Invalid edit usage"}
	}

	loc := user.Location()

	start, end, title, err := parser.ParseEventLine(strings.Join(fields[1:], " "), loc)
	if err != nil {
		return "", userFacing(err)
	}

	event, err := d.store.UpdateEvent(ctx, user.UserID, eventID, start, title, end)
	if err != nil {
		if errors.Is(err, domain.ErrEventNotFound) {
			return "", &HandlerError{Message: "Event not found"}
		}
		return "", fmt.Errorf("update event: %w", err)
	}

	return fmt.Sprintf("Event %d updated%s: %s %s | id=%d",
		event.EventID, pastWarning(start, d.now()), start.In(loc).Format(localTimeLayout), title, event.EventID), nil
}

func handleListEvents(ctx context.Context, d *Dispatcher, user *domain.User, _ string) (string, error) {
	events, err := d.store.ListEvents(ctx, user.UserID, false)
	if err != nil {
		return "", fmt.Errorf("list events: %w", err)
	}

	loc := user.Location()
	now := d.now()
	localNow := now.In(loc)
	dayStart := time.Date(localNow.Year(), localNow.Month(), localNow.Day(), 0, 0, 0, 0, loc)

	upcoming := make([]domain.Event, 0, len(events))
	for _, event := range events {
		if !event.StartTime.Before(dayStart) {
			upcoming = append(upcoming, event)
		}
	}
	sortEvents(upcoming)

	if len(upcoming) == 0 {
		return "No events found", nil
	}

	var lines []string
	lastLabel := ""
	for _, event := range upcoming {
		label := timefmt.Label(event.StartTime, now, loc)
		if label != lastLabel {
			lines = append(lines, label)
			lastLabel = label
		}
		lines = append(lines, fmt.Sprintf("%s %s | id=%d",
			event.StartTime.In(loc).Format("15:04"), event.Title, event.EventID))
	}

	return strings.Join(lines, "\n"), nil
}

func handleListAllEvents(ctx context.Context, d *Dispatcher, user *domain.User, args string) (string, error) {
	from, to, err := parser.ParseRange(args)
	if err != nil {
		return "", userFacing(err)
	}

	events, err := d.store.ListEventsBetween(ctx, user.UserID, from, to)
	if err != nil {
		return "", fmt.Errorf("list events between: %w", err)
	}
	sortEvents(events)

	if len(events) == 0 {
		return "No events found", nil
	}

	lines := make([]string, 0, len(events))
	for _, event := range events {
		endText := "-"
		if event.EndTime != nil {
			endText = event.EndTime.UTC().Format(time.RFC3339)
		}
		status := "open"
		if event.IsClosed {
			status = "closed"
		}
		lines = append(lines, fmt.Sprintf("%d %s %s %s [%s]",
			event.EventID, event.StartTime.UTC().Format(time.RFC3339), endText, event.Title, status))
	}

	return strings.Join(lines, "\n"), nil
}

func handleCloseEvent(ctx context.Context, d *Dispatcher, user *domain.User, args string) (string, error) {
	var ids []int64
	for _, token := range strings.Fields(args) {
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	closed, err := d.store.CloseEvents(ctx, user.UserID, ids)
	if err != nil {
		return "", fmt.Errorf("close events: %w", err)
	}

	if len(closed) == 0 {
		return "No events closed", nil
	}

	parts := make([]string, 0, len(closed))
	for _, id := range closed {
		parts = append(parts, strconv.FormatInt(id, 10))
	}

	return "Closed: " + strings.Join(parts, " "), nil
}

func pastWarning(start, now time.Time) string {
	if start.Before(now) {
		return " (past event)"
	}
	return ""
}

// sortEvents orders by start time ascending with id as the tie-breaker.
func sortEvents(events []domain.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].StartTime.Equal(events[j].StartTime) {
			return events[i].EventID < events[j].EventID
		}
		return events[i].StartTime.Before(events[j].StartTime)
	})
}
