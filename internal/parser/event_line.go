// Package parser turns free-text command arguments into structured event data.
package parser

import (
	"regexp"
	"strings"
	"time"
)

// Parse error discriminators identifying which part of the input was invalid.
const (
	FieldDate  = "date"
	FieldTime  = "time"
	FieldTitle = "title"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// ParseError reports an invalid event line. Field names the component that
// failed validation: date, time, or title.
type ParseError struct {
	Field string
}

func (e *ParseError) Error() string {
	return "Invalid event format"
}

// ParseEventLine parses "YYYY-MM-DD HH:MM [YYYY-MM-DD HH:MM] title..." into a
// start time, an optional end time, and a title. Date and time components are
// interpreted in loc (UTC when nil) and returned in UTC. The second date/time
// pair is consumed only when the third and fourth tokens both look like a date
// and a time; otherwise they belong to the title.
func ParseEventLine(line string, loc *time.Location) (time.Time, *time.Time, string, error) {
	if loc == nil {
		loc = time.UTC
	}

	// ';' is reserved as a separator and rejected outright.
	if strings.Contains(line, ";") {
		return time.Time{}, nil, "", &ParseError{Field: FieldTitle}
	}

	parts := strings.Fields(line)
	if len(parts) < 3 {
		return time.Time{}, nil, "", &ParseError{Field: FieldTitle}
	}

	start, err := combine(parts[0], parts[1], loc)
	if err != nil {
		return time.Time{}, nil, "", err
	}

	idx := 2
	var end *time.Time
	if len(parts) >= 4 && dateRe.MatchString(parts[2]) && timeRe.MatchString(parts[3]) {
		endVal, err := combine(parts[2], parts[3], loc)
		if err != nil {
			return time.Time{}, nil, "", err
		}
		end = &endVal
		idx = 4
	}

	if len(parts) <= idx {
		return time.Time{}, nil, "", &ParseError{Field: FieldTitle}
	}

	title := strings.Join(parts[idx:], " ")

	return start, end, title, nil
}

// combine validates the date and time tokens independently so the error names
// the exact component that failed, then builds the instant in loc.
func combine(dateToken, timeToken string, loc *time.Location) (time.Time, error) {
	day, err := time.Parse(dateLayout, dateToken)
	if err != nil {
		return time.Time{}, &ParseError{Field: FieldDate}
	}

	clock, err := time.Parse(timeLayout, timeToken)
	if err != nil {
		return time.Time{}, &ParseError{Field: FieldTime}
	}

	local := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)

	return local.UTC(), nil
}
