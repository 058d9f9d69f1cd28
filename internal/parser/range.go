package parser

import (
	"errors"
	"strings"
	"time"
)

const rangeLayout = "2006-01-02 15:04"

// Range parsing errors surfaced verbatim as reply text.
var (
	ErrInvalidRangeFormat  = errors.New("Invalid range format")
	ErrInvalidFromDatetime = errors.New("Invalid from datetime")
	ErrInvalidToDatetime   = errors.New("Invalid to datetime")
)

// ParseRange parses an optional "from [to]" datetime range. Empty input means
// unbounded on both sides. Two tokens give a start bound, four tokens give
// both bounds; any other token count is rejected. Each half is a
// "YYYY-MM-DD HH:MM" pair read as UTC.
func ParseRange(args string) (*time.Time, *time.Time, error) {
	parts := strings.Fields(args)

	switch len(parts) {
	case 0:
		return nil, nil, nil
	case 2:
		from, err := parseRangeHalf(parts[0], parts[1], ErrInvalidFromDatetime)
		if err != nil {
			return nil, nil, err
		}
		return from, nil, nil
	case 4:
		from, err := parseRangeHalf(parts[0], parts[1], ErrInvalidFromDatetime)
		if err != nil {
			return nil, nil, err
		}
		to, err := parseRangeHalf(parts[2], parts[3], ErrInvalidToDatetime)
		if err != nil {
			return nil, nil, err
		}
		return from, to, nil
	default:
		return nil, nil, ErrInvalidRangeFormat
	}
}

func parseRangeHalf(dateToken, timeToken string, invalid error) (*time.Time, error) {
	parsed, err := time.ParseInLocation(rangeLayout, dateToken+" "+timeToken, time.UTC)
	if err != nil {
		return nil, invalid
	}

	return &parsed, nil
}
