package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmptyClock   = errors.New("empty clock")
	ErrInvalidClock = errors.New("invalid clock")
)

const (
	clockLayout     = "3:04 PM"
	dateKeyLayout   = "2006-01-02"
	dateHeadLayout  = "Jan 02 2006 (Monday)"
	shortDateLayout = "Jan 02"
)

// LoadLocation validates tz as an IANA location.
func LoadLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return nil, errors.New("empty timezone")
	}
	return time.LoadLocation(tz)
}

// FormatClock renders t as a 12-hour clock without a leading zero, e.g. "3:04 PM".
func FormatClock(t time.Time) string {
	return t.Format(clockLayout)
}

// ParseClock parses a 12-hour clock such as "3:04 PM" or "03:04 pm" and
// returns the 24-hour hour and minute.
func ParseClock(s string) (hour, minute int, err error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, 0, ErrEmptyClock
	}
	fields := strings.Fields(s)
	if len(fields) != 2 || (fields[1] != "AM" && fields[1] != "PM") {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	parts := strings.Split(fields[0], ":")
	if len(parts) != 2 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 1 || h > 12 {
		return 0, 0, fmt.Errorf("%w: hour in %q", ErrInvalidClock, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("%w: minute in %q", ErrInvalidClock, s)
	}

	hour = h % 12
	if fields[1] == "PM" {
		hour += 12
	}
	return hour, m, nil
}

// DateKey returns the sortable calendar key (YYYY-MM-DD) of t.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// FormatDateHeading turns a DateKey into "Jan 02 2006 (Monday)".
// Keys that are not dates are returned unchanged.
func FormatDateHeading(key string) string {
	d, err := time.Parse(dateKeyLayout, key)
	if err != nil {
		return key
	}
	return d.Format(dateHeadLayout)
}

// FormatShortDate renders month and day only, e.g. "Jan 02".
func FormatShortDate(t time.Time) string {
	return t.Format(shortDateLayout)
}

// FromMillis converts provider milliseconds into a time in loc.
func FromMillis(ms int64, loc *time.Location) time.Time {
	return time.UnixMilli(ms).In(loc)
}
