package domain

import "time"

// Window is an inclusive [Start, End] time range.
type Window struct {
	Start time.Time
	End   time.Time
}

// StartMillis returns Start as Unix milliseconds, the provider's wire unit.
func (w Window) StartMillis() int64 { return w.Start.UnixMilli() }

// EndMillis returns End as Unix milliseconds.
func (w Window) EndMillis() int64 { return w.End.UnixMilli() }

// StartOfDay returns local midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// endOfDay returns the last millisecond of t's calendar day.
func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// DayWindow covers the whole calendar day containing day.
func DayWindow(day time.Time) Window {
	return Window{Start: StartOfDay(day), End: endOfDay(day)}
}

// WeekWindow covers today and the following six days.
func WeekWindow(now time.Time) Window {
	start := StartOfDay(now)
	return Window{Start: start, End: endOfDay(start.AddDate(0, 0, 6))}
}

// BacklogWindow covers the seven days ending right before today starts.
func BacklogWindow(now time.Time) Window {
	end := StartOfDay(now)
	return Window{Start: end.AddDate(0, 0, -7), End: end.Add(-time.Millisecond)}
}

// ReminderWindow starts at today's midnight and extends to the end of the day
// that contains now+lead, so reminders shortly after midnight are visible the
// evening before.
func ReminderWindow(now time.Time, lead time.Duration) Window {
	return Window{Start: StartOfDay(now), End: endOfDay(now.Add(lead))}
}

// Tomorrow returns the same clock time one calendar day later.
func Tomorrow(now time.Time) time.Time {
	return now.AddDate(0, 0, 1)
}
