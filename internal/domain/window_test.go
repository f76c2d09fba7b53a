package domain

import (
	"testing"
	"time"
)

func TestDayWindow_CoversWholeDay(t *testing.T) {
	now := mustLocal(t, "Asia/Manila", 2024, time.January, 1, 14, 30)
	w := DayWindow(now)
	if w.Start.Hour() != 0 || w.Start.Day() != 1 {
		t.Fatalf("bad start %v", w.Start)
	}
	if w.End.Hour() != 23 || w.End.Minute() != 59 || w.End.Nanosecond() != int(999*time.Millisecond) {
		t.Fatalf("bad end %v", w.End)
	}
	if w.EndMillis()-w.StartMillis() != 24*60*60*1000-1 {
		t.Fatalf("unexpected span %d", w.EndMillis()-w.StartMillis())
	}
}

func TestWeekWindow_SevenDays(t *testing.T) {
	now := mustLocal(t, "Asia/Manila", 2024, time.January, 30, 10, 0)
	w := WeekWindow(now)
	if w.Start.Day() != 30 {
		t.Fatalf("bad start %v", w.Start)
	}
	// Jan 30 + 6 days = Feb 5
	if w.End.Month() != time.February || w.End.Day() != 5 {
		t.Fatalf("bad end %v", w.End)
	}
}

func TestBacklogWindow_EndsBeforeToday(t *testing.T) {
	now := mustLocal(t, "Asia/Manila", 2024, time.March, 8, 6, 0)
	w := BacklogWindow(now)
	if w.Start.Day() != 1 || w.Start.Hour() != 0 {
		t.Fatalf("bad start %v", w.Start)
	}
	if w.End.Day() != 7 || w.End.Hour() != 23 {
		t.Fatalf("bad end %v", w.End)
	}
	if !w.End.Before(StartOfDay(now)) {
		t.Fatalf("backlog must end before today")
	}
}

func TestReminderWindow_CrossesMidnight(t *testing.T) {
	now := mustLocal(t, "Asia/Manila", 2024, time.January, 1, 23, 0)
	w := ReminderWindow(now, 2*time.Hour)
	if w.Start.Day() != 1 {
		t.Fatalf("bad start %v", w.Start)
	}
	if w.End.Day() != 2 {
		t.Fatalf("window must reach into tomorrow, got %v", w.End)
	}

	morning := mustLocal(t, "Asia/Manila", 2024, time.January, 1, 8, 0)
	if got := ReminderWindow(morning, 2*time.Hour).End.Day(); got != 1 {
		t.Fatalf("morning window must stay on today, got day %d", got)
	}
}
