package schedule

import (
	"strings"
	"testing"
	"time"

	"github.com/helpdesk/internal/model"
)

func tod(h, m int) *model.TimeOfDay {
	t := model.NewTimeOfDay(h, m)
	return &t
}

func openDay(day model.Weekday, oh, om, ch, cm int) model.WeeklyScheduleEntry {
	return model.WeeklyScheduleEntry{Day: day, IsOpen: true, OpenTime: tod(oh, om), CloseTime: tod(ch, cm)}
}

func closedDay(day model.Weekday) model.WeeklyScheduleEntry {
	return model.WeeklyScheduleEntry{Day: day}
}

// weekdays of reference: 2025-12-22 is a Monday, 2025-12-25 a Thursday.
func at(day, hour, min int) time.Time {
	return time.Date(2025, 12, day, hour, min, 0, 0, time.UTC)
}

func TestClosedDayDominatesHours(t *testing.T) {
	// A closed day stays closed even if stale open/close times remain.
	entry := closedDay(model.Sunday)
	entry.OpenTime, entry.CloseTime = tod(9, 0), tod(17, 0)
	snap := NewSnapshot([]model.WeeklyScheduleEntry{entry}, nil)

	open, reason := snap.IsAvailable(at(28, 12, 0)) // Sunday noon
	if open {
		t.Fatal("expected closed")
	}
	if reason != "Support is closed on Sundays" {
		t.Fatalf("reason = %q", reason)
	}
}

func TestMissingEntryIsClosed(t *testing.T) {
	snap := NewSnapshot(nil, nil)
	open, reason := snap.IsAvailable(at(22, 12, 0))
	if open {
		t.Fatal("expected closed")
	}
	if reason != "Schedule not configured for this day" {
		t.Fatalf("reason = %q", reason)
	}
}

func TestBoundsAreInclusive(t *testing.T) {
	snap := NewSnapshot([]model.WeeklyScheduleEntry{openDay(model.Monday, 9, 0, 17, 0)}, nil)

	cases := []struct {
		hour, min int
		want      bool
	}{
		{8, 59, false},
		{9, 0, true},
		{12, 30, true},
		{17, 0, true},  // close bound inclusive
		{17, 1, false}, // one tick past close
	}
	for _, c := range cases {
		open, _ := snap.IsAvailable(at(22, c.hour, c.min))
		if open != c.want {
			t.Errorf("at %02d:%02d open = %v, want %v", c.hour, c.min, open, c.want)
		}
	}
}

func TestClosedReasonShowsHours(t *testing.T) {
	snap := NewSnapshot([]model.WeeklyScheduleEntry{openDay(model.Monday, 9, 0, 16, 30)}, nil)
	open, reason := snap.IsAvailable(at(22, 18, 0))
	if open {
		t.Fatal("expected closed")
	}
	if reason != "Support hours: 09:00 AM - 04:30 PM" {
		t.Fatalf("reason = %q", reason)
	}
}

func TestOpenWithoutTimesIsAllDay(t *testing.T) {
	entry := model.WeeklyScheduleEntry{Day: model.Monday, IsOpen: true}
	snap := NewSnapshot([]model.WeeklyScheduleEntry{entry}, nil)
	open, reason := snap.IsAvailable(at(22, 3, 0))
	if !open || reason != "Support is available" {
		t.Fatalf("open=%v reason=%q", open, reason)
	}
}

func TestOverrideClosesAnOpenDay(t *testing.T) {
	entries := []model.WeeklyScheduleEntry{openDay(model.Thursday, 9, 0, 17, 0)}
	overrides := []model.ScheduleOverride{{
		Date:   time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC),
		IsOpen: false,
		Reason: "Closed for Christmas",
	}}
	snap := NewSnapshot(entries, overrides)

	open, reason := snap.IsAvailable(at(25, 12, 0)) // Thursday noon, inside weekly hours
	if open {
		t.Fatal("override must win over the weekly entry")
	}
	if reason != "Closed for Christmas" {
		t.Fatalf("reason = %q", reason)
	}
}

func TestOverrideOpensAClosedDayWithHours(t *testing.T) {
	entries := []model.WeeklyScheduleEntry{closedDay(model.Sunday)}
	overrides := []model.ScheduleOverride{{
		Date:      time.Date(2025, 12, 28, 0, 0, 0, 0, time.UTC),
		IsOpen:    true,
		OpenTime:  tod(10, 0),
		CloseTime: tod(14, 0),
		Reason:    "Finals weekend",
	}}
	snap := NewSnapshot(entries, overrides)

	open, reason := snap.IsAvailable(at(28, 11, 0))
	if !open {
		t.Fatal("expected open inside the override window")
	}
	if !strings.Contains(reason, "Finals weekend") {
		t.Fatalf("reason = %q, want the override reason propagated", reason)
	}

	open, reason = snap.IsAvailable(at(28, 15, 0))
	if open {
		t.Fatal("expected closed outside the override window")
	}
	if !strings.Contains(reason, "10:00 AM - 02:00 PM") {
		t.Fatalf("reason = %q", reason)
	}
}

func TestNextAvailableToday(t *testing.T) {
	snap := NewSnapshot([]model.WeeklyScheduleEntry{openDay(model.Monday, 9, 0, 17, 0)}, nil)
	got := snap.NextAvailable(at(22, 7, 30))
	if got != "Today at 09:00 AM" {
		t.Fatalf("got %q", got)
	}
}

func TestNextAvailableTomorrowAndLater(t *testing.T) {
	entries := []model.WeeklyScheduleEntry{
		openDay(model.Monday, 9, 0, 17, 0),
		openDay(model.Friday, 9, 0, 17, 0),
	}
	snap := NewSnapshot(entries, nil)

	// Thursday afternoon: Friday is next.
	if got := snap.NextAvailable(at(25, 18, 0)); got != "Tomorrow (Friday) at 09:00 AM" {
		t.Fatalf("got %q", got)
	}
	// Friday evening: the following Monday.
	if got := snap.NextAvailable(at(26, 18, 0)); got != "Monday at 09:00 AM" {
		t.Fatalf("got %q", got)
	}
}

func TestNextAvailableIgnoresOverrides(t *testing.T) {
	// The lookahead answers from the recurring schedule only: a Christmas
	// closure does not stop Friday from being advertised.
	entries := []model.WeeklyScheduleEntry{
		openDay(model.Thursday, 9, 0, 17, 0),
		openDay(model.Friday, 9, 0, 17, 0),
	}
	overrides := []model.ScheduleOverride{{
		Date:   time.Date(2025, 12, 26, 0, 0, 0, 0, time.UTC),
		IsOpen: false,
		Reason: "Holiday",
	}}
	snap := NewSnapshot(entries, overrides)

	if got := snap.NextAvailable(at(25, 18, 0)); got != "Tomorrow (Friday) at 09:00 AM" {
		t.Fatalf("got %q", got)
	}
}

func TestNextAvailableNothingOpen(t *testing.T) {
	entries := []model.WeeklyScheduleEntry{closedDay(model.Monday), closedDay(model.Tuesday)}
	snap := NewSnapshot(entries, nil)
	if got := snap.NextAvailable(at(22, 12, 0)); got != NextUnavailable {
		t.Fatalf("got %q", got)
	}
}

func TestDefaultWeek(t *testing.T) {
	entries := DefaultWeek()
	if len(entries) != 7 {
		t.Fatalf("len = %d", len(entries))
	}
	for _, e := range entries {
		weekday := e.Day <= model.Friday
		if e.IsOpen != weekday {
			t.Errorf("day %s open = %v", e.Day, e.IsOpen)
		}
		if weekday && (e.OpenTime.String() != "09:00" || e.CloseTime.String() != "17:00") {
			t.Errorf("day %s hours = %s-%s", e.Day, e.OpenTime, e.CloseTime)
		}
	}
}
