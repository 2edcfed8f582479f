// Package schedule resolves helpdesk availability from the weekly schedule
// and date-specific overrides. The resolver is pure: it operates on a
// snapshot of stored state and an explicit "now", so tests never need a
// clock abstraction.
package schedule

import (
	"fmt"
	"time"

	"github.com/helpdesk/internal/model"
)

// NextUnavailable is returned by NextAvailable when no day in the 7-day
// lookahead has open hours.
const NextUnavailable = "Schedule not available"

const dateKeyLayout = "2006-01-02"

// Snapshot is a point-in-time copy of the schedule store.
type Snapshot struct {
	Entries   map[model.Weekday]model.WeeklyScheduleEntry
	Overrides map[string]model.ScheduleOverride // keyed by "YYYY-MM-DD"
}

// NewSnapshot indexes the given entries and overrides for resolution.
func NewSnapshot(entries []model.WeeklyScheduleEntry, overrides []model.ScheduleOverride) Snapshot {
	s := Snapshot{
		Entries:   make(map[model.Weekday]model.WeeklyScheduleEntry, len(entries)),
		Overrides: make(map[string]model.ScheduleOverride, len(overrides)),
	}
	for _, e := range entries {
		s.Entries[e.Day] = e
	}
	for _, o := range overrides {
		s.Overrides[o.Date.Format(dateKeyLayout)] = o
	}
	return s
}

// OverrideFor returns the override for the given date, if any.
func (s Snapshot) OverrideFor(date time.Time) (model.ScheduleOverride, bool) {
	o, ok := s.Overrides[date.Format(dateKeyLayout)]
	return o, ok
}

// IsAvailable reports whether support is open at now, with a human-readable
// reason. An override for now's date takes absolute precedence over the
// weekly entry; open/close bounds are inclusive at both ends.
func (s Snapshot) IsAvailable(now time.Time) (bool, string) {
	clock := model.ClockOf(now)

	if o, ok := s.OverrideFor(now); ok {
		if !o.IsOpen {
			return false, o.Reason
		}
		if o.OpenTime == nil || o.CloseTime == nil {
			return true, "Support is available"
		}
		if *o.OpenTime <= clock && clock <= *o.CloseTime {
			return true, fmt.Sprintf("Support is currently available (%s)", o.Reason)
		}
		return false, fmt.Sprintf("Support hours: %s - %s (%s)",
			o.OpenTime.Clock12(), o.CloseTime.Clock12(), o.Reason)
	}

	entry, ok := s.Entries[model.WeekdayOf(now)]
	if !ok {
		return false, "Schedule not configured for this day"
	}
	if !entry.IsOpen {
		return false, fmt.Sprintf("Support is closed on %ss", entry.Day)
	}
	if entry.OpenTime == nil || entry.CloseTime == nil {
		return true, "Support is available"
	}
	if *entry.OpenTime <= clock && clock <= *entry.CloseTime {
		return true, "Support is currently available"
	}
	return false, fmt.Sprintf("Support hours: %s - %s",
		entry.OpenTime.Clock12(), entry.CloseTime.Clock12())
}

// NextAvailable describes when support next opens, scanning today and then
// the following seven weekdays in order, skipping days without an open
// entry. Date overrides are intentionally not consulted here: the recurring
// schedule alone answers "when is support usually next open" (see DESIGN.md
// for the recorded asymmetry with IsAvailable).
func (s Snapshot) NextAvailable(now time.Time) string {
	today := model.WeekdayOf(now)
	clock := model.ClockOf(now)

	if entry, ok := s.Entries[today]; ok && entry.IsOpen &&
		entry.OpenTime != nil && entry.CloseTime != nil && clock < *entry.OpenTime {
		return fmt.Sprintf("Today at %s", entry.OpenTime.Clock12())
	}

	for i := 1; i <= 7; i++ {
		day := model.Weekday((int(today) + i) % 7)
		entry, ok := s.Entries[day]
		if !ok || !entry.IsOpen || entry.OpenTime == nil {
			continue
		}
		if i == 1 {
			return fmt.Sprintf("Tomorrow (%s) at %s", day, entry.OpenTime.Clock12())
		}
		return fmt.Sprintf("%s at %s", day, entry.OpenTime.Clock12())
	}
	return NextUnavailable
}

// DefaultWeek is the seed schedule created on first use: Monday-Friday
// 09:00-17:00 open, weekend closed.
func DefaultWeek() []model.WeeklyScheduleEntry {
	entries := make([]model.WeeklyScheduleEntry, 0, 7)
	for day := model.Monday; day <= model.Sunday; day++ {
		e := model.WeeklyScheduleEntry{Day: day}
		if day <= model.Friday {
			e.IsOpen = true
			open, end := model.NewTimeOfDay(9, 0), model.NewTimeOfDay(17, 0)
			e.OpenTime, e.CloseTime = &open, &end
		}
		entries = append(entries, e)
	}
	return entries
}
