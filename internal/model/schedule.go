package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time stored as minutes since midnight.
type TimeOfDay int

// NewTimeOfDay builds a TimeOfDay from hour and minute.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses "HH:MM" (24-hour).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parts := strings.SplitN(strings.TrimSpace(s), ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid time %q: bad hour", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q: bad minute", s)
	}
	return NewTimeOfDay(h, m), nil
}

// ClockOf extracts the time of day from t, truncated to the minute.
func ClockOf(t time.Time) TimeOfDay {
	return NewTimeOfDay(t.Hour(), t.Minute())
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Minutes returns minutes since midnight.
func (t TimeOfDay) Minutes() int { return int(t) }

// String formats as 24-hour "HH:MM".
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Clock12 formats as 12-hour "03:04 PM", the format shown to students.
func (t TimeOfDay) Clock12() string {
	ref := time.Date(2000, 1, 1, t.Hour(), t.Minute(), 0, 0, time.UTC)
	return ref.Format("03:04 PM")
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	v, err := ParseTimeOfDay(s)
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Weekday indexes days Monday=0 .. Sunday=6, matching the schedule tables.
type Weekday int

const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [7]string{
	"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday",
}

func (d Weekday) String() string {
	if d < 0 || d > 6 {
		return "Unknown"
	}
	return weekdayNames[d]
}

// WeekdayOf converts a time.Time weekday (Sunday=0) to the Monday=0 index.
func WeekdayOf(t time.Time) Weekday {
	return Weekday((int(t.Weekday()) + 6) % 7)
}

// WeeklyScheduleEntry is the recurring support window for one weekday.
// If IsOpen is true, both OpenTime and CloseTime must be set and
// OpenTime < CloseTime, unless the day is open without time restrictions
// (both nil).
type WeeklyScheduleEntry struct {
	Day       Weekday    `json:"day"`
	IsOpen    bool       `json:"is_open"`
	OpenTime  *TimeOfDay `json:"open_time,omitempty"`
	CloseTime *TimeOfDay `json:"close_time,omitempty"`
	UpdatedAt time.Time  `json:"updated_at"`
	UpdatedBy string     `json:"updated_by,omitempty"`
}

// ScheduleOverride is a date-specific exception that takes precedence over
// the weekly entry for its date.
type ScheduleOverride struct {
	ID        int64      `json:"id"`
	Date      time.Time  `json:"date"`
	IsOpen    bool       `json:"is_open"`
	OpenTime  *TimeOfDay `json:"open_time,omitempty"`
	CloseTime *TimeOfDay `json:"close_time,omitempty"`
	Reason    string     `json:"reason"`
	CreatedAt time.Time  `json:"created_at"`
	CreatedBy string     `json:"created_by,omitempty"`
}

// SchedulePreset is a named weekly-hours template applied to a set of days.
type SchedulePreset struct {
	IsOpen    bool
	OpenTime  TimeOfDay
	CloseTime TimeOfDay
}

// Presets mirrors the bulk-schedule options offered to system managers.
var Presets = map[string]SchedulePreset{
	"business_hours":  {IsOpen: true, OpenTime: NewTimeOfDay(9, 0), CloseTime: NewTimeOfDay(16, 30)},
	"extended_hours":  {IsOpen: true, OpenTime: NewTimeOfDay(9, 0), CloseTime: NewTimeOfDay(18, 0)},
	"weekend_support": {IsOpen: true, OpenTime: NewTimeOfDay(10, 0), CloseTime: NewTimeOfDay(15, 0)},
	"finals_week":     {IsOpen: true, OpenTime: NewTimeOfDay(9, 0), CloseTime: NewTimeOfDay(19, 0)},
	"all_closed":      {IsOpen: false},
}

// DateOnly truncates t to midnight in its own location.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
