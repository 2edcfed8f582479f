package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"09:00", "09:00", false},
		{"16:30", "16:30", false},
		{"00:00", "00:00", false},
		{"23:59", "23:59", false},
		{" 9:05 ", "09:05", false},
		{"24:00", "", true},
		{"12:60", "", true},
		{"noon", "", true},
		{"", "", true},
	}
	for _, c := range cases {
		got, err := ParseTimeOfDay(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("ParseTimeOfDay(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseTimeOfDay(%q): %v", c.in, err)
			continue
		}
		if got.String() != c.want {
			t.Errorf("ParseTimeOfDay(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTimeOfDayClock12(t *testing.T) {
	cases := []struct{ h, m int; want string }{
		{9, 0, "09:00 AM"},
		{16, 30, "04:30 PM"},
		{0, 15, "12:15 AM"},
		{12, 0, "12:00 PM"},
	}
	for _, c := range cases {
		if got := NewTimeOfDay(c.h, c.m).Clock12(); got != c.want {
			t.Errorf("%02d:%02d Clock12() = %q, want %q", c.h, c.m, got, c.want)
		}
	}
}

func TestTimeOfDayJSON(t *testing.T) {
	entry := WeeklyScheduleEntry{Day: Friday, IsOpen: true}
	open := NewTimeOfDay(9, 0)
	entry.OpenTime = &open

	data, err := json.Marshal(entry)
	if err != nil {
		t.Fatal(err)
	}
	var back WeeklyScheduleEntry
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.OpenTime == nil || *back.OpenTime != open {
		t.Fatalf("round trip lost open_time: %+v", back)
	}
}

func TestWeekdayOf(t *testing.T) {
	// 2025-12-22 is a Monday, 2025-12-28 a Sunday.
	if d := WeekdayOf(time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)); d != Monday {
		t.Errorf("Dec 22 = %s", d)
	}
	if d := WeekdayOf(time.Date(2025, 12, 28, 10, 0, 0, 0, time.UTC)); d != Sunday {
		t.Errorf("Dec 28 = %s", d)
	}
}

func TestPresets(t *testing.T) {
	p, ok := Presets["business_hours"]
	if !ok || !p.IsOpen || p.OpenTime.String() != "09:00" || p.CloseTime.String() != "16:30" {
		t.Fatalf("business_hours = %+v", p)
	}
	if p := Presets["all_closed"]; p.IsOpen {
		t.Fatal("all_closed must be closed")
	}
}
