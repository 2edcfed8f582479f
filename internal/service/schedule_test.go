package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/helpdesk/internal/model"
)

func newScheduleFixture() (*ScheduleService, *fakeScheduleStore) {
	store := newFakeScheduleStore()
	return NewScheduleService(store, time.UTC), store
}

func timePtr(h, m int) *model.TimeOfDay {
	t := model.NewTimeOfDay(h, m)
	return &t
}

func TestGetWeeklySeedsDefaults(t *testing.T) {
	svc, _ := newScheduleFixture()
	entries, err := svc.GetWeekly(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 7 {
		t.Fatalf("entries = %d", len(entries))
	}
	for _, e := range entries {
		if e.Day <= model.Friday && !e.IsOpen {
			t.Errorf("%s seeded closed", e.Day)
		}
		if e.Day > model.Friday && e.IsOpen {
			t.Errorf("%s seeded open", e.Day)
		}
	}
}

func TestUpdateWeeklyValidation(t *testing.T) {
	svc, _ := newScheduleFixture()
	ctx := context.Background()

	cases := []model.WeeklyScheduleEntry{
		{Day: 9, IsOpen: true},
		{Day: model.Monday, IsOpen: true},                                                     // open without times
		{Day: model.Monday, IsOpen: true, OpenTime: timePtr(9, 0)},                            // missing close
		{Day: model.Monday, IsOpen: true, OpenTime: timePtr(17, 0), CloseTime: timePtr(9, 0)}, // inverted
		{Day: model.Monday, IsOpen: true, OpenTime: timePtr(9, 0), CloseTime: timePtr(9, 0)},  // empty window
	}
	for i, e := range cases {
		if _, err := svc.UpdateWeekly(ctx, e, "mgr"); !errors.Is(err, ErrValidation) {
			t.Errorf("case %d err = %v, want validation error", i, err)
		}
	}
}

func TestUpdateWeeklyClearsTimesWhenClosed(t *testing.T) {
	svc, store := newScheduleFixture()
	e := model.WeeklyScheduleEntry{Day: model.Saturday, IsOpen: false, OpenTime: timePtr(9, 0), CloseTime: timePtr(17, 0)}
	updated, err := svc.UpdateWeekly(context.Background(), e, "mgr")
	if err != nil {
		t.Fatal(err)
	}
	if updated.OpenTime != nil || updated.CloseTime != nil {
		t.Fatalf("closed day kept times: %+v", updated)
	}
	if got := store.weekly[model.Saturday]; got.UpdatedBy != "mgr" {
		t.Fatalf("updated_by = %q", got.UpdatedBy)
	}
}

func TestApplyPreset(t *testing.T) {
	svc, store := newScheduleFixture()
	ctx := context.Background()

	if _, err := svc.ApplyPreset(ctx, "happy_hour", []model.Weekday{model.Monday}, "mgr"); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("err = %v, want ErrUnknownPreset", err)
	}
	if _, err := svc.ApplyPreset(ctx, "business_hours", nil, "mgr"); !errors.Is(err, ErrValidation) {
		t.Fatalf("no days err = %v", err)
	}

	updated, err := svc.ApplyPreset(ctx, "business_hours", []model.Weekday{model.Monday, model.Tuesday}, "mgr")
	if err != nil {
		t.Fatal(err)
	}
	if len(updated) != 2 {
		t.Fatalf("updated = %d days", len(updated))
	}
	mon := store.weekly[model.Monday]
	if !mon.IsOpen || mon.OpenTime.String() != "09:00" || mon.CloseTime.String() != "16:30" {
		t.Fatalf("monday = %+v", mon)
	}

	if _, err := svc.ApplyPreset(ctx, "all_closed", []model.Weekday{model.Monday}, "mgr"); err != nil {
		t.Fatal(err)
	}
	if store.weekly[model.Monday].IsOpen {
		t.Fatal("all_closed left monday open")
	}
}

func TestCreateOverridePastDate(t *testing.T) {
	svc, _ := newScheduleFixture()
	ctx := context.Background()

	past := model.ScheduleOverride{Date: time.Now().UTC().AddDate(0, 0, -1), Reason: "Holiday"}
	if _, err := svc.CreateOverride(ctx, past, "mgr"); !errors.Is(err, ErrPastDate) {
		t.Fatalf("err = %v, want ErrPastDate", err)
	}

	// Today is allowed.
	today := model.ScheduleOverride{Date: time.Now().UTC(), Reason: "Emergency closure"}
	created, err := svc.CreateOverride(ctx, today, "mgr")
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == 0 || created.CreatedBy != "mgr" {
		t.Fatalf("created = %+v", created)
	}
}

func TestCreateOverrideValidation(t *testing.T) {
	svc, _ := newScheduleFixture()
	ctx := context.Background()
	tomorrow := time.Now().UTC().AddDate(0, 0, 1)

	if _, err := svc.CreateOverride(ctx, model.ScheduleOverride{Date: tomorrow}, "mgr"); !errors.Is(err, ErrValidation) {
		t.Fatalf("missing reason err = %v", err)
	}
	bad := model.ScheduleOverride{Date: tomorrow, IsOpen: true, OpenTime: timePtr(15, 0), CloseTime: timePtr(10, 0), Reason: "x"}
	if _, err := svc.CreateOverride(ctx, bad, "mgr"); !errors.Is(err, ErrValidation) {
		t.Fatalf("inverted window err = %v", err)
	}
	timeless := model.ScheduleOverride{Date: tomorrow, IsOpen: true, Reason: "Special Event"}
	if _, err := svc.CreateOverride(ctx, timeless, "mgr"); !errors.Is(err, ErrValidation) {
		t.Fatalf("open without times err = %v", err)
	}
}

func TestOverrideLookupAndDelete(t *testing.T) {
	svc, _ := newScheduleFixture()
	ctx := context.Background()
	tomorrow := time.Now().UTC().AddDate(0, 0, 1)

	created, err := svc.CreateOverride(ctx, model.ScheduleOverride{Date: tomorrow, Reason: "Holiday"}, "mgr")
	if err != nil {
		t.Fatal(err)
	}
	got, err := svc.OverrideForDate(ctx, tomorrow)
	if err != nil || got.Reason != "Holiday" {
		t.Fatalf("lookup = %+v, %v", got, err)
	}
	if err := svc.DeleteOverride(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.DeleteOverride(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete err = %v", err)
	}
	if _, err := svc.OverrideForDate(ctx, tomorrow); !errors.Is(err, ErrNotFound) {
		t.Fatalf("lookup after delete err = %v", err)
	}
}

func TestCurrentAvailabilityUsesOverride(t *testing.T) {
	svc, store := newScheduleFixture()
	ctx := context.Background()
	now := time.Date(2025, 12, 25, 12, 0, 0, 0, time.UTC) // Thursday

	store.weekly[model.Thursday] = model.WeeklyScheduleEntry{
		Day: model.Thursday, IsOpen: true, OpenTime: timePtr(9, 0), CloseTime: timePtr(17, 0),
	}
	store.overrides = append(store.overrides, model.ScheduleOverride{
		ID: 1, Date: time.Date(2025, 12, 25, 0, 0, 0, 0, time.UTC), IsOpen: false, Reason: "Closed for Christmas",
	})

	a, err := svc.CurrentAvailability(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if a.Available {
		t.Fatal("override must close the day")
	}
	if a.Reason != "Closed for Christmas" {
		t.Fatalf("reason = %q", a.Reason)
	}
	if a.NextAvailable == "" {
		t.Fatal("closed answer must carry next_available")
	}
}
