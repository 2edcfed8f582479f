package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/helpdesk/internal/model"
	"github.com/helpdesk/internal/repository"
	"github.com/helpdesk/internal/schedule"
)

// ScheduleService manages the weekly schedule and date overrides, and
// answers availability questions in the configured time zone.
type ScheduleService struct {
	store ScheduleStore
	loc   *time.Location
}

func NewScheduleService(store ScheduleStore, loc *time.Location) *ScheduleService {
	if loc == nil {
		loc = time.Local
	}
	return &ScheduleService{store: store, loc: loc}
}

// Now returns the current time in the schedule's zone. Split out so tests
// can call the resolver with fixed instants instead.
func (s *ScheduleService) Now() time.Time { return time.Now().In(s.loc) }

func (s *ScheduleService) snapshot(ctx context.Context, now time.Time) (schedule.Snapshot, error) {
	entries, err := s.store.ListWeekly(ctx)
	if err != nil {
		return schedule.Snapshot{}, fmt.Errorf("schedule snapshot: %w", err)
	}
	overrides, err := s.store.ListOverridesFrom(ctx, model.DateOnly(now))
	if err != nil {
		return schedule.Snapshot{}, fmt.Errorf("schedule snapshot: %w", err)
	}
	return schedule.NewSnapshot(entries, overrides), nil
}

// Availability resolves whether support is open right now, with the reason
// and the next-open hint for closed answers.
type Availability struct {
	Available     bool   `json:"is_available"`
	Reason        string `json:"reason"`
	NextAvailable string `json:"next_available,omitempty"`
}

// CurrentAvailability resolves availability at now.
func (s *ScheduleService) CurrentAvailability(ctx context.Context, now time.Time) (Availability, error) {
	snap, err := s.snapshot(ctx, now)
	if err != nil {
		return Availability{}, err
	}
	open, reason := snap.IsAvailable(now)
	a := Availability{Available: open, Reason: reason}
	if !open {
		a.NextAvailable = snap.NextAvailable(now)
	}
	return a, nil
}

// GetWeekly returns all seven weekday entries, seeding the default week
// (Mon-Fri 09:00-17:00) on first use.
func (s *ScheduleService) GetWeekly(ctx context.Context) ([]model.WeeklyScheduleEntry, error) {
	entries, err := s.store.ListWeekly(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) > 0 {
		return entries, nil
	}
	if err := s.store.SeedWeeklyDefaults(ctx, schedule.DefaultWeek()); err != nil {
		return nil, err
	}
	return s.store.ListWeekly(ctx)
}

func validateWindow(isOpen bool, open, end *model.TimeOfDay) error {
	if !isOpen {
		return nil
	}
	if open == nil || end == nil {
		return validationErrorf("open and close times are required for an open day")
	}
	if *open >= *end {
		return validationErrorf("open time must be before close time")
	}
	return nil
}

// UpdateWeekly rewrites the entry for one weekday.
func (s *ScheduleService) UpdateWeekly(ctx context.Context, e model.WeeklyScheduleEntry, updatedBy string) (*model.WeeklyScheduleEntry, error) {
	if e.Day < model.Monday || e.Day > model.Sunday {
		return nil, validationErrorf("day must be between 0 (Monday) and 6 (Sunday)")
	}
	if err := validateWindow(e.IsOpen, e.OpenTime, e.CloseTime); err != nil {
		return nil, err
	}
	if !e.IsOpen {
		e.OpenTime, e.CloseTime = nil, nil
	}
	e.UpdatedAt = s.Now()
	e.UpdatedBy = updatedBy
	if err := s.store.UpsertWeekly(ctx, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ApplyPreset rewrites the given weekdays with a named hours template.
func (s *ScheduleService) ApplyPreset(ctx context.Context, name string, days []model.Weekday, updatedBy string) ([]model.WeeklyScheduleEntry, error) {
	preset, ok := model.Presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	if len(days) == 0 {
		return nil, validationErrorf("at least one day is required")
	}
	updated := make([]model.WeeklyScheduleEntry, 0, len(days))
	for _, day := range days {
		e := model.WeeklyScheduleEntry{Day: day, IsOpen: preset.IsOpen}
		if preset.IsOpen {
			open, end := preset.OpenTime, preset.CloseTime
			e.OpenTime, e.CloseTime = &open, &end
		}
		got, err := s.UpdateWeekly(ctx, e, updatedBy)
		if err != nil {
			return nil, err
		}
		updated = append(updated, *got)
	}
	return updated, nil
}

// CreateOverride records a date-specific exception. Past dates are
// rejected; "today" counts as valid.
func (s *ScheduleService) CreateOverride(ctx context.Context, o model.ScheduleOverride, createdBy string) (*model.ScheduleOverride, error) {
	now := s.Now()
	o.Date = model.DateOnly(o.Date)
	if o.Date.Before(model.DateOnly(now)) {
		return nil, ErrPastDate
	}
	if o.Reason == "" {
		return nil, validationErrorf("a reason is required for schedule overrides")
	}
	if err := validateWindow(o.IsOpen, o.OpenTime, o.CloseTime); err != nil {
		return nil, err
	}
	if !o.IsOpen {
		o.OpenTime, o.CloseTime = nil, nil
	}
	o.CreatedAt = now
	o.CreatedBy = createdBy
	if err := s.store.CreateOverride(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListOverrides returns today's and future overrides, soonest first.
func (s *ScheduleService) ListOverrides(ctx context.Context) ([]model.ScheduleOverride, error) {
	return s.store.ListOverridesFrom(ctx, model.DateOnly(s.Now()))
}

// OverrideForDate returns the override for one date, or ErrNotFound.
func (s *ScheduleService) OverrideForDate(ctx context.Context, date time.Time) (*model.ScheduleOverride, error) {
	o, err := s.store.GetOverrideByDate(ctx, date)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	return o, err
}

func (s *ScheduleService) DeleteOverride(ctx context.Context, id int64) error {
	err := s.store.DeleteOverride(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
