package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/helpdesk/internal/logger"
	"github.com/helpdesk/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ScheduleRepository struct {
	pool *pgxpool.Pool
}

func NewScheduleRepository(pool *pgxpool.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func minutesPtr(t *model.TimeOfDay) *int {
	if t == nil {
		return nil
	}
	m := t.Minutes()
	return &m
}

func timeOfDayPtr(m *int) *model.TimeOfDay {
	if m == nil {
		return nil
	}
	t := model.TimeOfDay(*m)
	return &t
}

func (r *ScheduleRepository) ListWeekly(ctx context.Context) ([]model.WeeklyScheduleEntry, error) {
	defer logger.DeferLogDuration("schedule.ListWeekly", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT day, is_open, open_minutes, close_minutes, updated_at, updated_by
		 FROM weekly_schedule ORDER BY day`,
	)
	if err != nil {
		return nil, fmt.Errorf("scheduleRepo.ListWeekly: %w", err)
	}
	defer rows.Close()

	entries := make([]model.WeeklyScheduleEntry, 0, 7)
	for rows.Next() {
		var e model.WeeklyScheduleEntry
		var open, end *int
		if err := rows.Scan(&e.Day, &e.IsOpen, &open, &end, &e.UpdatedAt, &e.UpdatedBy); err != nil {
			return nil, fmt.Errorf("scheduleRepo.ListWeekly scan: %w", err)
		}
		e.OpenTime, e.CloseTime = timeOfDayPtr(open), timeOfDayPtr(end)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scheduleRepo.ListWeekly rows: %w", err)
	}
	return entries, nil
}

// UpsertWeekly creates or updates the entry for a weekday. Entries are never
// deleted, only rewritten.
func (r *ScheduleRepository) UpsertWeekly(ctx context.Context, e *model.WeeklyScheduleEntry) error {
	defer logger.DeferLogDuration("schedule.UpsertWeekly", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO weekly_schedule (day, is_open, open_minutes, close_minutes, updated_at, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (day) DO UPDATE SET
		   is_open = EXCLUDED.is_open,
		   open_minutes = EXCLUDED.open_minutes,
		   close_minutes = EXCLUDED.close_minutes,
		   updated_at = EXCLUDED.updated_at,
		   updated_by = EXCLUDED.updated_by`,
		e.Day, e.IsOpen, minutesPtr(e.OpenTime), minutesPtr(e.CloseTime), e.UpdatedAt, e.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("scheduleRepo.UpsertWeekly: %w", err)
	}
	return nil
}

// SeedWeeklyDefaults inserts the given entries without touching existing rows.
func (r *ScheduleRepository) SeedWeeklyDefaults(ctx context.Context, entries []model.WeeklyScheduleEntry) error {
	defer logger.DeferLogDuration("schedule.SeedWeeklyDefaults", time.Now())()
	for _, e := range entries {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO weekly_schedule (day, is_open, open_minutes, close_minutes, updated_at)
			 VALUES ($1, $2, $3, $4, NOW())
			 ON CONFLICT (day) DO NOTHING`,
			e.Day, e.IsOpen, minutesPtr(e.OpenTime), minutesPtr(e.CloseTime),
		)
		if err != nil {
			return fmt.Errorf("scheduleRepo.SeedWeeklyDefaults day=%d: %w", e.Day, err)
		}
	}
	return nil
}

func scanOverride(s interface{ Scan(dest ...any) error }, o *model.ScheduleOverride) error {
	var open, end *int
	if err := s.Scan(&o.ID, &o.Date, &o.IsOpen, &open, &end, &o.Reason, &o.CreatedAt, &o.CreatedBy); err != nil {
		return err
	}
	o.OpenTime, o.CloseTime = timeOfDayPtr(open), timeOfDayPtr(end)
	return nil
}

const overrideCols = `id, date, is_open, open_minutes, close_minutes, reason, created_at, created_by`

func (r *ScheduleRepository) CreateOverride(ctx context.Context, o *model.ScheduleOverride) error {
	defer logger.DeferLogDuration("schedule.CreateOverride", time.Now())()
	err := r.pool.QueryRow(ctx,
		`INSERT INTO schedule_overrides (date, is_open, open_minutes, close_minutes, reason, created_at, created_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		o.Date, o.IsOpen, minutesPtr(o.OpenTime), minutesPtr(o.CloseTime), o.Reason, o.CreatedAt, o.CreatedBy,
	).Scan(&o.ID)
	if err != nil {
		return fmt.Errorf("scheduleRepo.CreateOverride: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) GetOverrideByDate(ctx context.Context, date time.Time) (*model.ScheduleOverride, error) {
	defer logger.DeferLogDuration("schedule.GetOverrideByDate", time.Now())()
	o := &model.ScheduleOverride{}
	row := r.pool.QueryRow(ctx,
		`SELECT `+overrideCols+` FROM schedule_overrides WHERE date = $1`, model.DateOnly(date))
	if err := scanOverride(row, o); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scheduleRepo.GetOverrideByDate: %w", err)
	}
	return o, nil
}

// ListOverridesFrom returns overrides on or after the given date, soonest first.
func (r *ScheduleRepository) ListOverridesFrom(ctx context.Context, date time.Time) ([]model.ScheduleOverride, error) {
	defer logger.DeferLogDuration("schedule.ListOverridesFrom", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+overrideCols+` FROM schedule_overrides WHERE date >= $1 ORDER BY date`,
		model.DateOnly(date),
	)
	if err != nil {
		return nil, fmt.Errorf("scheduleRepo.ListOverridesFrom: %w", err)
	}
	defer rows.Close()

	overrides := make([]model.ScheduleOverride, 0, 8)
	for rows.Next() {
		var o model.ScheduleOverride
		if err := scanOverride(rows, &o); err != nil {
			return nil, fmt.Errorf("scheduleRepo.ListOverridesFrom scan: %w", err)
		}
		overrides = append(overrides, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scheduleRepo.ListOverridesFrom rows: %w", err)
	}
	return overrides, nil
}

func (r *ScheduleRepository) DeleteOverride(ctx context.Context, id int64) error {
	defer logger.DeferLogDuration("schedule.DeleteOverride", time.Now())()
	tag, err := r.pool.Exec(ctx, `DELETE FROM schedule_overrides WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("scheduleRepo.DeleteOverride: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
