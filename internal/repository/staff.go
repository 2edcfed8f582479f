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

var ErrNotFound = errors.New("not found")

const staffCols = `id, username, full_name, role, department, password_hash, created_at`

type StaffRepository struct {
	pool *pgxpool.Pool
}

func NewStaffRepository(pool *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{pool: pool}
}

// scanStaff scans a row into model.StaffMember (column order matches staffCols).
func scanStaff(s interface{ Scan(dest ...any) error }, m *model.StaffMember) error {
	return s.Scan(&m.ID, &m.Username, &m.FullName, &m.Role, &m.Department, &m.PasswordHash, &m.CreatedAt)
}

func (r *StaffRepository) Create(ctx context.Context, m *model.StaffMember) error {
	defer logger.DeferLogDuration("staff.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO staff (id, username, full_name, role, department, password_hash, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.Username, m.FullName, m.Role, m.Department, m.PasswordHash, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("staffRepo.Create: %w", err)
	}
	return nil
}

func (r *StaffRepository) GetByID(ctx context.Context, id string) (*model.StaffMember, error) {
	defer logger.DeferLogDuration("staff.GetByID", time.Now())()
	m := &model.StaffMember{}
	row := r.pool.QueryRow(ctx, `SELECT `+staffCols+` FROM staff WHERE id = $1`, id)
	if err := scanStaff(row, m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("staffRepo.GetByID: %w", err)
	}
	return m, nil
}

func (r *StaffRepository) GetByUsername(ctx context.Context, username string) (*model.StaffMember, error) {
	defer logger.DeferLogDuration("staff.GetByUsername", time.Now())()
	m := &model.StaffMember{}
	row := r.pool.QueryRow(ctx, `SELECT `+staffCols+` FROM staff WHERE username = $1`, username)
	if err := scanStaff(row, m); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("staffRepo.GetByUsername: %w", err)
	}
	return m, nil
}

func (r *StaffRepository) ListAll(ctx context.Context) ([]model.StaffMember, error) {
	defer logger.DeferLogDuration("staff.ListAll", time.Now())()
	rows, err := r.pool.Query(ctx, `SELECT `+staffCols+` FROM staff ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("staffRepo.ListAll: %w", err)
	}
	defer rows.Close()
	members := make([]model.StaffMember, 0, 16)
	for rows.Next() {
		var m model.StaffMember
		if err := scanStaff(rows, &m); err != nil {
			return nil, fmt.Errorf("staffRepo.ListAll scan: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("staffRepo.ListAll rows: %w", err)
	}
	return members, nil
}
