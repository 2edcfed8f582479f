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

type ChatRepository struct {
	pool *pgxpool.Pool
}

func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

const chatCols = `id, student_name, initial_message, status, student_token, created_at`

func scanChat(s interface{ Scan(dest ...any) error }, c *model.ChatSession) error {
	return s.Scan(&c.ID, &c.StudentName, &c.InitialMessage, &c.Status, &c.StudentToken, &c.CreatedAt)
}

func (r *ChatRepository) Create(ctx context.Context, c *model.ChatSession) error {
	defer logger.DeferLogDuration("chat.Create", time.Now())()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO chat_sessions (id, student_name, initial_message, status, student_token, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.StudentName, c.InitialMessage, c.Status, c.StudentToken, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("chatRepo.Create: %w", err)
	}
	return nil
}

// GetByID loads a session together with its technician ids.
func (r *ChatRepository) GetByID(ctx context.Context, id string) (*model.ChatSession, error) {
	defer logger.DeferLogDuration("chat.GetByID", time.Now())()
	c := &model.ChatSession{}
	row := r.pool.QueryRow(ctx, `SELECT `+chatCols+` FROM chat_sessions WHERE id = $1`, id)
	if err := scanChat(row, c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("chatRepo.GetByID: %w", err)
	}
	ids, err := r.ListTechnicianIDs(ctx, id)
	if err != nil {
		return nil, err
	}
	c.TechnicianIDs = ids
	return c, nil
}

func (r *ChatRepository) ListTechnicianIDs(ctx context.Context, chatID string) ([]string, error) {
	defer logger.DeferLogDuration("chat.ListTechnicianIDs", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT staff_id FROM chat_technicians WHERE chat_id = $1 ORDER BY joined_at`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.ListTechnicianIDs: %w", err)
	}
	defer rows.Close()
	ids := make([]string, 0, 4)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("chatRepo.ListTechnicianIDs scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddTechnician inserts into the membership set; re-adding is a no-op.
// Returns whether the row was actually inserted.
func (r *ChatRepository) AddTechnician(ctx context.Context, chatID, staffID string) (bool, error) {
	defer logger.DeferLogDuration("chat.AddTechnician", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO chat_technicians (chat_id, staff_id, joined_at)
		 VALUES ($1, $2, $3) ON CONFLICT DO NOTHING`,
		chatID, staffID, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("chatRepo.AddTechnician: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateStatusIf flips status from -> to atomically; reports whether this
// call performed the flip. Used to serialize the waiting -> active
// transition across processes.
func (r *ChatRepository) UpdateStatusIf(ctx context.Context, chatID string, from, to model.ChatStatus) (bool, error) {
	defer logger.DeferLogDuration("chat.UpdateStatusIf", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE chat_sessions SET status = $1 WHERE id = $2 AND status = $3`,
		to, chatID, from,
	)
	if err != nil {
		return false, fmt.Errorf("chatRepo.UpdateStatusIf: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *ChatRepository) UpdateStatus(ctx context.Context, chatID string, status model.ChatStatus) error {
	defer logger.DeferLogDuration("chat.UpdateStatus", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE chat_sessions SET status = $1 WHERE id = $2`, status, chatID,
	)
	if err != nil {
		return fmt.Errorf("chatRepo.UpdateStatus: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// BindStudentToken binds a token to a session only when no token is bound
// yet (compare-and-swap on the empty value, so two concurrent first reads
// cannot both win). Returns whether this call bound the token.
func (r *ChatRepository) BindStudentToken(ctx context.Context, chatID, token string) (bool, error) {
	defer logger.DeferLogDuration("chat.BindStudentToken", time.Now())()
	tag, err := r.pool.Exec(ctx,
		`UPDATE chat_sessions SET student_token = $1 WHERE id = $2 AND student_token = ''`,
		token, chatID,
	)
	if err != nil {
		return false, fmt.Errorf("chatRepo.BindStudentToken: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByStatus returns sessions in the given state, newest first.
func (r *ChatRepository) ListByStatus(ctx context.Context, status model.ChatStatus) ([]model.ChatSession, error) {
	defer logger.DeferLogDuration("chat.ListByStatus", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+chatCols+` FROM chat_sessions WHERE status = $1 ORDER BY created_at DESC`, status,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.ListByStatus: %w", err)
	}
	defer rows.Close()
	return collectChats(rows, "chatRepo.ListByStatus")
}

// ListActiveForStaff returns active sessions the staff member has joined,
// newest first.
func (r *ChatRepository) ListActiveForStaff(ctx context.Context, staffID string) ([]model.ChatSession, error) {
	defer logger.DeferLogDuration("chat.ListActiveForStaff", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.student_name, c.initial_message, c.status, c.student_token, c.created_at
		 FROM chat_sessions c
		 JOIN chat_technicians ct ON ct.chat_id = c.id
		 WHERE c.status = $1 AND ct.staff_id = $2
		 ORDER BY c.created_at DESC`,
		model.ChatStatusActive, staffID,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.ListActiveForStaff: %w", err)
	}
	defer rows.Close()
	return collectChats(rows, "chatRepo.ListActiveForStaff")
}

func collectChats(rows pgx.Rows, op string) ([]model.ChatSession, error) {
	chats := make([]model.ChatSession, 0, 16)
	for rows.Next() {
		var c model.ChatSession
		if err := scanChat(rows, &c); err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		chats = append(chats, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", op, err)
	}
	return chats, nil
}

func (r *ChatRepository) CountByStatus(ctx context.Context, status model.ChatStatus) (int, error) {
	defer logger.DeferLogDuration("chat.CountByStatus", time.Now())()
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM chat_sessions WHERE status = $1`, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("chatRepo.CountByStatus: %w", err)
	}
	return count, nil
}

// ListClosedOlderThan returns closed sessions created before the cutoff,
// for the janitor's cleanup pass.
func (r *ChatRepository) ListClosedOlderThan(ctx context.Context, cutoff time.Time) ([]model.ChatSession, error) {
	defer logger.DeferLogDuration("chat.ListClosedOlderThan", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT `+chatCols+` FROM chat_sessions WHERE status = $1 AND created_at < $2 ORDER BY created_at`,
		model.ChatStatusClosed, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("chatRepo.ListClosedOlderThan: %w", err)
	}
	defer rows.Close()
	return collectChats(rows, "chatRepo.ListClosedOlderThan")
}

// DeleteCascade removes a session's attachment records, then its messages,
// then the session row, in one transaction. Blob cleanup happens before
// this call; membership rows go away via their FK. The caller holds the
// per-session lock.
func (r *ChatRepository) DeleteCascade(ctx context.Context, chatID string) error {
	defer logger.DeferLogDuration("chat.DeleteCascade", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("chatRepo.DeleteCascade begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM chat_attachments WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("chatRepo.DeleteCascade attachments: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM chat_messages WHERE chat_id = $1`, chatID); err != nil {
		return fmt.Errorf("chatRepo.DeleteCascade messages: %w", err)
	}
	tag, err := tx.Exec(ctx, `DELETE FROM chat_sessions WHERE id = $1`, chatID)
	if err != nil {
		return fmt.Errorf("chatRepo.DeleteCascade session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("chatRepo.DeleteCascade commit: %w", err)
	}
	return nil
}
