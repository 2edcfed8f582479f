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

type MessageRepository struct {
	pool *pgxpool.Pool
}

func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{pool: pool}
}

// CreateWithAttachments appends one message and its attachments in a single
// transaction: either everything lands or nothing does.
func (r *MessageRepository) CreateWithAttachments(ctx context.Context, m *model.ChatMessage, attachments []model.ChatAttachment) error {
	defer logger.DeferLogDuration("msg.CreateWithAttachments", time.Now())()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("msgRepo.CreateWithAttachments begin: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO chat_messages (chat_id, sender_name, sender_id, content, is_from_student, kind, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		m.ChatID, m.SenderName, m.SenderID, m.Content, m.IsFromStudent, m.Kind, m.CreatedAt,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("msgRepo.CreateWithAttachments insert message: %w", err)
	}

	for i := range attachments {
		a := &attachments[i]
		a.ChatID = m.ChatID
		a.MessageID = m.ID
		err = tx.QueryRow(ctx,
			`INSERT INTO chat_attachments (chat_id, message_id, file_ref, original_filename, size_bytes, mime_type, uploaded_at, uploaded_by_student)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			a.ChatID, a.MessageID, a.FileRef, a.OriginalFilename, a.SizeBytes, a.MimeType, a.UploadedAt, a.UploadedByStudent,
		).Scan(&a.ID)
		if err != nil {
			return fmt.Errorf("msgRepo.CreateWithAttachments insert attachment: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("msgRepo.CreateWithAttachments commit: %w", err)
	}
	m.Attachments = attachments
	return nil
}

// ListByChat returns the full ordered history for a session, attachments
// included. Ordering is (created_at, id): the id breaks same-instant ties so
// the sequence is stable.
func (r *MessageRepository) ListByChat(ctx context.Context, chatID string) ([]model.ChatMessage, error) {
	defer logger.DeferLogDuration("msg.ListByChat", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, chat_id, sender_name, sender_id, content, is_from_student, kind, created_at
		 FROM chat_messages
		 WHERE chat_id = $1
		 ORDER BY created_at, id`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ListByChat query: %w", err)
	}
	defer rows.Close()

	messages := make([]model.ChatMessage, 0, 32)
	index := make(map[int64]int, 32)
	for rows.Next() {
		var m model.ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderName, &m.SenderID, &m.Content, &m.IsFromStudent, &m.Kind, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("msgRepo.ListByChat scan: %w", err)
		}
		index[m.ID] = len(messages)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.ListByChat rows: %w", err)
	}

	attRows, err := r.pool.Query(ctx,
		`SELECT id, chat_id, message_id, file_ref, original_filename, size_bytes, mime_type, uploaded_at, uploaded_by_student
		 FROM chat_attachments
		 WHERE chat_id = $1
		 ORDER BY id`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ListByChat attachments query: %w", err)
	}
	defer attRows.Close()
	for attRows.Next() {
		var a model.ChatAttachment
		if err := attRows.Scan(&a.ID, &a.ChatID, &a.MessageID, &a.FileRef, &a.OriginalFilename, &a.SizeBytes, &a.MimeType, &a.UploadedAt, &a.UploadedByStudent); err != nil {
			return nil, fmt.Errorf("msgRepo.ListByChat attachments scan: %w", err)
		}
		if i, ok := index[a.MessageID]; ok {
			messages[i].Attachments = append(messages[i].Attachments, a)
		}
	}
	if err := attRows.Err(); err != nil {
		return nil, fmt.Errorf("msgRepo.ListByChat attachments rows: %w", err)
	}
	return messages, nil
}

// ListAttachmentsByChat returns all attachment records of a session (used by
// the close/cleanup cascade to release blobs first).
func (r *MessageRepository) ListAttachmentsByChat(ctx context.Context, chatID string) ([]model.ChatAttachment, error) {
	defer logger.DeferLogDuration("msg.ListAttachmentsByChat", time.Now())()
	rows, err := r.pool.Query(ctx,
		`SELECT id, chat_id, message_id, file_ref, original_filename, size_bytes, mime_type, uploaded_at, uploaded_by_student
		 FROM chat_attachments WHERE chat_id = $1 ORDER BY id`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("msgRepo.ListAttachmentsByChat: %w", err)
	}
	defer rows.Close()
	atts := make([]model.ChatAttachment, 0, 8)
	for rows.Next() {
		var a model.ChatAttachment
		if err := rows.Scan(&a.ID, &a.ChatID, &a.MessageID, &a.FileRef, &a.OriginalFilename, &a.SizeBytes, &a.MimeType, &a.UploadedAt, &a.UploadedByStudent); err != nil {
			return nil, fmt.Errorf("msgRepo.ListAttachmentsByChat scan: %w", err)
		}
		atts = append(atts, a)
	}
	return atts, rows.Err()
}

func (r *MessageRepository) GetAttachment(ctx context.Context, id int64) (*model.ChatAttachment, error) {
	defer logger.DeferLogDuration("msg.GetAttachment", time.Now())()
	a := &model.ChatAttachment{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, chat_id, message_id, file_ref, original_filename, size_bytes, mime_type, uploaded_at, uploaded_by_student
		 FROM chat_attachments WHERE id = $1`, id,
	).Scan(&a.ID, &a.ChatID, &a.MessageID, &a.FileRef, &a.OriginalFilename, &a.SizeBytes, &a.MimeType, &a.UploadedAt, &a.UploadedByStudent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("msgRepo.GetAttachment: %w", err)
	}
	return a, nil
}
