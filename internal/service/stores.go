package service

import (
	"context"
	"io"
	"time"

	"github.com/helpdesk/internal/model"
)

// Store interfaces are declared here, on the consumer side, so tests can
// swap in in-memory fakes. The pgx repositories satisfy them.

type ChatStore interface {
	Create(ctx context.Context, c *model.ChatSession) error
	GetByID(ctx context.Context, id string) (*model.ChatSession, error)
	AddTechnician(ctx context.Context, chatID, staffID string) (bool, error)
	UpdateStatusIf(ctx context.Context, chatID string, from, to model.ChatStatus) (bool, error)
	UpdateStatus(ctx context.Context, chatID string, status model.ChatStatus) error
	BindStudentToken(ctx context.Context, chatID, token string) (bool, error)
	ListByStatus(ctx context.Context, status model.ChatStatus) ([]model.ChatSession, error)
	ListActiveForStaff(ctx context.Context, staffID string) ([]model.ChatSession, error)
	CountByStatus(ctx context.Context, status model.ChatStatus) (int, error)
	ListClosedOlderThan(ctx context.Context, cutoff time.Time) ([]model.ChatSession, error)
	DeleteCascade(ctx context.Context, chatID string) error
}

type MessageStore interface {
	CreateWithAttachments(ctx context.Context, m *model.ChatMessage, attachments []model.ChatAttachment) error
	ListByChat(ctx context.Context, chatID string) ([]model.ChatMessage, error)
	ListAttachmentsByChat(ctx context.Context, chatID string) ([]model.ChatAttachment, error)
	GetAttachment(ctx context.Context, id int64) (*model.ChatAttachment, error)
}

type ScheduleStore interface {
	ListWeekly(ctx context.Context) ([]model.WeeklyScheduleEntry, error)
	UpsertWeekly(ctx context.Context, e *model.WeeklyScheduleEntry) error
	SeedWeeklyDefaults(ctx context.Context, entries []model.WeeklyScheduleEntry) error
	CreateOverride(ctx context.Context, o *model.ScheduleOverride) error
	GetOverrideByDate(ctx context.Context, date time.Time) (*model.ScheduleOverride, error)
	ListOverridesFrom(ctx context.Context, date time.Time) ([]model.ScheduleOverride, error)
	DeleteOverride(ctx context.Context, id int64) error
}

type StaffStore interface {
	Create(ctx context.Context, m *model.StaffMember) error
	GetByID(ctx context.Context, id string) (*model.StaffMember, error)
	GetByUsername(ctx context.Context, username string) (*model.StaffMember, error)
	ListAll(ctx context.Context) ([]model.StaffMember, error)
}

type BlobStore interface {
	Save(ctx context.Context, ref string, r io.Reader) error
	Open(ref string) (io.ReadCloser, error)
	Remove(ref string) error
}

// StartLimiter bounds how often one client may open new chats.
type StartLimiter interface {
	CheckChatStartLimit(ctx context.Context, key string) (bool, error)
}
