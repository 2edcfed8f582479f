package model

import (
	"fmt"
	"time"
)

type ChatStatus string

const (
	ChatStatusWaiting     ChatStatus = "waiting"
	ChatStatusActive      ChatStatus = "active"
	ChatStatusStudentLeft ChatStatus = "student_left"
	ChatStatusClosed      ChatStatus = "closed"
)

// ChatSession is one help-request thread between an anonymous student and
// one or more technicians. StudentToken binds the student's browser session
// to the chat on first access and never changes afterwards.
type ChatSession struct {
	ID             string     `json:"id"`
	StudentName    string     `json:"student_name"`
	InitialMessage string     `json:"initial_message"`
	Status         ChatStatus `json:"status"`
	StudentToken   string     `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	TechnicianIDs  []string   `json:"technician_ids,omitempty"`
}

// NeedsTechnician reports whether the session is still unclaimed.
func (s *ChatSession) NeedsTechnician() bool { return s.Status == ChatStatusWaiting }

// IsActive reports whether a technician has joined and the chat is live.
func (s *ChatSession) IsActive() bool { return s.Status == ChatStatusActive }

// HasTechnician reports whether the given staff id is a member of the session.
func (s *ChatSession) HasTechnician(staffID string) bool {
	for _, id := range s.TechnicianIDs {
		if id == staffID {
			return true
		}
	}
	return false
}

type MessageKind string

const (
	MessageKindText   MessageKind = "text"
	MessageKindEmoji  MessageKind = "emoji"
	MessageKindSystem MessageKind = "system"
)

// ChatMessage belongs to exactly one ChatSession. CreatedAt is the
// append-only ordering key, strictly increasing per session.
type ChatMessage struct {
	ID            int64            `json:"id"`
	ChatID        string           `json:"chat_id"`
	SenderName    string           `json:"sender"`
	SenderID      *string          `json:"sender_id,omitempty"`
	Content       string           `json:"content"`
	IsFromStudent bool             `json:"is_from_student"`
	Kind          MessageKind      `json:"kind"`
	CreatedAt     time.Time        `json:"timestamp"`
	Attachments   []ChatAttachment `json:"attachments,omitempty"`
}

// ChatAttachment belongs to exactly one ChatMessage (and, redundantly, its
// session, so cascade deletes can run by chat id). FileRef is the opaque
// blob-store handle.
type ChatAttachment struct {
	ID                int64     `json:"id"`
	ChatID            string    `json:"chat_id"`
	MessageID         int64     `json:"message_id"`
	FileRef           string    `json:"-"`
	OriginalFilename  string    `json:"filename"`
	SizeBytes         int64     `json:"size_bytes"`
	MimeType          string    `json:"mime_type"`
	UploadedAt        time.Time `json:"uploaded_at"`
	UploadedByStudent bool      `json:"uploaded_by_student"`
}

// IsImage reports whether the attachment renders inline in chat history.
func (a *ChatAttachment) IsImage() bool {
	return len(a.MimeType) > 6 && a.MimeType[:6] == "image/"
}

// DisplaySize renders SizeBytes human-readable ("1.5 MB").
func (a *ChatAttachment) DisplaySize() string {
	size := float64(a.SizeBytes)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024.0 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024.0
	}
	return fmt.Sprintf("%.1f TB", size)
}
