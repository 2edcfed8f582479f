package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/helpdesk/internal/blobstore"
	"github.com/helpdesk/internal/config"
	"github.com/helpdesk/internal/logger"
	"github.com/helpdesk/internal/model"
	"github.com/helpdesk/internal/repository"
)

// ChatService is the session registry and message ledger: it owns the
// state machine, all validation, and the only code paths that write
// messages or attachments.
type ChatService struct {
	chats   ChatStore
	msgs    MessageStore
	blobs   BlobStore
	sched   *ScheduleService
	limiter StartLimiter
	att     config.AttachmentConfig
	locks   *sessionLocks
}

func NewChatService(chats ChatStore, msgs MessageStore, blobs BlobStore, sched *ScheduleService, limiter StartLimiter, att config.AttachmentConfig) *ChatService {
	return &ChatService{
		chats:   chats,
		msgs:    msgs,
		blobs:   blobs,
		sched:   sched,
		limiter: limiter,
		att:     att,
		locks:   newSessionLocks(),
	}
}

func mapNotFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

const chatIDCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// newChatID builds "CHAT-<YYYYMMDDHHMMSS>-<4 random uppercase alnum>".
func newChatID(now time.Time) string {
	buf := make([]byte, 4)
	rand.Read(buf)
	suffix := make([]byte, 4)
	for i, b := range buf {
		suffix[i] = chatIDCharset[int(b)%len(chatIDCharset)]
	}
	return "CHAT-" + now.Format("20060102150405") + "-" + string(suffix)
}

// reservedNames may not be used as a student display name.
var reservedNames = map[string]bool{
	"admin": true, "administrator": true, "system": true, "support": true,
	"technician": true, "staff": true, "moderator": true, "helpdesk": true,
	"root": true, "test": true,
}

func validateStudentName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if len(name) < 2 {
		return "", validationErrorf("name must be at least 2 characters")
	}
	if len(name) > 50 {
		return "", validationErrorf("name must be at most 50 characters")
	}
	if reservedNames[strings.ToLower(name)] {
		return "", validationErrorf("this name is reserved, please use another")
	}
	return name, nil
}

// StartChat opens a new waiting session with the system greeting and the
// student's initial message. limitKey identifies the client for the
// chat-start limit (typically the student token).
func (s *ChatService) StartChat(ctx context.Context, name, initialMessage, token, limitKey string) (*model.ChatSession, error) {
	name, err := validateStudentName(name)
	if err != nil {
		return nil, err
	}
	initialMessage = strings.TrimSpace(initialMessage)
	if len(initialMessage) < 10 {
		return nil, validationErrorf("please describe your issue in at least 10 characters")
	}
	if len(initialMessage) > 1000 {
		return nil, validationErrorf("initial message must be at most 1000 characters")
	}

	if s.limiter != nil && limitKey != "" {
		allowed, err := s.limiter.CheckChatStartLimit(ctx, limitKey)
		if err != nil {
			logger.Errorf("chat start limit check: %v", err)
		} else if !allowed {
			return nil, ErrRateLimited
		}
	}

	now := s.sched.Now()
	avail, err := s.sched.CurrentAvailability(ctx, now)
	if err != nil {
		return nil, err
	}

	chat := &model.ChatSession{
		ID:             newChatID(now),
		StudentName:    name,
		InitialMessage: initialMessage,
		Status:         model.ChatStatusWaiting,
		StudentToken:   token,
		CreatedAt:      now.UTC(),
	}
	if err := s.chats.Create(ctx, chat); err != nil {
		return nil, err
	}

	greeting := fmt.Sprintf("Welcome to IT support, %s! A technician will be with you shortly.", name)
	if !avail.Available {
		greeting = fmt.Sprintf(
			"Support is currently offline. %s Next available: %s. Your message has been saved and a technician will reply when support reopens.",
			avail.Reason, avail.NextAvailable)
	}
	// The greeting lands one tick before the student's message so history
	// always reads in the same order.
	if err := s.appendSystemMessage(ctx, chat.ID, greeting, chat.CreatedAt); err != nil {
		return nil, err
	}
	first := &model.ChatMessage{
		ChatID:        chat.ID,
		SenderName:    name,
		Content:       convertEmoticons(initialMessage),
		IsFromStudent: true,
		Kind:          model.MessageKindText,
		CreatedAt:     chat.CreatedAt.Add(time.Millisecond),
	}
	if err := s.msgs.CreateWithAttachments(ctx, first, nil); err != nil {
		return nil, err
	}
	return chat, nil
}

func (s *ChatService) appendSystemMessage(ctx context.Context, chatID, content string, at time.Time) error {
	m := &model.ChatMessage{
		ChatID:     chatID,
		SenderName: "System",
		Content:    content,
		Kind:       model.MessageKindSystem,
		CreatedAt:  at,
	}
	return s.msgs.CreateWithAttachments(ctx, m, nil)
}

// authorizeStudent checks the student token against the session. Read paths
// bind an unbound token on first touch; writes never bind. The bind is a
// compare-and-swap on the empty value, so two concurrent first readers
// cannot both claim the chat.
func (s *ChatService) authorizeStudent(ctx context.Context, chat *model.ChatSession, token string, bind bool) error {
	if token == "" {
		return ErrForbidden
	}
	if chat.StudentToken == "" {
		if !bind {
			return ErrForbidden
		}
		bound, err := s.chats.BindStudentToken(ctx, chat.ID, token)
		if err != nil {
			return err
		}
		if bound {
			chat.StudentToken = token
			return nil
		}
		fresh, err := s.chats.GetByID(ctx, chat.ID)
		if err != nil {
			return mapNotFound(err)
		}
		chat.StudentToken = fresh.StudentToken
	}
	if chat.StudentToken != token {
		return ErrForbidden
	}
	return nil
}

// GetChatForStudent loads a session for its student (status polling).
func (s *ChatService) GetChatForStudent(ctx context.Context, chatID, token string) (*model.ChatSession, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if err := s.authorizeStudent(ctx, chat, token, true); err != nil {
		return nil, err
	}
	return chat, nil
}

// JoinChat adds a technician to the session. The first join flips
// waiting -> active exactly once; re-joining is a silent no-op.
func (s *ChatService) JoinChat(ctx context.Context, chatID string, staff *model.StaffMember) (*model.ChatSession, error) {
	if staff == nil {
		return nil, ErrInvalidUser
	}
	unlock := s.locks.Lock(chatID)
	defer unlock()

	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if chat.Status == model.ChatStatusClosed || chat.Status == model.ChatStatusStudentLeft {
		return nil, ErrChatNotJoinable
	}
	joined, err := s.chats.AddTechnician(ctx, chatID, staff.ID)
	if err != nil {
		return nil, err
	}
	if joined {
		if _, err := s.chats.UpdateStatusIf(ctx, chatID, model.ChatStatusWaiting, model.ChatStatusActive); err != nil {
			return nil, err
		}
		note := fmt.Sprintf("%s joined the chat", staff.FullName)
		if err := s.appendSystemMessage(ctx, chatID, note, time.Now().UTC()); err != nil {
			return nil, err
		}
	}
	chat, err = s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return chat, nil
}

// LeaveAsStudent marks the session student_left. Leaving twice is a no-op.
func (s *ChatService) LeaveAsStudent(ctx context.Context, chatID, token string) error {
	unlock := s.locks.Lock(chatID)
	defer unlock()

	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return mapNotFound(err)
	}
	if err := s.authorizeStudent(ctx, chat, token, false); err != nil {
		return err
	}
	if chat.Status == model.ChatStatusStudentLeft {
		return nil
	}
	if chat.Status == model.ChatStatusClosed {
		return ErrNotFound
	}
	if err := s.chats.UpdateStatus(ctx, chatID, model.ChatStatusStudentLeft); err != nil {
		return mapNotFound(err)
	}
	note := fmt.Sprintf("%s left the chat", chat.StudentName)
	return s.appendSystemMessage(ctx, chatID, note, time.Now().UTC())
}

// CloseChat ends the session and removes it entirely: status flips to
// closed, attachment blobs are released best-effort, then attachment rows,
// messages and the session row go in one ordered transaction. After a
// successful close the chat id resolves to nothing. A session whose blob
// cleanup or cascade failed stays closed and is swept later by the janitor.
func (s *ChatService) CloseChat(ctx context.Context, chatID string, staff *model.StaffMember) error {
	if staff == nil {
		return ErrInvalidUser
	}
	unlock := s.locks.Lock(chatID)
	defer unlock()

	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return mapNotFound(err)
	}
	// Closing requires having joined; role alone grants nothing here.
	if !chat.HasTechnician(staff.ID) {
		return ErrForbidden
	}
	if chat.Status != model.ChatStatusClosed {
		if err := s.chats.UpdateStatus(ctx, chatID, model.ChatStatusClosed); err != nil {
			return mapNotFound(err)
		}
	}
	return s.destroyChat(ctx, chatID)
}

// destroyChat releases blobs (best-effort) and runs the ordered cascade.
// Caller holds the session lock and has already set status closed.
func (s *ChatService) destroyChat(ctx context.Context, chatID string) error {
	atts, err := s.msgs.ListAttachmentsByChat(ctx, chatID)
	if err != nil {
		return err
	}
	for _, a := range atts {
		if err := s.blobs.Remove(a.FileRef); err != nil {
			logger.Errorf("chat %s: blob %s not removed: %v", chatID, a.FileRef, err)
		}
	}
	return mapNotFound(s.chats.DeleteCascade(ctx, chatID))
}

// Upload is one incoming attachment. Size must be known up front so limits
// are checked before any blob is written.
type Upload struct {
	Filename string
	Size     int64
	MimeType string
	Reader   io.Reader
}

func (s *ChatService) validateUploads(uploads []Upload) error {
	if len(uploads) > s.att.MaxFilesPerMsg {
		return fmt.Errorf("%w: at most %d files per message", ErrAttachmentLimit, s.att.MaxFilesPerMsg)
	}
	allowed := make(map[string]bool, len(s.att.AllowedExtensions))
	for _, ext := range s.att.AllowedExtensions {
		allowed[strings.ToLower(ext)] = true
	}
	var total int64
	for _, u := range uploads {
		if u.Size > s.att.MaxFileSize() {
			return fmt.Errorf("%w: %s exceeds %d MB", ErrAttachmentLimit, u.Filename, s.att.MaxFileSizeMB)
		}
		total += u.Size
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(u.Filename), "."))
		if ext == "" || !allowed[ext] {
			return fmt.Errorf("%w: .%s", ErrUnsupportedFileType, ext)
		}
	}
	if total > s.att.MaxTotalSize() {
		return fmt.Errorf("%w: attachments exceed %d MB in total", ErrAttachmentLimit, s.att.MaxTotalSizeMB)
	}
	return nil
}

func validateContent(content string, hasUploads bool) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" && !hasUploads {
		return "", validationErrorf("message cannot be empty")
	}
	if len(content) > 2000 {
		return "", validationErrorf("message must be at most 2000 characters")
	}
	return content, nil
}

// PostStudentMessage appends a student message, with attachments. Students
// may post while the chat is waiting or active; afterwards the ledger is
// read-only for them.
func (s *ChatService) PostStudentMessage(ctx context.Context, chatID, token, content string, uploads []Upload) (*model.ChatMessage, error) {
	unlock := s.locks.Lock(chatID)
	defer unlock()

	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if err := s.authorizeStudent(ctx, chat, token, false); err != nil {
		return nil, err
	}
	if chat.Status == model.ChatStatusStudentLeft || chat.Status == model.ChatStatusClosed {
		return nil, ErrChatNotJoinable
	}

	msg, err := s.appendMessage(ctx, chat, chat.StudentName, nil, content, true, uploads)
	if err != nil {
		return nil, err
	}
	// Posting into an unclaimed chat while support is offline gets a
	// receipt note so the student is not left guessing.
	if chat.Status == model.ChatStatusWaiting {
		avail, aerr := s.sched.CurrentAvailability(ctx, s.sched.Now())
		if aerr == nil && !avail.Available {
			note := fmt.Sprintf("Support is currently offline. A technician will respond when support reopens (%s).", avail.NextAvailable)
			if err := s.appendSystemMessage(ctx, chatID, note, time.Now().UTC()); err != nil {
				logger.Errorf("chat %s: offline note: %v", chatID, err)
			}
		}
	}
	return msg, nil
}

// PostStaffMessage appends a technician message. The sender must have
// joined the session and the session must be active.
func (s *ChatService) PostStaffMessage(ctx context.Context, chatID string, staff *model.StaffMember, content string, uploads []Upload) (*model.ChatMessage, error) {
	if staff == nil {
		return nil, ErrInvalidUser
	}
	unlock := s.locks.Lock(chatID)
	defer unlock()

	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if !chat.HasTechnician(staff.ID) {
		return nil, ErrForbidden
	}
	if chat.Status != model.ChatStatusActive {
		return nil, ErrChatNotJoinable
	}
	staffID := staff.ID
	return s.appendMessage(ctx, chat, staff.FullName, &staffID, content, false, uploads)
}

func (s *ChatService) appendMessage(ctx context.Context, chat *model.ChatSession, senderName string, senderID *string, content string, fromStudent bool, uploads []Upload) (*model.ChatMessage, error) {
	content, err := validateContent(content, len(uploads) > 0)
	if err != nil {
		return nil, err
	}
	if err := s.validateUploads(uploads); err != nil {
		return nil, err
	}

	content = convertEmoticons(content)
	kind := model.MessageKindText
	if isEmojiOnly(content) {
		kind = model.MessageKindEmoji
	}

	now := time.Now().UTC()
	attachments := make([]model.ChatAttachment, 0, len(uploads))
	saved := make([]string, 0, len(uploads))
	for _, u := range uploads {
		ref := blobstore.NewRef(u.Filename)
		if err := s.blobs.Save(ctx, ref, u.Reader); err != nil {
			s.discardBlobs(saved)
			return nil, err
		}
		saved = append(saved, ref)
		attachments = append(attachments, model.ChatAttachment{
			ChatID:            chat.ID,
			FileRef:           ref,
			OriginalFilename:  filepath.Base(u.Filename),
			SizeBytes:         u.Size,
			MimeType:          u.MimeType,
			UploadedAt:        now,
			UploadedByStudent: fromStudent,
		})
	}

	m := &model.ChatMessage{
		ChatID:        chat.ID,
		SenderName:    senderName,
		SenderID:      senderID,
		Content:       content,
		IsFromStudent: fromStudent,
		Kind:          kind,
		CreatedAt:     now,
	}
	if err := s.msgs.CreateWithAttachments(ctx, m, attachments); err != nil {
		s.discardBlobs(saved)
		return nil, err
	}
	return m, nil
}

func (s *ChatService) discardBlobs(refs []string) {
	for _, ref := range refs {
		if err := s.blobs.Remove(ref); err != nil {
			logger.Errorf("discard blob %s: %v", ref, err)
		}
	}
}

// ListMessagesForStudent returns the ordered history for the chat's student.
func (s *ChatService) ListMessagesForStudent(ctx context.Context, chatID, token string) ([]model.ChatMessage, error) {
	chat, err := s.chats.GetByID(ctx, chatID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	if err := s.authorizeStudent(ctx, chat, token, true); err != nil {
		return nil, err
	}
	return s.msgs.ListByChat(ctx, chatID)
}

// ListMessagesForStaff returns the ordered history for any authenticated
// staff member (technicians preview waiting chats before joining).
func (s *ChatService) ListMessagesForStaff(ctx context.Context, chatID string, staff *model.StaffMember) ([]model.ChatMessage, error) {
	if staff == nil {
		return nil, ErrInvalidUser
	}
	if _, err := s.chats.GetByID(ctx, chatID); err != nil {
		return nil, mapNotFound(err)
	}
	return s.msgs.ListByChat(ctx, chatID)
}

func (s *ChatService) loadAttachment(ctx context.Context, id int64) (*model.ChatAttachment, *model.ChatSession, error) {
	a, err := s.msgs.GetAttachment(ctx, id)
	if err != nil {
		return nil, nil, mapNotFound(err)
	}
	chat, err := s.chats.GetByID(ctx, a.ChatID)
	if err != nil {
		return nil, nil, mapNotFound(err)
	}
	return a, chat, nil
}

func (s *ChatService) openBlob(a *model.ChatAttachment) (*model.ChatAttachment, io.ReadCloser, error) {
	rc, err := s.blobs.Open(a.FileRef)
	if err != nil {
		return nil, nil, ErrNotFound
	}
	return a, rc, nil
}

// OpenAttachmentForStudent streams one attachment to the chat's bound
// student.
func (s *ChatService) OpenAttachmentForStudent(ctx context.Context, id int64, token string) (*model.ChatAttachment, io.ReadCloser, error) {
	a, chat, err := s.loadAttachment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if token == "" || chat.StudentToken != token {
		return nil, nil, ErrForbidden
	}
	return s.openBlob(a)
}

// OpenAttachmentForStaff streams one attachment to a technician who has
// joined the chat. Membership is required; reading histories is open to all
// staff but files are not.
func (s *ChatService) OpenAttachmentForStaff(ctx context.Context, id int64, staff *model.StaffMember) (*model.ChatAttachment, io.ReadCloser, error) {
	if staff == nil {
		return nil, nil, ErrInvalidUser
	}
	a, chat, err := s.loadAttachment(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !chat.HasTechnician(staff.ID) {
		return nil, nil, ErrForbidden
	}
	return s.openBlob(a)
}

// WaitingChats lists unclaimed sessions, newest first.
func (s *ChatService) WaitingChats(ctx context.Context) ([]model.ChatSession, error) {
	return s.chats.ListByStatus(ctx, model.ChatStatusWaiting)
}

// ActiveChatsFor lists active sessions the staff member has joined.
func (s *ChatService) ActiveChatsFor(ctx context.Context, staffID string) ([]model.ChatSession, error) {
	return s.chats.ListActiveForStaff(ctx, staffID)
}

// Stats is the dashboard counter set.
type Stats struct {
	Waiting     int `json:"waiting"`
	Active      int `json:"active"`
	StudentLeft int `json:"student_left"`
}

func (s *ChatService) GetStats(ctx context.Context) (Stats, error) {
	var st Stats
	var err error
	if st.Waiting, err = s.chats.CountByStatus(ctx, model.ChatStatusWaiting); err != nil {
		return st, err
	}
	if st.Active, err = s.chats.CountByStatus(ctx, model.ChatStatusActive); err != nil {
		return st, err
	}
	if st.StudentLeft, err = s.chats.CountByStatus(ctx, model.ChatStatusStudentLeft); err != nil {
		return st, err
	}
	return st, nil
}

// CleanupClosed sweeps sessions that reached closed but whose cascade never
// finished, older than the cutoff. With dryRun it only reports what would
// go. Returns the affected chat ids.
func (s *ChatService) CleanupClosed(ctx context.Context, olderThanDays int, dryRun bool) ([]string, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	chats, err := s.chats.ListClosedOlderThan(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(chats))
	for _, c := range chats {
		if dryRun {
			ids = append(ids, c.ID)
			continue
		}
		unlock := s.locks.Lock(c.ID)
		err := s.destroyChat(ctx, c.ID)
		unlock()
		if err != nil {
			logger.Errorf("cleanup chat %s: %v", c.ID, err)
			continue
		}
		ids = append(ids, c.ID)
	}
	return ids, nil
}
