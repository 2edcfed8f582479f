package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/helpdesk/internal/model"
	"github.com/helpdesk/internal/repository"
)

// In-memory fakes for the store interfaces. They mirror the SQL semantics
// the pgx repositories provide, including the compare-and-swap updates.

type fakeChatStore struct {
	mu    sync.Mutex
	chats map[string]*model.ChatSession
	techs map[string][]string
	msgs  *fakeMessageStore

	statusFlips int
}

func newFakeChatStore(msgs *fakeMessageStore) *fakeChatStore {
	return &fakeChatStore{
		chats: make(map[string]*model.ChatSession),
		techs: make(map[string][]string),
		msgs:  msgs,
	}
}

func (f *fakeChatStore) Create(ctx context.Context, c *model.ChatSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.chats[c.ID] = &cp
	return nil
}

func (f *fakeChatStore) GetByID(ctx context.Context, id string) (*model.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	cp.TechnicianIDs = append([]string(nil), f.techs[id]...)
	return &cp, nil
}

func (f *fakeChatStore) AddTechnician(ctx context.Context, chatID, staffID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range f.techs[chatID] {
		if id == staffID {
			return false, nil
		}
	}
	f.techs[chatID] = append(f.techs[chatID], staffID)
	return true, nil
}

func (f *fakeChatStore) UpdateStatusIf(ctx context.Context, chatID string, from, to model.ChatStatus) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[chatID]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	f.statusFlips++
	return true, nil
}

func (f *fakeChatStore) UpdateStatus(ctx context.Context, chatID string, status model.ChatStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[chatID]
	if !ok {
		return repository.ErrNotFound
	}
	c.Status = status
	return nil
}

func (f *fakeChatStore) BindStudentToken(ctx context.Context, chatID, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.chats[chatID]
	if !ok || c.StudentToken != "" {
		return false, nil
	}
	c.StudentToken = token
	return true, nil
}

func (f *fakeChatStore) ListByStatus(ctx context.Context, status model.ChatStatus) ([]model.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ChatSession
	for _, c := range f.chats {
		if c.Status == status {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeChatStore) ListActiveForStaff(ctx context.Context, staffID string) ([]model.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ChatSession
	for id, c := range f.chats {
		if c.Status != model.ChatStatusActive {
			continue
		}
		for _, t := range f.techs[id] {
			if t == staffID {
				out = append(out, *c)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeChatStore) CountByStatus(ctx context.Context, status model.ChatStatus) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.chats {
		if c.Status == status {
			n++
		}
	}
	return n, nil
}

func (f *fakeChatStore) ListClosedOlderThan(ctx context.Context, cutoff time.Time) ([]model.ChatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ChatSession
	for _, c := range f.chats {
		if c.Status == model.ChatStatusClosed && c.CreatedAt.Before(cutoff) {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeChatStore) DeleteCascade(ctx context.Context, chatID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.chats[chatID]; !ok {
		return repository.ErrNotFound
	}
	delete(f.chats, chatID)
	delete(f.techs, chatID)
	f.msgs.deleteChat(chatID)
	return nil
}

type fakeMessageStore struct {
	mu     sync.Mutex
	nextID int64
	msgs   map[string][]model.ChatMessage
	atts   map[string][]model.ChatAttachment
}

func newFakeMessageStore() *fakeMessageStore {
	return &fakeMessageStore{
		msgs: make(map[string][]model.ChatMessage),
		atts: make(map[string][]model.ChatAttachment),
	}
}

func (f *fakeMessageStore) CreateWithAttachments(ctx context.Context, m *model.ChatMessage, attachments []model.ChatAttachment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	m.ID = f.nextID
	for i := range attachments {
		f.nextID++
		attachments[i].ID = f.nextID
		attachments[i].ChatID = m.ChatID
		attachments[i].MessageID = m.ID
		f.atts[m.ChatID] = append(f.atts[m.ChatID], attachments[i])
	}
	m.Attachments = attachments
	f.msgs[m.ChatID] = append(f.msgs[m.ChatID], *m)
	return nil
}

func (f *fakeMessageStore) ListByChat(ctx context.Context, chatID string) ([]model.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]model.ChatMessage(nil), f.msgs[chatID]...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (f *fakeMessageStore) ListAttachmentsByChat(ctx context.Context, chatID string) ([]model.ChatAttachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ChatAttachment(nil), f.atts[chatID]...), nil
}

func (f *fakeMessageStore) GetAttachment(ctx context.Context, id int64) (*model.ChatAttachment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, atts := range f.atts {
		for _, a := range atts {
			if a.ID == id {
				cp := a
				return &cp, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeMessageStore) deleteChat(chatID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.msgs, chatID)
	delete(f.atts, chatID)
}

type fakeBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{blobs: make(map[string][]byte)}
}

func (f *fakeBlobStore) Save(ctx context.Context, ref string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[ref] = data
	return nil
}

func (f *fakeBlobStore) Open(ref string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[ref]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeBlobStore) Remove(ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, ref)
	return nil
}

func (f *fakeBlobStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blobs)
}

type fakeScheduleStore struct {
	mu        sync.Mutex
	weekly    map[model.Weekday]model.WeeklyScheduleEntry
	overrides []model.ScheduleOverride
	nextID    int64
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{weekly: make(map[model.Weekday]model.WeeklyScheduleEntry)}
}

func (f *fakeScheduleStore) ListWeekly(ctx context.Context) ([]model.WeeklyScheduleEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.WeeklyScheduleEntry, 0, len(f.weekly))
	for _, e := range f.weekly {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day < out[j].Day })
	return out, nil
}

func (f *fakeScheduleStore) UpsertWeekly(ctx context.Context, e *model.WeeklyScheduleEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.weekly[e.Day] = *e
	return nil
}

func (f *fakeScheduleStore) SeedWeeklyDefaults(ctx context.Context, entries []model.WeeklyScheduleEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		if _, ok := f.weekly[e.Day]; !ok {
			f.weekly[e.Day] = e
		}
	}
	return nil
}

func (f *fakeScheduleStore) CreateOverride(ctx context.Context, o *model.ScheduleOverride) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	o.ID = f.nextID
	f.overrides = append(f.overrides, *o)
	return nil
}

func (f *fakeScheduleStore) GetOverrideByDate(ctx context.Context, date time.Time) (*model.ScheduleOverride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := date.Format("2006-01-02")
	for _, o := range f.overrides {
		if o.Date.Format("2006-01-02") == key {
			cp := o
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeScheduleStore) ListOverridesFrom(ctx context.Context, date time.Time) ([]model.ScheduleOverride, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ScheduleOverride
	for _, o := range f.overrides {
		if !o.Date.Before(date) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (f *fakeScheduleStore) DeleteOverride(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, o := range f.overrides {
		if o.ID == id {
			f.overrides = append(f.overrides[:i], f.overrides[i+1:]...)
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeLimiter struct {
	allowed bool
	calls   int
}

func (f *fakeLimiter) CheckChatStartLimit(ctx context.Context, key string) (bool, error) {
	f.calls++
	return f.allowed, nil
}
