package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/helpdesk/internal/model"
	"github.com/helpdesk/internal/repository"
	"github.com/helpdesk/internal/storage/memory"
)

type fakeStaffStore struct {
	mu      sync.Mutex
	members map[string]*model.StaffMember // by id
}

func newFakeStaffStore() *fakeStaffStore {
	return &fakeStaffStore{members: make(map[string]*model.StaffMember)}
}

func (f *fakeStaffStore) Create(ctx context.Context, m *model.StaffMember) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *m
	f.members[m.ID] = &cp
	return nil
}

func (f *fakeStaffStore) GetByID(ctx context.Context, id string) (*model.StaffMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeStaffStore) GetByUsername(ctx context.Context, username string) (*model.StaffMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.members {
		if m.Username == username {
			cp := *m
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStaffStore) ListAll(ctx context.Context) ([]model.StaffMember, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.StaffMember
	for _, m := range f.members {
		out = append(out, *m)
	}
	return out, nil
}

func TestAuthRoundTrip(t *testing.T) {
	svc := NewAuthService(newFakeStaffStore(), memory.New())
	ctx := context.Background()

	created, err := svc.CreateAccount(ctx, "dmartin", "Dana Martin", "correct horse battery", "IT Support", model.RoleTechnician)
	if err != nil {
		t.Fatal(err)
	}
	if created.PasswordHash == "correct horse battery" {
		t.Fatal("password stored in the clear")
	}

	token, staff, err := svc.Login(ctx, "dmartin", "correct horse battery")
	if err != nil {
		t.Fatal(err)
	}
	if staff.ID != created.ID || token == "" {
		t.Fatalf("login = %q, %+v", token, staff)
	}

	resolved, err := svc.Resolve(ctx, token)
	if err != nil || resolved.Username != "dmartin" {
		t.Fatalf("resolve = %+v, %v", resolved, err)
	}

	if err := svc.Logout(ctx, token); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Resolve(ctx, token); !errors.Is(err, ErrForbidden) {
		t.Fatalf("resolve after logout err = %v", err)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := NewAuthService(newFakeStaffStore(), memory.New())
	ctx := context.Background()
	if _, err := svc.CreateAccount(ctx, "dmartin", "Dana Martin", "correct horse battery", "", model.RoleTechnician); err != nil {
		t.Fatal(err)
	}

	if _, _, err := svc.Login(ctx, "dmartin", "wrong"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, _, err := svc.Login(ctx, "nobody", "correct horse battery"); !errors.Is(err, ErrBadCredentials) {
		t.Fatalf("unknown user err = %v", err)
	}
}

func TestCreateAccountValidation(t *testing.T) {
	svc := NewAuthService(newFakeStaffStore(), memory.New())
	ctx := context.Background()

	if _, err := svc.CreateAccount(ctx, "ab", "X", "longenough", "", model.RoleTechnician); !errors.Is(err, ErrValidation) {
		t.Errorf("short username err = %v", err)
	}
	if _, err := svc.CreateAccount(ctx, "valid", "X", "short", "", model.RoleTechnician); !errors.Is(err, ErrValidation) {
		t.Errorf("short password err = %v", err)
	}
	if _, err := svc.CreateAccount(ctx, "valid", "X", "longenough", "", "janitor"); !errors.Is(err, ErrValidation) {
		t.Errorf("bad role err = %v", err)
	}
	if _, err := svc.CreateAccount(ctx, "dmartin", "X", "longenough", "", model.RoleSystemManager); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateAccount(ctx, "dmartin", "Y", "longenough", "", model.RoleTechnician); !errors.Is(err, ErrValidation) {
		t.Errorf("duplicate username err = %v", err)
	}
}
