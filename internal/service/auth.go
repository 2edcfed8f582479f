package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/helpdesk/internal/model"
	"github.com/helpdesk/internal/repository"
	"github.com/helpdesk/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

// AuthService authenticates staff and manages their bearer tokens.
type AuthService struct {
	staff  StaffStore
	tokens storage.TokenStore
}

func NewAuthService(staff StaffStore, tokens storage.TokenStore) *AuthService {
	return &AuthService{staff: staff, tokens: tokens}
}

// Login verifies credentials and issues a bearer token. The error is the
// same for unknown user and wrong password.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, *model.StaffMember, error) {
	member, err := s.staff.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, ErrBadCredentials
	}
	if err != nil {
		return "", nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)) != nil {
		return "", nil, ErrBadCredentials
	}
	token := uuid.New().String()
	if err := s.tokens.SetStaffToken(ctx, token, member.ID); err != nil {
		return "", nil, err
	}
	return token, member, nil
}

// Logout revokes the token. Revoking an unknown token is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	return s.tokens.DeleteStaffToken(ctx, token)
}

// Resolve maps a bearer token to its staff member, or ErrForbidden.
func (s *AuthService) Resolve(ctx context.Context, token string) (*model.StaffMember, error) {
	if token == "" {
		return nil, ErrForbidden
	}
	staffID, err := s.tokens.GetStaffToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if staffID == "" {
		return nil, ErrForbidden
	}
	member, err := s.staff.GetByID(ctx, staffID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidUser
	}
	if err != nil {
		return nil, err
	}
	return member, nil
}

// CreateAccount registers a staff member with a bcrypt-hashed password.
// Used by the staffctl bootstrap tool.
func (s *AuthService) CreateAccount(ctx context.Context, username, fullName, password, department string, role model.StaffRole) (*model.StaffMember, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return nil, validationErrorf("username must be at least 3 characters")
	}
	if len(password) < 8 {
		return nil, validationErrorf("password must be at least 8 characters")
	}
	if role != model.RoleTechnician && role != model.RoleSystemManager {
		return nil, validationErrorf("role must be technician or system_manager")
	}
	if _, err := s.staff.GetByUsername(ctx, username); err == nil {
		return nil, validationErrorf("username is already taken")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	member := &model.StaffMember{
		ID:           uuid.New().String(),
		Username:     username,
		FullName:     strings.TrimSpace(fullName),
		Role:         role,
		Department:   strings.TrimSpace(department),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.staff.Create(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}
