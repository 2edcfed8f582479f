package middleware

import (
	"context"

	"github.com/helpdesk/internal/model"
)

type contextKey string

const (
	StaffKey        contextKey = "staff"
	StudentTokenKey contextKey = "student_token"
)

// GetStaff returns the authenticated staff member from the context
// (set by StaffAuth), or nil.
func GetStaff(ctx context.Context) *model.StaffMember {
	v, _ := ctx.Value(StaffKey).(*model.StaffMember)
	return v
}

// GetStudentToken returns the student's anonymous token from the context
// (set by StudentToken).
func GetStudentToken(ctx context.Context) string {
	v, _ := ctx.Value(StudentTokenKey).(string)
	return v
}
