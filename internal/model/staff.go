package model

import "time"

type StaffRole string

const (
	RoleTechnician    StaffRole = "technician"
	RoleSystemManager StaffRole = "system_manager"
)

// StaffMember is an authenticated helpdesk worker. Role is carried
// explicitly so authorization checks never inspect anything else.
type StaffMember struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	Role         StaffRole `json:"role"`
	Department   string    `json:"department"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsManager reports whether the member may manage schedules and accounts.
func (s *StaffMember) IsManager() bool { return s.Role == RoleSystemManager }
