package models

import (
	"time"

	"github.com/google/uuid"
)

// Role represents a user's position in the marketplace hierarchy.
type Role string

const (
	RoleSuperAgent  Role = "super_agent"
	RoleAgent       Role = "agent"
	RoleSuperWorker Role = "super_worker"
	RoleWorker      Role = "worker"
	RoleClient      Role = "client"
)

// AllRoles lists every valid role.
var AllRoles = []Role{RoleSuperAgent, RoleAgent, RoleSuperWorker, RoleWorker, RoleClient}

// ParseRole returns the Role for s, or false if s is not a known role.
func ParseRole(s string) (Role, bool) {
	for _, r := range AllRoles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

// User represents a marketplace user. Role is fixed at registration;
// there is no role-change operation.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserPublic is User without sensitive fields for API responses.
type UserPublic struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// ToPublic converts User to UserPublic.
func (u *User) ToPublic() UserPublic {
	return UserPublic{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
