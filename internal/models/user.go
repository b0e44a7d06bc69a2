package models

import (
	"time"

	"github.com/google/uuid"
)

// Roles are fixed for this CRM; each maps to a static permission list that
// ends up in the JWT claims.
const (
	RoleAdmin  = "admin"
	RoleAgent  = "agent"
	RoleViewer = "viewer"
)

// Permission names used by the route guards.
const (
	PermMessagesSend   = "messages:send"
	PermMessagesRead   = "messages:read"
	PermTemplatesWrite = "templates:write"
	PermUsersManage    = "users:manage"
)

var rolePermissions = map[string][]string{
	RoleAdmin:  {PermMessagesSend, PermMessagesRead, PermTemplatesWrite, PermUsersManage},
	RoleAgent:  {PermMessagesSend, PermMessagesRead},
	RoleViewer: {PermMessagesRead},
}

// PermissionsForRole returns the permission list for a role. Unknown roles
// get no permissions.
func PermissionsForRole(role string) []string {
	perms, ok := rolePermissions[role]
	if !ok {
		return nil
	}
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// IsValidRole reports whether role is one of the known roles.
func IsValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// User represents a CRM user (agent) with authentication state.
type User struct {
	ID                  string  `json:"id"`
	Username            string  `json:"username" binding:"required,min=3,max=50"`
	Email               string  `json:"email" binding:"required,email"`
	PasswordHash        string  `json:"-"`
	Role                string  `json:"role"`
	TOTPSecret          *string `json:"-"`
	TOTPEnabled         bool    `json:"totp_enabled"`
	Active              bool    `json:"active"`
	FailedLoginAttempts int     `json:"failed_login_attempts"`
	LockedUntil         *int64  `json:"locked_until,omitempty"`
	LastLogin           *int64  `json:"last_login,omitempty"`
	CreatedAt           int64   `json:"created_at"`
	UpdatedAt           int64   `json:"updated_at"`
}

// CreateUserRequest represents the request body for creating a new user
type CreateUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role,omitempty"`
}

// UpdateUserRequest represents the request body for updating an existing user
type UpdateUserRequest struct {
	Email  *string `json:"email,omitempty" binding:"omitempty,email"`
	Active *bool   `json:"active,omitempty"`
	Role   *string `json:"role,omitempty"`
}

// UserResponse is the safe user representation for API responses,
// excluding all sensitive fields.
type UserResponse struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	Active      bool   `json:"active"`
	TOTPEnabled bool   `json:"totp_enabled"`
	LastLogin   *int64 `json:"last_login,omitempty"`
	CreatedAt   int64  `json:"created_at"`
}

// NewUser creates a new User with a generated UUID and timestamps.
// The password must already be hashed.
func NewUser(username, email, passwordHash, role string) *User {
	now := time.Now().Unix()
	return &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsActive returns whether the user account is active and not locked
func (u *User) IsActive() bool {
	if !u.Active {
		return false
	}

	return !u.IsLocked()
}

// IsLocked returns whether the user account is currently locked.
// An account is locked if LockedUntil is set and in the future.
func (u *User) IsLocked() bool {
	if u.LockedUntil == nil {
		return false
	}

	now := time.Now().Unix()
	return *u.LockedUntil > now
}

// Permissions returns the permission list derived from the user's role.
func (u *User) Permissions() []string {
	return PermissionsForRole(u.Role)
}

// HasPermission checks a single permission by name (linear membership check).
func (u *User) HasPermission(name string) bool {
	for _, p := range u.Permissions() {
		if p == name {
			return true
		}
	}
	return false
}

// ToResponse converts User to UserResponse, excluding all sensitive fields.
func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
		Active:      u.Active,
		TOTPEnabled: u.TOTPEnabled,
		LastLogin:   u.LastLogin,
		CreatedAt:   u.CreatedAt,
	}
}
