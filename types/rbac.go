package types

import "time"

// Well-known role names seeded at deploy time.
const (
	RoleUser       = "USER"
	RoleAdmin      = "ADMIN"
	RoleSuperAdmin = "SUPER_ADMIN"
	RolePartner    = "PARTNER"
)

// Role is a named bucket of permissions.
type Role struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Permission is a fine-grained capability key in the form
// resource.action_scope, e.g. "user.delete_all".
type Permission struct {
	ID          int       `json:"id" db:"id"`
	Key         string    `json:"key" db:"key"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// UserRole links a user to a role. A user's effective permission set is
// the union of permissions across all assigned roles.
type UserRole struct {
	UserID    int       `json:"user_id" db:"user_id"`
	RoleID    int       `json:"role_id" db:"role_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
