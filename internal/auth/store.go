package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Users(ctx context.Context) UserStore
	Sessions(ctx context.Context) SessionStore
	Roles(ctx context.Context) RoleStore
	Permissions(ctx context.Context) PermissionStore
}

// NewUser carries everything needed to persist a user, including the initial
// role set. Implementations should write the user and its role assignments in
// one transaction.
type NewUser struct {
	ID           string
	Email        string
	FirstName    string
	LastName     string
	PasswordHash string
	Roles        []string
}

// UserStore manages users. Lookups never return the password hash; it is
// reachable only through the dedicated accessor so normal read paths cannot
// leak it into responses.
type UserStore interface {
	Create(ctx context.Context, u NewUser) (*User, error)
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	PasswordHash(ctx context.Context, userID string) (string, error)
}

// SessionStore manages session records. Delete is idempotent.
type SessionStore interface {
	Create(ctx context.Context, s Session) error
	Find(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error
}

// RoleStore manages roles and user-role assignments.
type RoleStore interface {
	Find(ctx context.Context, id string) (Role, error)
	FindByName(ctx context.Context, name string) (Role, error)
	RolesForUser(ctx context.Context, userID string) ([]Role, error)
	Assign(ctx context.Context, assignment RoleAssignment) error
	Ensure(ctx context.Context, roles []Role) error
}

// PermissionStore manages the permission catalog.
type PermissionStore interface {
	Ensure(ctx context.Context, perms []Permission) error
	PermissionsForRole(ctx context.Context, roleID string) ([]Permission, error)
	SetForRole(ctx context.Context, roleID string, keys []string) error
}
