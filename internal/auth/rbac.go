package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"konnekt.org/internal/ids"
)

// RoleService resolves a user's roles and a role's permissions. It runs on
// every authorization check; a cache in front of the store is the natural
// optimization point if lookups become hot.
type RoleService struct {
	store Store
}

// NewRoleService constructs RoleService.
func NewRoleService(store Store) (*RoleService, error) {
	if store == nil {
		return nil, errors.New("auth store is required")
	}
	return &RoleService{store: store}, nil
}

// UserRoles returns the roles assigned to a user.
func (s *RoleService) UserRoles(ctx context.Context, userID string) ([]Role, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	return s.store.Roles(ctx).RolesForUser(ctx, userID)
}

// RolePermissions returns the permissions granted by a role.
func (s *RoleService) RolePermissions(ctx context.Context, roleID string) ([]Permission, error) {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return nil, fmt.Errorf("%w: role_id is required", ErrInvalidInput)
	}
	return s.store.Permissions(ctx).PermissionsForRole(ctx, roleID)
}

// UserPermissions returns the user's effective permissions, flattened through
// role membership. Duplicates across roles collapse to one entry.
func (s *RoleService) UserPermissions(ctx context.Context, userID string) ([]Permission, error) {
	roles, err := s.UserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var result []Permission
	for _, role := range roles {
		list, err := s.store.Permissions(ctx).PermissionsForRole(ctx, role.ID)
		if err != nil {
			return nil, err
		}
		for _, p := range list {
			if _, ok := seen[p.Key]; ok {
				continue
			}
			seen[p.Key] = struct{}{}
			result = append(result, p)
		}
	}
	return result, nil
}

// Principal loads the effective permission set for a user by flattening the
// user's roles. There is no direct user-to-permission assignment.
func (s *RoleService) Principal(ctx context.Context, user *User) (Principal, error) {
	if user == nil {
		return Principal{}, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	roles, err := s.store.Roles(ctx).RolesForUser(ctx, user.ID)
	if err != nil {
		return Principal{}, err
	}
	perms := make(map[string]struct{})
	for _, role := range roles {
		list, err := s.store.Permissions(ctx).PermissionsForRole(ctx, role.ID)
		if err != nil {
			return Principal{}, err
		}
		for _, p := range list {
			perms[p.Key] = struct{}{}
		}
	}
	return Principal{User: user, Roles: roles, Permissions: perms}, nil
}

// AssignRole gives a user a role identified by name.
func (s *RoleService) AssignRole(ctx context.Context, userID, roleName string) error {
	userID = strings.TrimSpace(userID)
	roleName = strings.TrimSpace(strings.ToLower(roleName))
	if userID == "" || roleName == "" {
		return fmt.Errorf("%w: user_id and role are required", ErrInvalidInput)
	}
	role, err := s.store.Roles(ctx).FindByName(ctx, roleName)
	if err != nil {
		return err
	}
	return s.store.Roles(ctx).Assign(ctx, RoleAssignment{UserID: userID, RoleID: role.ID})
}

// SetRolePermissions replaces a role's permission set.
func (s *RoleService) SetRolePermissions(ctx context.Context, roleID string, keys []string) error {
	roleID = strings.TrimSpace(roleID)
	if roleID == "" {
		return fmt.Errorf("%w: role_id is required", ErrInvalidInput)
	}
	return s.store.Permissions(ctx).SetForRole(ctx, roleID, dedupeKeys(keys))
}

// EnsureBuiltins seeds the builtin permission catalog, the builtin roles and
// their permission sets. Idempotent; runs at process start.
func (s *RoleService) EnsureBuiltins(ctx context.Context) error {
	perms := make([]Permission, 0, len(BuiltinPermissions))
	for _, p := range BuiltinPermissions {
		p.ID = ids.New()
		p.CreatedAt = time.Now().UTC()
		perms = append(perms, p)
	}
	if err := s.store.Permissions(ctx).Ensure(ctx, perms); err != nil {
		return err
	}

	roles := make([]Role, 0, len(builtinRoles))
	for name, desc := range builtinRoles {
		roles = append(roles, Role{ID: ids.New(), Name: name, Description: desc})
	}
	if err := s.store.Roles(ctx).Ensure(ctx, roles); err != nil {
		return err
	}

	for name, keys := range builtinRolePermissions {
		role, err := s.store.Roles(ctx).FindByName(ctx, name)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
		if err := s.store.Permissions(ctx).SetForRole(ctx, role.ID, keys); err != nil {
			return fmt.Errorf("seed role %s permissions: %w", name, err)
		}
	}
	return nil
}

func dedupeKeys(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := set[v]; ok {
			continue
		}
		set[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
