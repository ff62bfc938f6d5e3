package auth

// Principal represents a user with resolved roles and permissions.
type Principal struct {
	User        *User
	Roles       []Role
	Permissions map[string]struct{}
}

// NewPrincipal constructs a principal with preloaded permissions.
func NewPrincipal(user *User, roles []Role, perms []Permission) Principal {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p.Key] = struct{}{}
	}
	return Principal{User: user, Roles: roles, Permissions: set}
}

// HasPermission reports whether the principal can execute the action
// identified by key.
func (p Principal) HasPermission(key string) bool {
	_, ok := p.Permissions[key]
	return ok
}

// HasAllPermissions reports whether every key is granted. Authorization is
// AND semantics: one missing permission denies the whole check.
func (p Principal) HasAllPermissions(keys ...string) bool {
	for _, key := range keys {
		if !p.HasPermission(key) {
			return false
		}
	}
	return true
}

// RoleNames returns the principal's role names in assignment order.
func (p Principal) RoleNames() []string {
	names := make([]string, 0, len(p.Roles))
	for _, r := range p.Roles {
		names = append(names, r.Name)
	}
	return names
}
