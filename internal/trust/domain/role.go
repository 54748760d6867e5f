package domain

// Role is one of the closed set of internal roles. Roles are assigned to
// users (directly or mapped from identity-provider groups) and carry a
// static permission set; the role set itself never changes at runtime.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
	RoleMember   Role = "member"
	RoleViewer   Role = "viewer"
)

// rolePermissions is the static role to permission relation. Permissions
// are "{resource_type}:{action}" strings checked by the authorization
// fallback rule. Admin is not listed exhaustively because the fallback
// short-circuits on the admin role itself.
var rolePermissions = map[Role][]string{
	RoleAdmin: {"*:*"},
	RoleOperator: {
		"event:read", "event:write",
		"receiver:read", "receiver:write",
		"user:read",
	},
	RoleMember: {
		"event:read", "event:write",
		"receiver:read",
	},
	RoleViewer: {
		"event:read",
		"receiver:read",
	},
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Permissions returns the static permission set owned by the role.
// The returned slice is a copy; callers may mutate it freely.
func (r Role) Permissions() []string {
	perms := rolePermissions[r]
	out := make([]string, len(perms))
	copy(out, perms)
	return out
}

// PermissionsForRoles returns the de-duplicated union of the permission
// sets of all given roles.
func PermissionsForRoles(roles []Role) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, role := range roles {
		for _, p := range rolePermissions[role] {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// PermissionSet returns the de-duplicated union of the roles' static
// permission sets and any ad-hoc grants.
func PermissionSet(roles []Role, adhoc []string) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(p string) {
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, role := range roles {
		for _, p := range rolePermissions[role] {
			add(p)
		}
	}
	for _, p := range adhoc {
		add(p)
	}
	return out
}

// RoleStrings converts a role slice to its string form, for embedding in
// token claims.
func RoleStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

// RolesFromStrings converts claim strings back to roles, dropping anything
// outside the closed set.
func RolesFromStrings(values []string) []Role {
	var out []Role
	for _, v := range values {
		if r := Role(v); r.Valid() {
			out = append(out, r)
		}
	}
	return out
}

// HasRole reports whether roles contains want.
func HasRole(roles []Role, want Role) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
