package rbac

// Role-level checks over a subject and the static catalog. These perform
// no I/O and no property scoping: they are cheap gates for UI rendering
// and role-only routes. Property-scoped mutating actions must go through
// the resolver instead.

// UserPermissions returns the subject's role defaults unioned with any
// permissions already attached to the subject (session-cached),
// deduplicated.
func UserPermissions(subject Subject) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, name := range RolePermissions(subject.Role) {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	for _, name := range subject.Permissions {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// HasPermission reports whether the subject holds the named permission at
// role level.
func HasPermission(subject Subject, name string) bool {
	if subject.Role == RoleSuperAdmin {
		return true
	}
	for _, p := range UserPermissions(subject) {
		if p == name {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether the subject holds at least one of the
// named permissions.
func HasAnyPermission(subject Subject, names ...string) bool {
	for _, name := range names {
		if HasPermission(subject, name) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether the subject holds every named
// permission.
func HasAllPermissions(subject Subject, names ...string) bool {
	for _, name := range names {
		if !HasPermission(subject, name) {
			return false
		}
	}
	return true
}

// HasRole reports an exact role match.
func HasRole(subject Subject, role Role) bool {
	return subject.Role == role
}

// HasAnyRole reports whether the subject's role is in the list.
func HasAnyRole(subject Subject, roles ...Role) bool {
	for _, role := range roles {
		if subject.Role == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the subject holds an administrative role.
func IsAdmin(subject Subject) bool {
	return subject.Role == RoleSuperAdmin || subject.Role == RolePropertyAdmin
}

// IsSuperAdmin reports whether the subject is the global administrator.
func IsSuperAdmin(subject Subject) bool {
	return subject.Role == RoleSuperAdmin
}

// HierarchyRank maps a role to its position in the hierarchy,
// super_admin=7 down to readonly=0. Unknown roles rank below readonly.
func HierarchyRank(role Role) int {
	rank, ok := roleRanks[role]
	if !ok {
		return -1
	}
	return rank
}

// HasHigherAccess reports whether a outranks b in the role hierarchy.
func HasHigherAccess(a, b Subject) bool {
	return HierarchyRank(a.Role) > HierarchyRank(b.Role)
}
