// Package authz answers role and permission questions for one resolved club
// context. Everything here is a pure lookup against the static grant table;
// the platform super-admin override is deliberately NOT part of these
// functions because it is platform-scoped, not club-scoped; the guard
// pipeline checks it before any per-club evaluation happens.
package authz

// PermissionsFor returns the union of statically assigned permissions for the
// given role set. Unknown roles contribute nothing.
func PermissionsFor(roles []Role) map[Permission]struct{} {
	granted := make(map[Permission]struct{})
	for _, role := range roles {
		for _, perm := range rolePermissions[role] {
			granted[perm] = struct{}{}
		}
	}
	return granted
}

// HasPermission reports whether the role set grants the permission.
func HasPermission(roles []Role, perm Permission) bool {
	for _, role := range roles {
		for _, granted := range rolePermissions[role] {
			if granted == perm {
				return true
			}
		}
	}
	return false
}

// HasAnyRole reports whether the role set intersects the required roles.
func HasAnyRole(roles []Role, required []Role) bool {
	for _, have := range roles {
		for _, want := range required {
			if have == want {
				return true
			}
		}
	}
	return false
}
