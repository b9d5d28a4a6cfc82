package authz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOwnerIsMaximal(t *testing.T) {
	t.Parallel()

	owner := PermissionsFor([]Role{RoleOwner})
	for _, perm := range allPermissions {
		require.Contains(t, owner, perm)
	}
}

func TestPermissionsForUnionsRoles(t *testing.T) {
	t.Parallel()

	treasurerOnly := PermissionsFor([]Role{RoleTreasurer})
	require.Contains(t, treasurerOnly, PermFinanceCreate)
	require.NotContains(t, treasurerOnly, PermMemberDelete)

	// Adding a role never removes a permission.
	combined := PermissionsFor([]Role{RoleTreasurer, RoleAdmin})
	for perm := range treasurerOnly {
		require.Contains(t, combined, perm)
	}
	require.Contains(t, combined, PermMemberDelete)
}

func TestPermissionsForUnknownRole(t *testing.T) {
	t.Parallel()

	require.Empty(t, PermissionsFor([]Role{Role("JANITOR")}))
	require.Empty(t, PermissionsFor(nil))
}

func TestHasPermission(t *testing.T) {
	t.Parallel()

	roles := []Role{RoleTreasurer}
	require.True(t, HasPermission(roles, PermFinanceRead))
	require.False(t, HasPermission(roles, PermMemberDelete))
	require.False(t, HasPermission(nil, PermClubRead))
}

func TestHasAnyRole(t *testing.T) {
	t.Parallel()

	roles := []Role{RoleSecretary, RoleMember}
	require.True(t, HasAnyRole(roles, []Role{RoleOwner, RoleSecretary}))
	require.False(t, HasAnyRole(roles, []Role{RoleOwner, RoleAdmin}))
	require.False(t, HasAnyRole(roles, nil))
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	role, ok := ParseRole("TREASURER")
	require.True(t, ok)
	require.Equal(t, RoleTreasurer, role)

	_, ok = ParseRole("treasurer")
	require.False(t, ok)
}
