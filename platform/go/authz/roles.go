package authz

// Role is a named category granting a fixed permission set within one club.
// OWNER is assignable only through the ownership-transfer operation; the
// generic role-update path must reject it.
type Role string

const (
	RoleOwner     Role = "OWNER"
	RoleAdmin     Role = "ADMIN"
	RoleTreasurer Role = "TREASURER"
	RoleSecretary Role = "SECRETARY"
	RoleMember    Role = "MEMBER"
)

// AllRoles lists every assignable role.
var AllRoles = []Role{RoleOwner, RoleAdmin, RoleTreasurer, RoleSecretary, RoleMember}

// ParseRole validates a raw role string against the fixed enumeration.
func ParseRole(raw string) (Role, bool) {
	for _, r := range AllRoles {
		if string(r) == raw {
			return r, true
		}
	}
	return "", false
}

// Permission is an `entity:action` capability string. The taxonomy is closed:
// adding a permission means editing this file, never deriving one at runtime.
type Permission string

const (
	PermMemberRead   Permission = "member:read"
	PermMemberCreate Permission = "member:create"
	PermMemberUpdate Permission = "member:update"
	PermMemberDelete Permission = "member:delete"

	PermFinanceRead   Permission = "finance:read"
	PermFinanceCreate Permission = "finance:create"
	PermFinanceUpdate Permission = "finance:update"
	PermFinanceDelete Permission = "finance:delete"

	PermClubRead       Permission = "club:read"
	PermClubUpdate     Permission = "club:update"
	PermClubDeactivate Permission = "club:deactivate"
	PermClubReactivate Permission = "club:reactivate"

	PermMembershipRead   Permission = "membership:read"
	PermMembershipUpdate Permission = "membership:update"
	PermMembershipRemove Permission = "membership:remove"

	PermReportRead Permission = "report:read"

	// Reserved for the meeting-protocol feature; no route enforces it yet.
	PermProtocolCreate Permission = "protocol:create"
)

var allPermissions = []Permission{
	PermMemberRead, PermMemberCreate, PermMemberUpdate, PermMemberDelete,
	PermFinanceRead, PermFinanceCreate, PermFinanceUpdate, PermFinanceDelete,
	PermClubRead, PermClubUpdate, PermClubDeactivate, PermClubReactivate,
	PermMembershipRead, PermMembershipUpdate, PermMembershipRemove,
	PermReportRead,
	PermProtocolCreate,
}

// rolePermissions is the static grant table. OWNER is maximal within the club
// and is populated from the full taxonomy in init to keep the two in sync.
var rolePermissions = map[Role][]Permission{
	RoleAdmin: {
		PermMemberRead, PermMemberCreate, PermMemberUpdate, PermMemberDelete,
		PermFinanceRead,
		PermClubRead, PermClubUpdate, PermClubDeactivate, PermClubReactivate,
		PermMembershipRead, PermMembershipUpdate, PermMembershipRemove,
		PermReportRead,
		PermProtocolCreate,
	},
	RoleTreasurer: {
		PermMemberRead,
		PermFinanceRead, PermFinanceCreate, PermFinanceUpdate, PermFinanceDelete,
		PermClubRead,
		PermReportRead,
	},
	RoleSecretary: {
		PermMemberRead, PermMemberCreate, PermMemberUpdate,
		PermClubRead,
		PermMembershipRead,
		PermProtocolCreate,
	},
	RoleMember: {
		PermClubRead,
	},
}

func init() {
	owner := make([]Permission, len(allPermissions))
	copy(owner, allPermissions)
	rolePermissions[RoleOwner] = owner
}
