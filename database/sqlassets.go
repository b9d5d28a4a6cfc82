package sqlassets

import _ "embed"

//go:embed schema/core/users.sql
var UsersSQL string

//go:embed schema/core/clubs.sql
var ClubsSQL string

//go:embed schema/core/memberships.sql
var MembershipsSQL string

//go:embed schema/core/members.sql
var MembersSQL string

//go:embed schema/core/ledger_accounts.sql
var LedgerAccountsSQL string

// CoreSchema returns the DDL in dependency order.
func CoreSchema() []string {
	return []string{UsersSQL, ClubsSQL, MembershipsSQL, MembersSQL, LedgerAccountsSQL}
}
