package persistence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// EntityKind names a table the scoper may rewrite operations for.
type EntityKind string

const (
	KindMembers        EntityKind = "members"
	KindLedgerAccounts EntityKind = "ledger_accounts"

	// Registry tables are deliberately outside the scoped set: club and
	// membership lookups happen before a scope exists (they produce it).
	KindUsers       EntityKind = "users"
	KindClubs       EntityKind = "clubs"
	KindMemberships EntityKind = "memberships"
)

// scopedKinds is the fixed set of club-owned entity kinds. Operations against
// anything else pass through the scoper unmodified.
var scopedKinds = map[EntityKind]struct{}{
	KindMembers:        {},
	KindLedgerAccounts: {},
}

// scopeColumn is the owning-club column every scoped table carries.
const scopeColumn = "club_id"

// Scope rewrites filters and payloads so every operation against a scoped
// entity kind is pinned to one club. It performs no I/O; it only mutates
// predicates and payloads before the store builds SQL. Caller-supplied
// club_id values are overridden, never trusted, so a forged filter cannot
// widen a query: a foreign row is simply never found, and no error
// distinguishes "other tenant's row" from "no row".
type Scope struct {
	ClubID uuid.UUID
}

// NewScope binds a scope to the resolved club of the current request.
func NewScope(clubID uuid.UUID) Scope {
	if clubID == uuid.Nil {
		panic("persistence: scope requires a club id")
	}
	return Scope{ClubID: clubID}
}

// Read returns the filter for a find/count/aggregate-style operation with the
// owning club merged in.
func (s Scope) Read(kind EntityKind, filter map[string]any) map[string]any {
	return s.stamp(kind, filter)
}

// Create returns the insert payload with the owning club stamped in.
func (s Scope) Create(kind EntityKind, values map[string]any) map[string]any {
	return s.stamp(kind, values)
}

// CreateMany stamps every row of a bulk insert.
func (s Scope) CreateMany(kind EntityKind, rows []map[string]any) []map[string]any {
	if _, scoped := scopedKinds[kind]; !scoped {
		return rows
	}

	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		out[i] = s.stamp(kind, row)
	}
	return out
}

// Mutate returns the filter for an update/delete/upsert with the owning club
// merged in.
func (s Scope) Mutate(kind EntityKind, filter map[string]any) map[string]any {
	return s.stamp(kind, filter)
}

func (s Scope) stamp(kind EntityKind, in map[string]any) map[string]any {
	if _, scoped := scopedKinds[kind]; !scoped {
		return in
	}

	out := make(map[string]any, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	out[scopeColumn] = s.ClubID
	return out
}

// buildWhere renders a filter map into a WHERE fragment with positional
// arguments starting at startIdx. Keys are sorted so generated SQL is
// deterministic and testable.
func buildWhere(filter map[string]any, startIdx int) (string, []any) {
	if len(filter) == 0 {
		return "1=1", nil
	}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys))
	for _, key := range keys {
		args = append(args, filter[key])
		parts = append(parts, fmt.Sprintf("%s = $%d", key, startIdx))
		startIdx++
	}

	return strings.Join(parts, " AND "), args
}

// buildInsert renders a values map into column/placeholder lists plus args.
// Keys are sorted for the same determinism reason as buildWhere.
func buildInsert(values map[string]any) (columns string, placeholders string, args []any) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	cols := make([]string, 0, len(keys))
	phs := make([]string, 0, len(keys))
	args = make([]any, 0, len(keys))
	for i, key := range keys {
		cols = append(cols, key)
		phs = append(phs, fmt.Sprintf("$%d", i+1))
		args = append(args, values[key])
	}

	return strings.Join(cols, ", "), strings.Join(phs, ", "), args
}
