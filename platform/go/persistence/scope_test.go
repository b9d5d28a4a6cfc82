package persistence

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestScopeReadMergesClubID(t *testing.T) {
	t.Parallel()

	clubID := uuid.New()
	scope := NewScope(clubID)

	filter := scope.Read(KindMembers, map[string]any{"last_name": "Meier"})
	require.Equal(t, clubID, filter["club_id"])
	require.Equal(t, "Meier", filter["last_name"])
}

func TestScopeOverridesForgedClubID(t *testing.T) {
	t.Parallel()

	clubID := uuid.New()
	foreign := uuid.New()
	scope := NewScope(clubID)

	// A caller-supplied club_id must never survive, in filters or payloads.
	read := scope.Read(KindMembers, map[string]any{"club_id": foreign})
	require.Equal(t, clubID, read["club_id"])

	create := scope.Create(KindLedgerAccounts, map[string]any{"club_id": foreign, "name": "Bank"})
	require.Equal(t, clubID, create["club_id"])

	mutate := scope.Mutate(KindMembers, map[string]any{"club_id": foreign, "member_id": uuid.New()})
	require.Equal(t, clubID, mutate["club_id"])
}

func TestScopeDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	scope := NewScope(uuid.New())
	in := map[string]any{"last_name": "Meier"}
	_ = scope.Read(KindMembers, in)

	require.NotContains(t, in, "club_id")
}

func TestScopeCreateMany(t *testing.T) {
	t.Parallel()

	clubID := uuid.New()
	scope := NewScope(clubID)

	rows := scope.CreateMany(KindMembers, []map[string]any{
		{"member_no": "001"},
		{"member_no": "002", "club_id": uuid.New()},
	})

	require.Len(t, rows, 2)
	for _, row := range rows {
		require.Equal(t, clubID, row["club_id"])
	}
}

func TestScopeUnscopedKindPassesThrough(t *testing.T) {
	t.Parallel()

	scope := NewScope(uuid.New())

	filter := map[string]any{"email": "x@example.com"}
	require.Equal(t, filter, scope.Read(KindUsers, filter))
	require.NotContains(t, scope.Read(KindClubs, map[string]any{"slug": "acme"}), "club_id")
	require.Equal(t, filter, scope.Mutate(KindMemberships, filter))
}

func TestBuildWhereDeterministic(t *testing.T) {
	t.Parallel()

	clubID := uuid.New()
	where, args := buildWhere(map[string]any{"club_id": clubID, "member_no": "001"}, 1)

	require.Equal(t, "club_id = $1 AND member_no = $2", where)
	require.Equal(t, []any{clubID, "001"}, args)

	where, args = buildWhere(nil, 1)
	require.Equal(t, "1=1", where)
	require.Empty(t, args)
}

func TestBuildInsertDeterministic(t *testing.T) {
	t.Parallel()

	cols, placeholders, args := buildInsert(map[string]any{"b": 2, "a": 1})
	require.Equal(t, "a, b", cols)
	require.Equal(t, "$1, $2", placeholders)
	require.Equal(t, []any{1, 2}, args)
}
