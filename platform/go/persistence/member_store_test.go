package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func seedTwoClubs(t *testing.T, ctx context.Context, clubs *ClubStore) (Club, Club) {
	t.Helper()

	a, err := clubs.Create(ctx, CreateClubParams{Slug: "club-a", Name: "Club A", TierID: "free"})
	require.NoError(t, err)
	b, err := clubs.Create(ctx, CreateClubParams{Slug: "club-b", Name: "Club B", TierID: "free"})
	require.NoError(t, err)
	return a, b
}

func TestMemberStoreScopedIsolation(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	clubs, err := NewClubStore(pool)
	require.NoError(t, err)
	store, err := NewMemberStore(pool)
	require.NoError(t, err)

	clubA, clubB := seedTwoClubs(t, ctx, clubs)
	scopeA := NewScope(clubA.ClubID)
	scopeB := NewScope(clubB.ClubID)

	inA, err := store.Create(ctx, scopeA, CreateMemberParams{MemberNo: "001", FirstName: "Anna", LastName: "Acker"})
	require.NoError(t, err)
	require.Equal(t, clubA.ClubID, inA.ClubID)

	// Same member number in another club is not a conflict.
	_, err = store.Create(ctx, scopeB, CreateMemberParams{MemberNo: "001", FirstName: "Bernd", LastName: "Bach"})
	require.NoError(t, err)

	// Club B's scope cannot see, update or delete club A's row. The miss is
	// indistinguishable from a nonexistent member.
	_, err = store.Get(ctx, scopeB, inA.MemberID)
	require.ErrorIs(t, err, ErrMemberNotFound)
	newName := "Hacked"
	_, err = store.Update(ctx, scopeB, inA.MemberID, UpdateMemberParams{FirstName: &newName})
	require.ErrorIs(t, err, ErrMemberNotFound)
	require.ErrorIs(t, store.Delete(ctx, scopeB, inA.MemberID), ErrMemberNotFound)

	listA, err := store.List(ctx, scopeA, ListMembersParams{})
	require.NoError(t, err)
	require.Equal(t, 1, listA.TotalItems)
	require.Equal(t, "Anna", listA.Members[0].FirstName)
}

func TestMemberStoreCRUD(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	clubs, err := NewClubStore(pool)
	require.NoError(t, err)
	store, err := NewMemberStore(pool)
	require.NoError(t, err)

	club, err := clubs.Create(ctx, CreateClubParams{Slug: "tsg-mitte", Name: "TSG Mitte", TierID: "free"})
	require.NoError(t, err)
	scope := NewScope(club.ClubID)

	created, err := store.Create(ctx, scope, CreateMemberParams{MemberNo: "100", FirstName: "Clara", LastName: "Cramer"})
	require.NoError(t, err)

	_, err = store.Create(ctx, scope, CreateMemberParams{MemberNo: "100", FirstName: "Dup", LastName: "Dup"})
	require.ErrorIs(t, err, ErrMemberConflict)

	last := "Krämer"
	updated, err := store.Update(ctx, scope, created.MemberID, UpdateMemberParams{LastName: &last})
	require.NoError(t, err)
	require.Equal(t, "Krämer", updated.LastName)
	require.Equal(t, "Clara", updated.FirstName)

	filter := "Krämer"
	listed, err := store.List(ctx, scope, ListMembersParams{LastName: &filter})
	require.NoError(t, err)
	require.Equal(t, 1, listed.TotalItems)

	require.NoError(t, store.Delete(ctx, scope, created.MemberID))
	_, err = store.Get(ctx, scope, created.MemberID)
	require.ErrorIs(t, err, ErrMemberNotFound)
}

func TestMemberStoreCreateMany(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	clubs, err := NewClubStore(pool)
	require.NoError(t, err)
	store, err := NewMemberStore(pool)
	require.NoError(t, err)

	club, err := clubs.Create(ctx, CreateClubParams{Slug: "sv-import", Name: "SV Import", TierID: "pro"})
	require.NoError(t, err)
	scope := NewScope(club.ClubID)

	members, err := store.CreateMany(ctx, scope, []CreateMemberParams{
		{MemberNo: "001", FirstName: "A", LastName: "One"},
		{MemberNo: "002", FirstName: "B", LastName: "Two"},
		{MemberNo: "003", FirstName: "C", LastName: "Three"},
	})
	require.NoError(t, err)
	require.Len(t, members, 3)
	for _, member := range members {
		require.Equal(t, club.ClubID, member.ClubID)
	}

	// A duplicate anywhere rolls back the whole batch.
	_, err = store.CreateMany(ctx, scope, []CreateMemberParams{
		{MemberNo: "004", FirstName: "D", LastName: "Four"},
		{MemberNo: "001", FirstName: "Dup", LastName: "Dup"},
	})
	require.ErrorIs(t, err, ErrMemberConflict)

	listed, err := store.List(ctx, scope, ListMembersParams{})
	require.NoError(t, err)
	require.Equal(t, 3, listed.TotalItems)
}

func TestMemberStoreErase(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	clubs, err := NewClubStore(pool)
	require.NoError(t, err)
	store, err := NewMemberStore(pool)
	require.NoError(t, err)

	club, err := clubs.Create(ctx, CreateClubParams{Slug: "fc-dsgvo", Name: "FC DSGVO", TierID: "free"})
	require.NoError(t, err)
	scope := NewScope(club.ClubID)

	email := "erase-me@example.com"
	created, err := store.Create(ctx, scope, CreateMemberParams{MemberNo: "042", FirstName: "Emil", LastName: "Ernst", Email: &email})
	require.NoError(t, err)

	erased, err := store.Erase(ctx, scope, created.MemberID)
	require.NoError(t, err)
	require.Empty(t, erased.FirstName)
	require.Empty(t, erased.LastName)
	require.Nil(t, erased.Email)
	require.NotNil(t, erased.ErasedAt)
	require.Equal(t, "042", erased.MemberNo)

	// Idempotent: re-erasing keeps the original timestamp.
	again, err := store.Erase(ctx, scope, created.MemberID)
	require.NoError(t, err)
	require.Equal(t, erased.ErasedAt.Unix(), again.ErasedAt.Unix())
}
