package persistence

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestLedgerStoreScopedIsolation(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	clubs, err := NewClubStore(pool)
	require.NoError(t, err)
	store, err := NewLedgerStore(pool)
	require.NoError(t, err)

	clubA, clubB := seedTwoClubs(t, ctx, clubs)
	scopeA := NewScope(clubA.ClubID)
	scopeB := NewScope(clubB.ClubID)

	inA, err := store.Create(ctx, scopeA, CreateAccountParams{Number: "1000", Name: "Kasse", Kind: AccountKindAsset})
	require.NoError(t, err)
	require.Equal(t, clubA.ClubID, inA.ClubID)
	require.True(t, inA.Balance.IsZero())

	_, err = store.Get(ctx, scopeB, inA.AccountID)
	require.ErrorIs(t, err, ErrAccountNotFound)

	_, err = store.AdjustBalance(ctx, scopeB, inA.AccountID, decimal.NewFromInt(100))
	require.ErrorIs(t, err, ErrAccountNotFound)

	listB, err := store.List(ctx, scopeB, nil)
	require.NoError(t, err)
	require.Empty(t, listB)
}

func TestLedgerStoreBalancesAreExact(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	clubs, err := NewClubStore(pool)
	require.NoError(t, err)
	store, err := NewLedgerStore(pool)
	require.NoError(t, err)

	club, err := clubs.Create(ctx, CreateClubParams{Slug: "sv-kasse", Name: "SV Kasse", TierID: "pro"})
	require.NoError(t, err)
	scope := NewScope(club.ClubID)

	account, err := store.Create(ctx, scope, CreateAccountParams{Number: "1200", Name: "Bank", Kind: AccountKindAsset})
	require.NoError(t, err)

	// 0.1 + 0.2 must come back as exactly 0.30.
	_, err = store.AdjustBalance(ctx, scope, account.AccountID, decimal.RequireFromString("0.10"))
	require.NoError(t, err)
	updated, err := store.AdjustBalance(ctx, scope, account.AccountID, decimal.RequireFromString("0.20"))
	require.NoError(t, err)
	require.True(t, updated.Balance.Equal(decimal.RequireFromString("0.30")), "got %s", updated.Balance)
}

func TestLedgerStoreSummaryAndSEPAInput(t *testing.T) {
	pool, cleanup := mustTestPool(t)
	defer cleanup()

	ctx := context.Background()
	clubs, err := NewClubStore(pool)
	require.NoError(t, err)
	store, err := NewLedgerStore(pool)
	require.NoError(t, err)

	club, err := clubs.Create(ctx, CreateClubParams{Slug: "tc-report", Name: "TC Report", TierID: "enterprise"})
	require.NoError(t, err)
	scope := NewScope(club.ClubID)

	iban := "DE89370400440532013000"
	bank, err := store.Create(ctx, scope, CreateAccountParams{Number: "1200", Name: "Bank", Kind: AccountKindAsset, IBAN: &iban})
	require.NoError(t, err)
	_, err = store.Create(ctx, scope, CreateAccountParams{Number: "4000", Name: "Beiträge", Kind: AccountKindIncome})
	require.NoError(t, err)
	_, err = store.Create(ctx, scope, CreateAccountParams{Number: "6000", Name: "Miete", Kind: AccountKindExpense})
	require.NoError(t, err)

	_, err = store.AdjustBalance(ctx, scope, bank.AccountID, decimal.RequireFromString("1500.50"))
	require.NoError(t, err)

	summaries, err := store.SummarizeByKind(ctx, scope)
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	require.Equal(t, AccountKindAsset, summaries[0].Kind)
	require.Equal(t, 1, summaries[0].Accounts)
	require.True(t, summaries[0].Total.Equal(decimal.RequireFromString("1500.50")))

	withIBAN, err := store.ListWithIBAN(ctx, scope)
	require.NoError(t, err)
	require.Len(t, withIBAN, 1)
	require.Equal(t, bank.AccountID, withIBAN[0].AccountID)

	duplicate := CreateAccountParams{Number: "1200", Name: "Dup", Kind: AccountKindAsset}
	_, err = store.Create(ctx, scope, duplicate)
	require.ErrorIs(t, err, ErrAccountConflict)
}
