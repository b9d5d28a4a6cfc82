package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/clubstack/clubstack/platform/go/persistence"
	"github.com/clubstack/clubstack/platform/go/tenant"
)

type mockRepository struct {
	createAccountFunc func(ctx context.Context, scope persistence.Scope, params persistence.CreateAccountParams) (persistence.LedgerAccount, error)
	getAccountFunc    func(ctx context.Context, scope persistence.Scope, accountID uuid.UUID) (persistence.LedgerAccount, error)
	listAccountsFunc  func(ctx context.Context, scope persistence.Scope, kind *string) ([]persistence.LedgerAccount, error)
	adjustBalanceFunc func(ctx context.Context, scope persistence.Scope, accountID uuid.UUID, delta decimal.Decimal) (persistence.LedgerAccount, error)
	summarizeFunc     func(ctx context.Context, scope persistence.Scope) ([]persistence.KindSummary, error)
	listWithIBANFunc  func(ctx context.Context, scope persistence.Scope) ([]persistence.LedgerAccount, error)
}

func (m *mockRepository) CreateAccount(ctx context.Context, scope persistence.Scope, params persistence.CreateAccountParams) (persistence.LedgerAccount, error) {
	return m.createAccountFunc(ctx, scope, params)
}

func (m *mockRepository) GetAccount(ctx context.Context, scope persistence.Scope, accountID uuid.UUID) (persistence.LedgerAccount, error) {
	return m.getAccountFunc(ctx, scope, accountID)
}

func (m *mockRepository) ListAccounts(ctx context.Context, scope persistence.Scope, kind *string) ([]persistence.LedgerAccount, error) {
	return m.listAccountsFunc(ctx, scope, kind)
}

func (m *mockRepository) AdjustBalance(ctx context.Context, scope persistence.Scope, accountID uuid.UUID, delta decimal.Decimal) (persistence.LedgerAccount, error) {
	return m.adjustBalanceFunc(ctx, scope, accountID, delta)
}

func (m *mockRepository) SummarizeByKind(ctx context.Context, scope persistence.Scope) ([]persistence.KindSummary, error) {
	return m.summarizeFunc(ctx, scope)
}

func (m *mockRepository) ListWithIBAN(ctx context.Context, scope persistence.Scope) ([]persistence.LedgerAccount, error) {
	return m.listWithIBANFunc(ctx, scope)
}

func scopedCtx(clubID uuid.UUID) context.Context {
	return tenant.WithContext(context.Background(), tenant.Context{
		UserID: uuid.New(),
		ClubID: clubID,
	})
}

func TestCreateAccountValidation(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{})
	shortIBAN := "DE123"

	_, err := svc.CreateAccount(scopedCtx(uuid.New()), CreateAccountInput{Kind: "SAVINGS", IBAN: &shortIBAN})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "number")
	require.Contains(t, validationErr.Fields, "name")
	require.Contains(t, validationErr.Fields, "kind")
	require.Contains(t, validationErr.Fields, "iban")
}

func TestCreateAccountNormalizesIBAN(t *testing.T) {
	t.Parallel()

	clubID := uuid.New()
	var captured persistence.CreateAccountParams
	repo := &mockRepository{
		createAccountFunc: func(_ context.Context, scope persistence.Scope, params persistence.CreateAccountParams) (persistence.LedgerAccount, error) {
			require.Equal(t, clubID, scope.ClubID)
			captured = params
			return persistence.LedgerAccount{AccountID: uuid.New(), Number: params.Number, IBAN: params.IBAN}, nil
		},
	}

	svc := New(repo)
	spacedIBAN := "de89 3704 0044 0532 0130 00"
	_, err := svc.CreateAccount(scopedCtx(clubID), CreateAccountInput{
		Number: "1200",
		Name:   "Bank",
		Kind:   persistence.AccountKindAsset,
		IBAN:   &spacedIBAN,
	})
	require.NoError(t, err)
	require.NotNil(t, captured.IBAN)
	require.Equal(t, "DE89370400440532013000", *captured.IBAN)
}

func TestAdjustBalanceRejectsZero(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{})
	_, err := svc.AdjustBalance(scopedCtx(uuid.New()), uuid.New(), decimal.Zero)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestSummaryReportComputesNetPosition(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{
		summarizeFunc: func(context.Context, persistence.Scope) ([]persistence.KindSummary, error) {
			return []persistence.KindSummary{
				{Kind: persistence.AccountKindAsset, Accounts: 2, Total: decimal.RequireFromString("5000.00")},
				{Kind: persistence.AccountKindExpense, Accounts: 1, Total: decimal.RequireFromString("800.25")},
				{Kind: persistence.AccountKindIncome, Accounts: 3, Total: decimal.RequireFromString("1200.75")},
			}, nil
		},
	}

	svc := New(repo)
	report, err := svc.SummaryReport(scopedCtx(uuid.New()))
	require.NoError(t, err)
	require.Len(t, report.Lines, 3)
	// Net position is income minus expense; assets do not enter.
	require.True(t, report.NetPosition.Equal(decimal.RequireFromString("400.50")), "got %s", report.NetPosition)
}

func TestBuildSEPAExport(t *testing.T) {
	t.Parallel()

	iban := "DE89370400440532013000"
	repo := &mockRepository{
		listWithIBANFunc: func(context.Context, persistence.Scope) ([]persistence.LedgerAccount, error) {
			return []persistence.LedgerAccount{
				{Number: "1200", Name: "Bank", IBAN: &iban, Currency: "EUR", Balance: decimal.RequireFromString("99.90")},
			}, nil
		},
	}

	svc := New(repo)
	export, err := svc.BuildSEPAExport(scopedCtx(uuid.New()))
	require.NoError(t, err)
	require.NotEmpty(t, export.MessageID)
	require.Len(t, export.Transactions, 1)
	require.Equal(t, iban, export.Transactions[0].IBAN)
}

func TestListAccountsRejectsUnknownKind(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{})
	kind := "CRYPTO"
	_, err := svc.ListAccounts(scopedCtx(uuid.New()), &kind)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestOperationsRequireClubContext(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{})

	_, err := svc.ListAccounts(context.Background(), nil)
	require.Error(t, err)
	_, err = svc.SummaryReport(context.Background())
	require.Error(t, err)
	_, err = svc.BuildSEPAExport(context.Background())
	require.Error(t, err)
}
