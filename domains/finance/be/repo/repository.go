package repo

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubstack/clubstack/platform/go/persistence"
)

// Repository defines the persistence operations required by the finance
// service. Every call carries the scope of the resolved club.
type Repository interface {
	CreateAccount(ctx context.Context, scope persistence.Scope, params persistence.CreateAccountParams) (persistence.LedgerAccount, error)
	GetAccount(ctx context.Context, scope persistence.Scope, accountID uuid.UUID) (persistence.LedgerAccount, error)
	ListAccounts(ctx context.Context, scope persistence.Scope, kind *string) ([]persistence.LedgerAccount, error)
	AdjustBalance(ctx context.Context, scope persistence.Scope, accountID uuid.UUID, delta decimal.Decimal) (persistence.LedgerAccount, error)
	SummarizeByKind(ctx context.Context, scope persistence.Scope) ([]persistence.KindSummary, error)
	ListWithIBAN(ctx context.Context, scope persistence.Scope) ([]persistence.LedgerAccount, error)
}

type postgresRepository struct {
	store *persistence.LedgerStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.LedgerStore) Repository {
	if store == nil {
		panic("ledger store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) CreateAccount(ctx context.Context, scope persistence.Scope, params persistence.CreateAccountParams) (persistence.LedgerAccount, error) {
	return r.store.Create(ctx, scope, params)
}

func (r *postgresRepository) GetAccount(ctx context.Context, scope persistence.Scope, accountID uuid.UUID) (persistence.LedgerAccount, error) {
	return r.store.Get(ctx, scope, accountID)
}

func (r *postgresRepository) ListAccounts(ctx context.Context, scope persistence.Scope, kind *string) ([]persistence.LedgerAccount, error) {
	return r.store.List(ctx, scope, kind)
}

func (r *postgresRepository) AdjustBalance(ctx context.Context, scope persistence.Scope, accountID uuid.UUID, delta decimal.Decimal) (persistence.LedgerAccount, error) {
	return r.store.AdjustBalance(ctx, scope, accountID, delta)
}

func (r *postgresRepository) SummarizeByKind(ctx context.Context, scope persistence.Scope) ([]persistence.KindSummary, error) {
	return r.store.SummarizeByKind(ctx, scope)
}

func (r *postgresRepository) ListWithIBAN(ctx context.Context, scope persistence.Scope) ([]persistence.LedgerAccount, error) {
	return r.store.ListWithIBAN(ctx, scope)
}
