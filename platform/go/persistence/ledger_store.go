package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const LedgerAccountsTable = "ledger_accounts"

// Ledger account kinds, following a minimal chart-of-accounts split.
const (
	AccountKindAsset   = "ASSET"
	AccountKindIncome  = "INCOME"
	AccountKindExpense = "EXPENSE"
)

// LedgerAccount is a club-scoped bookkeeping account. Balances are exact
// decimals; float64 never touches money.
type LedgerAccount struct {
	AccountID uuid.UUID       `db:"account_id"`
	ClubID    uuid.UUID       `db:"club_id"`
	Number    string          `db:"number"`
	Name      string          `db:"name"`
	Kind      string          `db:"kind"`
	Currency  string          `db:"currency"`
	Balance   decimal.Decimal `db:"balance"`
	IBAN      *string         `db:"iban"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

var (
	// ErrAccountNotFound indicates a missing account inside the caller's club.
	ErrAccountNotFound = errors.New("ledger account not found")
	// ErrAccountConflict indicates a duplicated account number within the club.
	ErrAccountConflict = errors.New("ledger account conflict")
)

// LedgerStore exposes persistence helpers for the ledger_accounts table.
// Like MemberStore, every query routes through the caller's Scope.
type LedgerStore struct {
	pool *pgxpool.Pool
}

// NewLedgerStore returns a store instance; assumes migrations already created the table.
func NewLedgerStore(pool *pgxpool.Pool) (*LedgerStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &LedgerStore{pool: pool}, nil
}

// CreateAccountParams captures the fields required to insert an account.
type CreateAccountParams struct {
	Number   string
	Name     string
	Kind     string
	Currency string
	IBAN     *string
}

// Create inserts an account into the scope's club with a zero opening balance.
func (s *LedgerStore) Create(ctx context.Context, scope Scope, params CreateAccountParams) (LedgerAccount, error) {
	currency := strings.ToUpper(strings.TrimSpace(params.Currency))
	if currency == "" {
		currency = "EUR"
	}

	values := scope.Create(KindLedgerAccounts, map[string]any{
		"account_id": uuid.New(),
		"number":     strings.TrimSpace(params.Number),
		"name":       strings.TrimSpace(params.Name),
		"kind":       params.Kind,
		"currency":   currency,
		"balance":    decimal.Zero,
		"iban":       params.IBAN,
	})

	columns, placeholders, args := buildInsert(values)
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (%s) VALUES (%s)
        RETURNING account_id, club_id, number, name, kind, currency, balance, iban, created_at, updated_at
    `, LedgerAccountsTable, columns, placeholders), args...)

	account, err := scanLedgerAccount(row)
	if err != nil {
		if isUniqueViolation(err) {
			return LedgerAccount{}, ErrAccountConflict
		}
		return LedgerAccount{}, err
	}

	return account, nil
}

// Get returns a single account visible to the scope.
func (s *LedgerStore) Get(ctx context.Context, scope Scope, accountID uuid.UUID) (LedgerAccount, error) {
	filter := scope.Read(KindLedgerAccounts, map[string]any{"account_id": accountID})
	whereSQL, args := buildWhere(filter, 1)

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT account_id, club_id, number, name, kind, currency, balance, iban, created_at, updated_at
        FROM %s WHERE %s
    `, LedgerAccountsTable, whereSQL), args...)

	account, err := scanLedgerAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LedgerAccount{}, ErrAccountNotFound
		}
		return LedgerAccount{}, err
	}

	return account, nil
}

// List returns the scope's accounts ordered by account number.
func (s *LedgerStore) List(ctx context.Context, scope Scope, kind *string) ([]LedgerAccount, error) {
	rawFilter := map[string]any{}
	if kind != nil && *kind != "" {
		rawFilter["kind"] = *kind
	}
	filter := scope.Read(KindLedgerAccounts, rawFilter)
	whereSQL, args := buildWhere(filter, 1)

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT account_id, club_id, number, name, kind, currency, balance, iban, created_at, updated_at
        FROM %s WHERE %s
        ORDER BY number ASC
    `, LedgerAccountsTable, whereSQL), args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger accounts: %w", err)
	}
	defer rows.Close()

	accounts := []LedgerAccount{}
	for rows.Next() {
		account, scanErr := scanLedgerAccount(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan ledger account: %w", scanErr)
		}
		accounts = append(accounts, account)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger accounts: %w", err)
	}

	return accounts, nil
}

// AdjustBalance applies a signed delta to an account balance inside the scope.
func (s *LedgerStore) AdjustBalance(ctx context.Context, scope Scope, accountID uuid.UUID, delta decimal.Decimal) (LedgerAccount, error) {
	filter := scope.Mutate(KindLedgerAccounts, map[string]any{"account_id": accountID})
	whereSQL, whereArgs := buildWhere(filter, 2)
	args := append([]any{delta}, whereArgs...)

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s SET balance = balance + $1, updated_at = NOW()
        WHERE %s
        RETURNING account_id, club_id, number, name, kind, currency, balance, iban, created_at, updated_at
    `, LedgerAccountsTable, whereSQL), args...)

	account, err := scanLedgerAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return LedgerAccount{}, ErrAccountNotFound
		}
		return LedgerAccount{}, err
	}

	return account, nil
}

// KindSummary is one aggregate line of the finance report.
type KindSummary struct {
	Kind     string
	Accounts int
	Total    decimal.Decimal
}

// SummarizeByKind aggregates balances per account kind for the scope's club.
func (s *LedgerStore) SummarizeByKind(ctx context.Context, scope Scope) ([]KindSummary, error) {
	filter := scope.Read(KindLedgerAccounts, nil)
	whereSQL, args := buildWhere(filter, 1)

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT kind, COUNT(*), COALESCE(SUM(balance), 0)
        FROM %s WHERE %s
        GROUP BY kind
        ORDER BY kind ASC
    `, LedgerAccountsTable, whereSQL), args...)
	if err != nil {
		return nil, fmt.Errorf("summarize ledger: %w", err)
	}
	defer rows.Close()

	summaries := []KindSummary{}
	for rows.Next() {
		var summary KindSummary
		if err := rows.Scan(&summary.Kind, &summary.Accounts, &summary.Total); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		summaries = append(summaries, summary)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}

	return summaries, nil
}

// ListWithIBAN returns the scope's accounts carrying a bank identity, which is
// the input set for SEPA export generation.
func (s *LedgerStore) ListWithIBAN(ctx context.Context, scope Scope) ([]LedgerAccount, error) {
	filter := scope.Read(KindLedgerAccounts, nil)
	whereSQL, args := buildWhere(filter, 1)

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT account_id, club_id, number, name, kind, currency, balance, iban, created_at, updated_at
        FROM %s WHERE %s AND iban IS NOT NULL
        ORDER BY number ASC
    `, LedgerAccountsTable, whereSQL), args...)
	if err != nil {
		return nil, fmt.Errorf("list sepa accounts: %w", err)
	}
	defer rows.Close()

	accounts := []LedgerAccount{}
	for rows.Next() {
		account, scanErr := scanLedgerAccount(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan ledger account: %w", scanErr)
		}
		accounts = append(accounts, account)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger accounts: %w", err)
	}

	return accounts, nil
}

func scanLedgerAccount(row pgx.Row) (LedgerAccount, error) {
	var account LedgerAccount
	err := row.Scan(
		&account.AccountID,
		&account.ClubID,
		&account.Number,
		&account.Name,
		&account.Kind,
		&account.Currency,
		&account.Balance,
		&account.IBAN,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return LedgerAccount{}, err
	}
	return account, nil
}
