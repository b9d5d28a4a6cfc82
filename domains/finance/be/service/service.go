package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/clubstack/clubstack/domains/finance/be/repo"
	"github.com/clubstack/clubstack/platform/go/persistence"
	"github.com/clubstack/clubstack/platform/go/tenant"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Domain sentinel errors.
var (
	ErrNotFound = errors.New("ledger account not found")
	ErrConflict = errors.New("ledger account conflict")
)

// Account represents the domain view of a ledger account.
type Account struct {
	ID        uuid.UUID
	Number    string
	Name      string
	Kind      string
	Currency  string
	Balance   decimal.Decimal
	IBAN      *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateAccountInput represents the payload to open a ledger account.
type CreateAccountInput struct {
	Number   string
	Name     string
	Kind     string
	Currency string
	IBAN     *string
}

// ReportLine is one aggregate row of the finance summary report.
type ReportLine struct {
	Kind     string
	Accounts int
	Total    decimal.Decimal
}

// Report is the tier-gated finance summary.
type Report struct {
	GeneratedAt time.Time
	Lines       []ReportLine
	NetPosition decimal.Decimal
}

// SEPATransaction is one entry of a SEPA export batch.
type SEPATransaction struct {
	AccountNumber string
	AccountName   string
	IBAN          string
	Currency      string
	Amount        decimal.Decimal
}

// SEPAExport is the tier-gated export document built from accounts that carry
// a bank identity.
type SEPAExport struct {
	MessageID    string
	CreatedAt    time.Time
	Transactions []SEPATransaction
}

// Service defines the business operations for the finance domain. All
// operations run inside the resolved club's scope.
type Service interface {
	CreateAccount(ctx context.Context, input CreateAccountInput) (Account, error)
	GetAccount(ctx context.Context, accountID uuid.UUID) (Account, error)
	ListAccounts(ctx context.Context, kind *string) ([]Account, error)
	AdjustBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) (Account, error)
	SummaryReport(ctx context.Context) (Report, error)
	BuildSEPAExport(ctx context.Context) (SEPAExport, error)
}

type service struct {
	repo repo.Repository
}

// New constructs a finance Service instance backed by the provided repository.
func New(r repo.Repository) Service {
	if r == nil {
		panic("finance repository is required")
	}
	return &service{repo: r}
}

var validKinds = map[string]struct{}{
	persistence.AccountKindAsset:   {},
	persistence.AccountKindIncome:  {},
	persistence.AccountKindExpense: {},
}

func (s *service) CreateAccount(ctx context.Context, input CreateAccountInput) (Account, error) {
	scope, err := requireScope(ctx)
	if err != nil {
		return Account{}, err
	}

	fieldErrors := FieldErrors{}
	if strings.TrimSpace(input.Number) == "" {
		fieldErrors.add("number", "number is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		fieldErrors.add("name", "name is required")
	}
	if _, ok := validKinds[input.Kind]; !ok {
		fieldErrors.add("kind", "kind must be one of ASSET, INCOME, EXPENSE")
	}
	if input.IBAN != nil {
		iban := strings.ToUpper(strings.ReplaceAll(*input.IBAN, " ", ""))
		if len(iban) < 15 || len(iban) > 34 {
			fieldErrors.add("iban", "iban length is invalid")
		} else {
			input.IBAN = &iban
		}
	}

	if len(fieldErrors) > 0 {
		return Account{}, &ValidationError{Fields: fieldErrors}
	}

	record, err := s.repo.CreateAccount(ctx, scope, persistence.CreateAccountParams{
		Number:   input.Number,
		Name:     input.Name,
		Kind:     input.Kind,
		Currency: input.Currency,
		IBAN:     input.IBAN,
	})
	if err != nil {
		return Account{}, mapPersistenceError(err)
	}

	return mapAccount(record), nil
}

func (s *service) GetAccount(ctx context.Context, accountID uuid.UUID) (Account, error) {
	scope, err := requireScope(ctx)
	if err != nil {
		return Account{}, err
	}

	record, err := s.repo.GetAccount(ctx, scope, accountID)
	if err != nil {
		return Account{}, mapPersistenceError(err)
	}

	return mapAccount(record), nil
}

func (s *service) ListAccounts(ctx context.Context, kind *string) ([]Account, error) {
	scope, err := requireScope(ctx)
	if err != nil {
		return nil, err
	}

	if kind != nil {
		upper := strings.ToUpper(strings.TrimSpace(*kind))
		if _, ok := validKinds[upper]; !ok {
			return nil, newValidationError(map[string]string{"kind": "kind must be one of ASSET, INCOME, EXPENSE"})
		}
		kind = &upper
	}

	records, err := s.repo.ListAccounts(ctx, scope, kind)
	if err != nil {
		return nil, err
	}

	accounts := make([]Account, 0, len(records))
	for _, record := range records {
		accounts = append(accounts, mapAccount(record))
	}
	return accounts, nil
}

func (s *service) AdjustBalance(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) (Account, error) {
	scope, err := requireScope(ctx)
	if err != nil {
		return Account{}, err
	}

	if delta.IsZero() {
		return Account{}, newValidationError(map[string]string{"amount": "amount must be non-zero"})
	}

	record, err := s.repo.AdjustBalance(ctx, scope, accountID, delta)
	if err != nil {
		return Account{}, mapPersistenceError(err)
	}

	return mapAccount(record), nil
}

// SummaryReport aggregates balances by account kind. Income minus expense
// gives the net position.
func (s *service) SummaryReport(ctx context.Context) (Report, error) {
	scope, err := requireScope(ctx)
	if err != nil {
		return Report{}, err
	}

	summaries, err := s.repo.SummarizeByKind(ctx, scope)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		GeneratedAt: time.Now().UTC(),
		Lines:       make([]ReportLine, 0, len(summaries)),
		NetPosition: decimal.Zero,
	}

	for _, summary := range summaries {
		report.Lines = append(report.Lines, ReportLine{
			Kind:     summary.Kind,
			Accounts: summary.Accounts,
			Total:    summary.Total,
		})
		switch summary.Kind {
		case persistence.AccountKindIncome:
			report.NetPosition = report.NetPosition.Add(summary.Total)
		case persistence.AccountKindExpense:
			report.NetPosition = report.NetPosition.Sub(summary.Total)
		}
	}

	return report, nil
}

// BuildSEPAExport collects all accounts with a bank identity into one export
// batch. An empty batch is valid; the club simply has nothing to submit.
func (s *service) BuildSEPAExport(ctx context.Context) (SEPAExport, error) {
	scope, err := requireScope(ctx)
	if err != nil {
		return SEPAExport{}, err
	}

	records, err := s.repo.ListWithIBAN(ctx, scope)
	if err != nil {
		return SEPAExport{}, err
	}

	export := SEPAExport{
		MessageID:    uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Transactions: make([]SEPATransaction, 0, len(records)),
	}

	for _, record := range records {
		if record.IBAN == nil {
			continue
		}
		export.Transactions = append(export.Transactions, SEPATransaction{
			AccountNumber: record.Number,
			AccountName:   record.Name,
			IBAN:          *record.IBAN,
			Currency:      record.Currency,
			Amount:        record.Balance,
		})
	}

	return export, nil
}

func requireScope(ctx context.Context) (persistence.Scope, error) {
	tc, ok := tenant.FromContext(ctx)
	if !ok || !tc.HasClub() {
		return persistence.Scope{}, errors.New("club context missing from request")
	}
	return persistence.NewScope(tc.ClubID), nil
}

func mapAccount(record persistence.LedgerAccount) Account {
	return Account{
		ID:        record.AccountID,
		Number:    record.Number,
		Name:      record.Name,
		Kind:      record.Kind,
		Currency:  record.Currency,
		Balance:   record.Balance,
		IBAN:      record.IBAN,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrAccountNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrAccountConflict):
		return ErrConflict
	default:
		return err
	}
}

func newValidationError(fields map[string]string) error {
	fe := FieldErrors{}
	for key, message := range fields {
		fe.add(key, message)
	}
	return &ValidationError{Fields: fe}
}

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}
