package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/clubstack/clubstack/domains/finance/be/service"
	"github.com/clubstack/clubstack/platform/go/httpapi"
	platformlogging "github.com/clubstack/clubstack/platform/go/logging"
)

const (
	problemTypeValidation = "https://clubstack.app/problems/validation-error"
	problemTypeNotFound   = "https://clubstack.app/problems/not-found"
	problemTypeConflict   = "https://clubstack.app/problems/conflict"
	problemTypeInternal   = "https://clubstack.app/problems/internal-error"
)

type operation string

const (
	createAccountOperation operation = "financeCreateAccount"
	getAccountOperation    operation = "financeGetAccount"
	listAccountsOperation  operation = "financeListAccounts"
	adjustOperation        operation = "financeAdjustBalance"
	reportOperation        operation = "financeSummaryReport"
	sepaExportOperation    operation = "financeSEPAExport"
)

// Handler wires the finance service to the HTTP surface.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("finance service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

type createAccountRequest struct {
	Number   string  `json:"number"`
	Name     string  `json:"name"`
	Kind     string  `json:"kind"`
	Currency string  `json:"currency"`
	IBAN     *string `json:"iban"`
}

type adjustBalanceRequest struct {
	Amount string `json:"amount"`
}

type accountResponse struct {
	ID        string  `json:"id"`
	Number    string  `json:"number"`
	Name      string  `json:"name"`
	Kind      string  `json:"kind"`
	Currency  string  `json:"currency"`
	Balance   string  `json:"balance"`
	IBAN      *string `json:"iban,omitempty"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt string  `json:"updatedAt"`
}

type reportLineResponse struct {
	Kind     string `json:"kind"`
	Accounts int    `json:"accounts"`
	Total    string `json:"total"`
}

type reportResponse struct {
	GeneratedAt time.Time            `json:"generatedAt"`
	Lines       []reportLineResponse `json:"lines"`
	NetPosition string               `json:"netPosition"`
}

type sepaTransactionResponse struct {
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	IBAN          string `json:"iban"`
	Currency      string `json:"currency"`
	Amount        string `json:"amount"`
}

type sepaExportResponse struct {
	MessageID    string                    `json:"messageId"`
	CreatedAt    time.Time                 `json:"createdAt"`
	Transactions []sepaTransactionResponse `json:"transactions"`
}

// CreateAccount opens a ledger account in the current club.
func (h *Handler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var body createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, "Invalid request body", "request body must be valid JSON", problemTypeValidation, http.StatusBadRequest, nil)
		return
	}

	created, err := h.svc.CreateAccount(r.Context(), service.CreateAccountInput{
		Number:   body.Number,
		Name:     body.Name,
		Kind:     strings.ToUpper(strings.TrimSpace(body.Kind)),
		Currency: body.Currency,
		IBAN:     body.IBAN,
	})
	if err != nil {
		h.respondError(r.Context(), w, err, createAccountOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, toAccountResponse(created))
}

// GetAccount returns a single ledger account.
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.pathAccountID(w, r)
	if !ok {
		return
	}

	account, err := h.svc.GetAccount(r.Context(), accountID)
	if err != nil {
		h.respondError(r.Context(), w, err, getAccountOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toAccountResponse(account))
}

// ListAccounts returns the current club's chart of accounts.
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	var kind *string
	if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
		kind = &raw
	}

	accounts, err := h.svc.ListAccounts(r.Context(), kind)
	if err != nil {
		h.respondError(r.Context(), w, err, listAccountsOperation)
		return
	}

	items := make([]accountResponse, 0, len(accounts))
	for _, account := range accounts {
		items = append(items, toAccountResponse(account))
	}

	httpapi.WriteJSON(w, http.StatusOK, items)
}

// AdjustBalance applies a signed decimal delta to an account.
func (h *Handler) AdjustBalance(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.pathAccountID(w, r)
	if !ok {
		return
	}

	var body adjustBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, "Invalid request body", "request body must be valid JSON", problemTypeValidation, http.StatusBadRequest, nil)
		return
	}

	delta, err := decimal.NewFromString(strings.TrimSpace(body.Amount))
	if err != nil {
		h.writeProblem(w, "Validation failed", "amount must be a decimal string", problemTypeValidation, http.StatusBadRequest, nil)
		return
	}

	account, err := h.svc.AdjustBalance(r.Context(), accountID, delta)
	if err != nil {
		h.respondError(r.Context(), w, err, adjustOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toAccountResponse(account))
}

// SummaryReport returns the aggregate finance report. The route is reachable
// only on tiers with reporting enabled.
func (h *Handler) SummaryReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.SummaryReport(r.Context())
	if err != nil {
		h.respondError(r.Context(), w, err, reportOperation)
		return
	}

	lines := make([]reportLineResponse, 0, len(report.Lines))
	for _, line := range report.Lines {
		lines = append(lines, reportLineResponse{
			Kind:     line.Kind,
			Accounts: line.Accounts,
			Total:    line.Total.StringFixed(2),
		})
	}

	httpapi.WriteJSON(w, http.StatusOK, reportResponse{
		GeneratedAt: report.GeneratedAt,
		Lines:       lines,
		NetPosition: report.NetPosition.StringFixed(2),
	})
}

// SEPAExport builds an export batch from accounts with a bank identity. The
// route is reachable only on tiers with SEPA enabled.
func (h *Handler) SEPAExport(w http.ResponseWriter, r *http.Request) {
	export, err := h.svc.BuildSEPAExport(r.Context())
	if err != nil {
		h.respondError(r.Context(), w, err, sepaExportOperation)
		return
	}

	transactions := make([]sepaTransactionResponse, 0, len(export.Transactions))
	for _, tx := range export.Transactions {
		transactions = append(transactions, sepaTransactionResponse{
			AccountNumber: tx.AccountNumber,
			AccountName:   tx.AccountName,
			IBAN:          tx.IBAN,
			Currency:      tx.Currency,
			Amount:        tx.Amount.StringFixed(2),
		})
	}

	httpapi.WriteJSON(w, http.StatusCreated, sepaExportResponse{
		MessageID:    export.MessageID,
		CreatedAt:    export.CreatedAt,
		Transactions: transactions,
	})
}

func (h *Handler) pathAccountID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "accountId")
	accountID, err := uuid.Parse(raw)
	if err != nil {
		h.writeProblem(w, "Validation failed", "accountId must be a valid UUID", problemTypeValidation, http.StatusBadRequest, nil)
		return uuid.Nil, false
	}
	return accountID, true
}

func toAccountResponse(account service.Account) accountResponse {
	return accountResponse{
		ID:        account.ID.String(),
		Number:    account.Number,
		Name:      account.Name,
		Kind:      account.Kind,
		Currency:  account.Currency,
		Balance:   account.Balance.StringFixed(2),
		IBAN:      account.IBAN,
		CreatedAt: account.CreatedAt.Format(time.RFC3339),
		UpdatedAt: account.UpdatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, err error, op operation) {
	status, title, detail, problemType, fields := classifyError(err)

	logger := h.loggerFrom(ctx)
	logFields := []zap.Field{
		zap.String("operation", string(op)),
		zap.Int("status", status),
	}

	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("finance operation failed", append(logFields, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("finance resource not found", append(logFields, zap.Error(err))...)
	default:
		logger.Warn("finance request rejected", append(logFields, zap.Error(err))...)
	}

	h.writeProblem(w, title, detail, problemType, status, fields)
}

func classifyError(err error) (status int, title, detail, problemType string, fieldErrors service.FieldErrors) {
	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest,
			"Validation failed",
			"one or more fields are invalid",
			problemTypeValidation,
			validationErr.Fields
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound,
			"Resource not found",
			"ledger account not found",
			problemTypeNotFound,
			nil
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict,
			"Conflict",
			"account number already in use",
			problemTypeConflict,
			nil
	default:
		return http.StatusInternalServerError,
			"Internal server error",
			"an unexpected error occurred",
			problemTypeInternal,
			nil
	}
}

func (h *Handler) writeProblem(w http.ResponseWriter, title, detail, problemType string, status int, fieldErrors service.FieldErrors) {
	problem := httpapi.ProblemDetails{
		Title:  title,
		Status: status,
	}
	if detail != "" {
		problem.Detail = &detail
	}
	if problemType != "" {
		problem.Type = &problemType
	}
	if len(fieldErrors) > 0 {
		copied := make(map[string][]string, len(fieldErrors))
		for field, messages := range fieldErrors {
			copied[field] = append([]string(nil), messages...)
		}
		problem.Errors = &copied
	}

	httpapi.WriteProblem(w, problem)
}

func (h *Handler) loggerFrom(ctx context.Context) *zap.Logger {
	if logger, ok := platformlogging.FromContext(ctx); ok {
		return logger
	}
	return h.logger
}
