package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clubstack/clubstack/domains/members/be/service"
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
	createOperation operation = "membersCreate"
	importOperation operation = "membersImport"
	listOperation   operation = "membersList"
	getOperation    operation = "membersGet"
	updateOperation operation = "membersUpdate"
	deleteOperation operation = "membersDelete"
	eraseOperation  operation = "membersErase"
)

// Handler wires the members service to the HTTP surface.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("members service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

type memberPayload struct {
	MemberNo  string  `json:"memberNo"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     *string `json:"email"`
	JoinedOn  *string `json:"joinedOn"`
}

type updateMemberRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Email     *string `json:"email"`
	JoinedOn  *string `json:"joinedOn"`
}

type importRequest struct {
	Members []memberPayload `json:"members"`
}

type memberResponse struct {
	ID        string  `json:"id"`
	MemberNo  string  `json:"memberNo"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     *string `json:"email,omitempty"`
	JoinedOn  *string `json:"joinedOn,omitempty"`
	Erased    bool    `json:"erased"`
}

type listResponse struct {
	Items      []memberResponse `json:"items"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalItems int              `json:"totalItems"`
	TotalPages int              `json:"totalPages"`
}

const joinedOnLayout = "2006-01-02"

// Create adds a single registry entry to the current club.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body memberPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, "Invalid request body", "request body must be valid JSON", problemTypeValidation, http.StatusBadRequest, nil)
		return
	}

	input, ok := h.toCreateInput(w, body)
	if !ok {
		return
	}

	created, err := h.svc.Create(r.Context(), input)
	if err != nil {
		h.respondError(r.Context(), w, err, createOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, toMemberResponse(created))
}

// Import bulk-creates registry entries; the batch is atomic.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	var body importRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, "Invalid request body", "request body must be valid JSON", problemTypeValidation, http.StatusBadRequest, nil)
		return
	}

	inputs := make([]service.CreateInput, 0, len(body.Members))
	for _, payload := range body.Members {
		input, ok := h.toCreateInput(w, payload)
		if !ok {
			return
		}
		inputs = append(inputs, input)
	}

	members, err := h.svc.Import(r.Context(), inputs)
	if err != nil {
		h.respondError(r.Context(), w, err, importOperation)
		return
	}

	items := make([]memberResponse, 0, len(members))
	for _, member := range members {
		items = append(items, toMemberResponse(member))
	}

	httpapi.WriteJSON(w, http.StatusCreated, items)
}

// List returns a page of the current club's registry.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	opts := service.ListOptions{}

	query := r.URL.Query()
	if raw := query.Get("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			opts.Page = page
		}
	}
	if raw := query.Get("pageSize"); raw != "" {
		if pageSize, err := strconv.Atoi(raw); err == nil {
			opts.PageSize = pageSize
		}
	}
	if raw := strings.TrimSpace(query.Get("lastName")); raw != "" {
		opts.LastName = &raw
	}

	result, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.respondError(r.Context(), w, err, listOperation)
		return
	}

	items := make([]memberResponse, 0, len(result.Members))
	for _, member := range result.Members {
		items = append(items, toMemberResponse(member))
	}

	httpapi.WriteJSON(w, http.StatusOK, listResponse{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

// Get returns a single registry entry.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	memberID, ok := h.pathMemberID(w, r)
	if !ok {
		return
	}

	member, err := h.svc.Get(r.Context(), memberID)
	if err != nil {
		h.respondError(r.Context(), w, err, getOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toMemberResponse(member))
}

// Update patches a registry entry.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	memberID, ok := h.pathMemberID(w, r)
	if !ok {
		return
	}

	var body updateMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, "Invalid request body", "request body must be valid JSON", problemTypeValidation, http.StatusBadRequest, nil)
		return
	}

	joinedOn, ok := h.parseJoinedOn(w, body.JoinedOn)
	if !ok {
		return
	}

	member, err := h.svc.Update(r.Context(), memberID, service.UpdateInput{
		FirstName: body.FirstName,
		LastName:  body.LastName,
		Email:     body.Email,
		JoinedOn:  joinedOn,
	})
	if err != nil {
		h.respondError(r.Context(), w, err, updateOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toMemberResponse(member))
}

// Delete removes a registry entry.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	memberID, ok := h.pathMemberID(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), memberID); err != nil {
		h.respondError(r.Context(), w, err, deleteOperation)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Erase blanks a member's personal data. Allowed even while the club is
// deactivated; data-protection duties do not pause with the subscription.
func (h *Handler) Erase(w http.ResponseWriter, r *http.Request) {
	memberID, ok := h.pathMemberID(w, r)
	if !ok {
		return
	}

	member, err := h.svc.Erase(r.Context(), memberID)
	if err != nil {
		h.respondError(r.Context(), w, err, eraseOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toMemberResponse(member))
}

func (h *Handler) toCreateInput(w http.ResponseWriter, payload memberPayload) (service.CreateInput, bool) {
	joinedOn, ok := h.parseJoinedOn(w, payload.JoinedOn)
	if !ok {
		return service.CreateInput{}, false
	}

	return service.CreateInput{
		MemberNo:  payload.MemberNo,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		JoinedOn:  joinedOn,
	}, true
}

func (h *Handler) parseJoinedOn(w http.ResponseWriter, raw *string) (*time.Time, bool) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil, true
	}

	parsed, err := time.Parse(joinedOnLayout, strings.TrimSpace(*raw))
	if err != nil {
		h.writeProblem(w, "Validation failed", "joinedOn must be formatted as YYYY-MM-DD", problemTypeValidation, http.StatusBadRequest, nil)
		return nil, false
	}
	return &parsed, true
}

func (h *Handler) pathMemberID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "memberId")
	memberID, err := uuid.Parse(raw)
	if err != nil {
		h.writeProblem(w, "Validation failed", "memberId must be a valid UUID", problemTypeValidation, http.StatusBadRequest, nil)
		return uuid.Nil, false
	}
	return memberID, true
}

func toMemberResponse(member service.Member) memberResponse {
	response := memberResponse{
		ID:        member.ID.String(),
		MemberNo:  member.MemberNo,
		FirstName: member.FirstName,
		LastName:  member.LastName,
		Email:     member.Email,
		Erased:    member.Erased,
	}
	if member.JoinedOn != nil {
		joined := member.JoinedOn.Format(joinedOnLayout)
		response.JoinedOn = &joined
	}
	return response
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
		logger.Error("members operation failed", append(logFields, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("members resource not found", append(logFields, zap.Error(err))...)
	default:
		logger.Warn("members request rejected", append(logFields, zap.Error(err))...)
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
			"member not found",
			problemTypeNotFound,
			nil
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict,
			"Conflict",
			"member number already in use",
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
