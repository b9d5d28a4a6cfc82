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

	"github.com/clubstack/clubstack/domains/clubs/be/service"
	"github.com/clubstack/clubstack/platform/go/httpapi"
	platformlogging "github.com/clubstack/clubstack/platform/go/logging"
)

const (
	problemTypeValidation = "https://clubstack.app/problems/validation-error"
	problemTypeNotFound   = "https://clubstack.app/problems/not-found"
	problemTypeConflict   = "https://clubstack.app/problems/conflict"
	problemTypeForbidden  = "https://clubstack.app/problems/forbidden"
	problemTypeInternal   = "https://clubstack.app/problems/internal-error"
)

type operation string

const (
	createOperation         operation = "clubsCreate"
	listOperation           operation = "clubsList"
	updateTierOperation     operation = "clubsUpdateTier"
	getSettingsOperation    operation = "clubsGetSettings"
	updateSettingsOperation operation = "clubsUpdateSettings"
	deactivateOperation     operation = "clubsDeactivate"
	reactivateOperation     operation = "clubsReactivate"
	listMembersOperation    operation = "clubsListMemberships"
	addMemberOperation      operation = "clubsAddMembership"
	updateRolesOperation    operation = "clubsUpdateMembershipRoles"
	removeMemberOperation   operation = "clubsRemoveMembership"
	transferOperation       operation = "clubsTransferOwnership"
)

// Handler wires the clubs service to the HTTP surface.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("clubs service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

type createClubRequest struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	TierID      string `json:"tierId"`
	OwnerUserID string `json:"ownerUserId"`
}

type updateTierRequest struct {
	TierID string `json:"tierId"`
}

type updateSettingsRequest struct {
	Name     *string         `json:"name"`
	Settings json.RawMessage `json:"settings"`
}

type addMembershipRequest struct {
	UserID string   `json:"userId"`
	Roles  []string `json:"roles"`
}

type updateRolesRequest struct {
	Roles []string `json:"roles"`
}

type transferOwnershipRequest struct {
	ToUserID string `json:"toUserId"`
}

type clubResponse struct {
	ID                  string          `json:"id"`
	Slug                string          `json:"slug"`
	Name                string          `json:"name"`
	TierID              string          `json:"tierId"`
	Settings            json.RawMessage `json:"settings"`
	Deactivated         bool            `json:"deactivated"`
	ScheduledDeletionAt *time.Time      `json:"scheduledDeletionAt,omitempty"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

type membershipResponse struct {
	UserID    string    `json:"userId"`
	Roles     []string  `json:"roles"`
	Since     time.Time `json:"since"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type listClubsResponse struct {
	Items      []clubResponse `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalItems int            `json:"totalItems"`
	TotalPages int            `json:"totalPages"`
}

// Create provisions a club with its founding owner. Super-admin only.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var body createClubRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, "Invalid request body", "request body must be valid JSON", problemTypeValidation, http.StatusBadRequest, nil)
		return
	}

	ownerID, err := uuid.Parse(body.OwnerUserID)
	if err != nil {
		h.writeProblem(w, "Validation failed", "ownerUserId must be a valid UUID", problemTypeValidation, http.StatusBadRequest, nil)
		return
	}

	created, err := h.svc.Create(r.Context(), service.CreateInput{
		Slug:        body.Slug,
		Name:        body.Name,
		TierID:      body.TierID,
		OwnerUserID: ownerID,
	})
	if err != nil {
		h.respondError(r.Context(), w, err, createOperation)
		return
	}

	w.Header().Set("Location", "/api/v1/clubs/"+created.Slug)
	httpapi.WriteJSON(w, http.StatusCreated, toClubResponse(created))
}

// List returns the platform club directory. Super-admin only.
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

	result, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.respondError(r.Context(), w, err, listOperation)
		return
	}

	items := make([]clubResponse, 0, len(result.Clubs))
	for _, club := range result.Clubs {
		items = append(items, toClubResponse(club))
	}

	httpapi.WriteJSON(w, http.StatusOK, listClubsResponse{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

// UpdateTier reassigns a club's tier. Super-admin only.
func (h *Handler) UpdateTier(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "clubSlug")

	var body updateTierRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, "Invalid request body", "request body must be valid JSON", problemTypeValidation, http.StatusBadRequest, nil)
		return
	}

	updated, err := h.svc.UpdateTier(r.Context(), slug, strings.TrimSpace(body.TierID))
	if err != nil {
		h.respondError(r.Context(), w, err, updateTierOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toClubResponse(updated))
}

// GetSettings returns the current club's profile and settings document.
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	club, err := h.svc.GetSettings(r.Context())
	if err != nil {
		h.respondError(r.Context(), w, err, getSettingsOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toClubResponse(club))
}

// UpdateSettings patches the current club's profile and settings document.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var body updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, "Invalid request body", "request body must be valid JSON", problemTypeValidation, http.StatusBadRequest, nil)
		return
	}

	club, err := h.svc.UpdateSettings(r.Context(), service.UpdateSettingsInput{
		Name:     body.Name,
		Settings: body.Settings,
	})
	if err != nil {
		h.respondError(r.Context(), w, err, updateSettingsOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toClubResponse(club))
}

// Deactivate puts the current club into the read-only deactivation window.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	club, err := h.svc.Deactivate(r.Context())
	if err != nil {
		h.respondError(r.Context(), w, err, deactivateOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toClubResponse(club))
}

// Reactivate lifts the deactivation window and cancels scheduled deletion.
func (h *Handler) Reactivate(w http.ResponseWriter, r *http.Request) {
	club, err := h.svc.Reactivate(r.Context())
	if err != nil {
		h.respondError(r.Context(), w, err, reactivateOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toClubResponse(club))
}

// ListMemberships returns the active memberships of the current club.
func (h *Handler) ListMemberships(w http.ResponseWriter, r *http.Request) {
	memberships, err := h.svc.ListMemberships(r.Context())
	if err != nil {
		h.respondError(r.Context(), w, err, listMembersOperation)
		return
	}

	items := make([]membershipResponse, 0, len(memberships))
	for _, membership := range memberships {
		items = append(items, toMembershipResponse(membership))
	}

	httpapi.WriteJSON(w, http.StatusOK, items)
}

// AddMembership links an existing platform account to the current club.
func (h *Handler) AddMembership(w http.ResponseWriter, r *http.Request) {
	var body addMembershipRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, "Invalid request body", "request body must be valid JSON", problemTypeValidation, http.StatusBadRequest, nil)
		return
	}

	userID, err := uuid.Parse(body.UserID)
	if err != nil {
		h.writeProblem(w, "Validation failed", "userId must be a valid UUID", problemTypeValidation, http.StatusBadRequest, nil)
		return
	}

	created, err := h.svc.AddMembership(r.Context(), service.AddMembershipInput{
		UserID: userID,
		Roles:  body.Roles,
	})
	if err != nil {
		h.respondError(r.Context(), w, err, addMemberOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, toMembershipResponse(created))
}

// UpdateMembershipRoles replaces a member's role set.
func (h *Handler) UpdateMembershipRoles(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	var body updateRolesRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, "Invalid request body", "request body must be valid JSON", problemTypeValidation, http.StatusBadRequest, nil)
		return
	}

	updated, err := h.svc.UpdateMembershipRoles(r.Context(), userID, body.Roles)
	if err != nil {
		h.respondError(r.Context(), w, err, updateRolesOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toMembershipResponse(updated))
}

// RemoveMembership detaches a member from the current club.
func (h *Handler) RemoveMembership(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	if err := h.svc.RemoveMembership(r.Context(), userID); err != nil {
		h.respondError(r.Context(), w, err, removeMemberOperation)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// TransferOwnership hands the OWNER role to another active member.
func (h *Handler) TransferOwnership(w http.ResponseWriter, r *http.Request) {
	var body transferOwnershipRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeProblem(w, "Invalid request body", "request body must be valid JSON", problemTypeValidation, http.StatusBadRequest, nil)
		return
	}

	toUserID, err := uuid.Parse(body.ToUserID)
	if err != nil {
		h.writeProblem(w, "Validation failed", "toUserId must be a valid UUID", problemTypeValidation, http.StatusBadRequest, nil)
		return
	}

	if err := h.svc.TransferOwnership(r.Context(), toUserID); err != nil {
		h.respondError(r.Context(), w, err, transferOperation)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "userId")
	userID, err := uuid.Parse(raw)
	if err != nil {
		h.writeProblem(w, "Validation failed", "userId must be a valid UUID", problemTypeValidation, http.StatusBadRequest, nil)
		return uuid.Nil, false
	}
	return userID, true
}

func toClubResponse(club service.Club) clubResponse {
	return clubResponse{
		ID:                  club.ID.String(),
		Slug:                club.Slug,
		Name:                club.Name,
		TierID:              club.TierID,
		Settings:            club.Settings,
		Deactivated:         club.Deactivated,
		ScheduledDeletionAt: club.ScheduledDeletionAt,
		CreatedAt:           club.CreatedAt,
		UpdatedAt:           club.UpdatedAt,
	}
}

func toMembershipResponse(membership service.Membership) membershipResponse {
	return membershipResponse{
		UserID:    membership.UserID.String(),
		Roles:     membership.Roles,
		Since:     membership.Since,
		UpdatedAt: membership.UpdatedAt,
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
		logger.Error("clubs operation failed", append(logFields, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("clubs resource not found", append(logFields, zap.Error(err))...)
	default:
		logger.Warn("clubs request rejected", append(logFields, zap.Error(err))...)
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
			"club or membership not found",
			problemTypeNotFound,
			nil
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict,
			"Conflict",
			"resource already exists",
			problemTypeConflict,
			nil
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden,
			"Forbidden",
			"operation not permitted",
			problemTypeForbidden,
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
