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

	"github.com/clubstack/clubstack/domains/users/be/service"
	platformauth "github.com/clubstack/clubstack/platform/go/auth"
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
	signupOperation  operation = "usersSignup"
	meOperation      operation = "usersMe"
	listOperation    operation = "usersList"
	getOperation     operation = "usersGet"
	promoteOperation operation = "usersPromote"
	demoteOperation  operation = "usersDemote"
)

// Handler wires the users service to the HTTP surface.
type Handler struct {
	svc    service.Service
	logger *zap.Logger
}

// New constructs a Handler instance.
func New(svc service.Service, logger *zap.Logger) *Handler {
	if svc == nil {
		panic("users service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{svc: svc, logger: logger}
}

type signupRequest struct {
	FullName string `json:"fullName"`
}

type userResponse struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	IsSuperAdmin bool      `json:"isSuperAdmin"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type membershipResponse struct {
	ClubID string    `json:"clubId"`
	Roles  []string  `json:"roles"`
	Since  time.Time `json:"since"`
}

type profileResponse struct {
	userResponse
	Memberships []membershipResponse `json:"memberships"`
}

type listResponse struct {
	Items      []userResponse `json:"items"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalItems int            `json:"totalItems"`
	TotalPages int            `json:"totalPages"`
}

// Signup registers the authenticated identity as a platform account. The
// email comes from the verified token, never from the request body.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	identity, ok := platformauth.IdentityFromContext(r.Context())
	if !ok {
		h.writeProblem(w, "Unauthorized", "authentication required", problemTypeValidation, http.StatusUnauthorized, nil)
		return
	}

	var body signupRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.writeProblem(w, "Invalid request body", "request body must be valid JSON", problemTypeValidation, http.StatusBadRequest, nil)
			return
		}
	}

	created, err := h.svc.Signup(r.Context(), service.SignupInput{
		UserID:   identity.UserID,
		Email:    identity.Email,
		FullName: body.FullName,
	})
	if err != nil {
		h.respondError(r.Context(), w, err, signupOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusCreated, toUserResponse(created))
}

// Me returns the authenticated user's profile with club memberships.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := platformauth.IdentityFromContext(r.Context())
	if !ok {
		h.writeProblem(w, "Unauthorized", "authentication required", problemTypeValidation, http.StatusUnauthorized, nil)
		return
	}

	profile, err := h.svc.Me(r.Context(), identity.UserID)
	if err != nil {
		h.respondError(r.Context(), w, err, meOperation)
		return
	}

	memberships := make([]membershipResponse, 0, len(profile.Memberships))
	for _, membership := range profile.Memberships {
		memberships = append(memberships, membershipResponse{
			ClubID: membership.ClubID.String(),
			Roles:  membership.Roles,
			Since:  membership.Since,
		})
	}

	httpapi.WriteJSON(w, http.StatusOK, profileResponse{
		userResponse: toUserResponse(profile.User),
		Memberships:  memberships,
	})
}

// List returns a page of platform accounts. Super-admin only; the route is
// gated before this handler runs.
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
	if raw := strings.TrimSpace(query.Get("email")); raw != "" {
		opts.Email = &raw
	}

	result, err := h.svc.List(r.Context(), opts)
	if err != nil {
		h.respondError(r.Context(), w, err, listOperation)
		return
	}

	items := make([]userResponse, 0, len(result.Users))
	for _, user := range result.Users {
		items = append(items, toUserResponse(user))
	}

	httpapi.WriteJSON(w, http.StatusOK, listResponse{
		Items:      items,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalItems: result.TotalItems,
		TotalPages: result.TotalPages,
	})
}

// Get returns a single platform account. Super-admin only.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	user, err := h.svc.Get(r.Context(), userID)
	if err != nil {
		h.respondError(r.Context(), w, err, getOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// Promote grants the platform super-admin flag. Super-admin only.
func (h *Handler) Promote(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	user, err := h.svc.Promote(r.Context(), userID)
	if err != nil {
		h.respondError(r.Context(), w, err, promoteOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// Demote revokes the platform super-admin flag, refusing to remove the last one.
func (h *Handler) Demote(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.pathUserID(w, r)
	if !ok {
		return
	}

	user, err := h.svc.Demote(r.Context(), userID)
	if err != nil {
		h.respondError(r.Context(), w, err, demoteOperation)
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, toUserResponse(user))
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

func toUserResponse(user service.User) userResponse {
	return userResponse{
		ID:           user.ID.String(),
		Email:        user.Email,
		FullName:     user.FullName,
		IsSuperAdmin: user.IsSuperAdmin,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
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
		logger.Error("users operation failed", append(logFields, zap.Error(err))...)
	case status == http.StatusNotFound:
		logger.Info("users resource not found", append(logFields, zap.Error(err))...)
	default:
		logger.Warn("users request rejected", append(logFields, zap.Error(err))...)
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
			"user not found",
			problemTypeNotFound,
			nil
	case errors.Is(err, service.ErrConflict):
		return http.StatusConflict,
			"Conflict",
			"user already exists",
			problemTypeConflict,
			nil
	case errors.Is(err, service.ErrLastSuperAdmin):
		return http.StatusConflict,
			"Conflict",
			"cannot demote the last super admin",
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
