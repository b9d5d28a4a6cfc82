package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clubstack/clubstack/domains/clubs/be/repo"
	"github.com/clubstack/clubstack/platform/go/authz"
	"github.com/clubstack/clubstack/platform/go/persistence"
	"github.com/clubstack/clubstack/platform/go/tenant"
	"github.com/clubstack/clubstack/platform/go/tiers"
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
	ErrNotFound  = errors.New("club not found")
	ErrConflict  = errors.New("club conflict")
	ErrForbidden = errors.New("operation not permitted")
)

// Club represents the domain view of a club record.
type Club struct {
	ID                  uuid.UUID
	Slug                string
	Name                string
	TierID              string
	Settings            json.RawMessage
	Deactivated         bool
	ScheduledDeletionAt *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Membership is the domain view of a club membership row.
type Membership struct {
	UserID    uuid.UUID
	Roles     []string
	Since     time.Time
	UpdatedAt time.Time
}

// CreateInput represents the payload required to provision a club.
type CreateInput struct {
	Slug        string
	Name        string
	TierID      string
	OwnerUserID uuid.UUID
}

// UpdateSettingsInput carries the mutable club settings. Nil means unchanged.
type UpdateSettingsInput struct {
	Name     *string
	Settings json.RawMessage
}

// AddMembershipInput links an existing user account to the current club.
type AddMembershipInput struct {
	UserID uuid.UUID
	Roles  []string
}

// ListOptions controls pagination of the platform club directory.
type ListOptions struct {
	Page     int
	PageSize int
}

// ListResult wraps a page of clubs with pagination metadata.
type ListResult struct {
	Clubs      []Club
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// Service defines the business operations for the clubs domain. Club-scoped
// operations read the resolved tenant context from ctx; the guard pipeline
// guarantees it is present and authorized before the service runs.
type Service interface {
	Create(ctx context.Context, input CreateInput) (Club, error)
	List(ctx context.Context, opts ListOptions) (ListResult, error)
	UpdateTier(ctx context.Context, slug, tierID string) (Club, error)

	GetSettings(ctx context.Context) (Club, error)
	UpdateSettings(ctx context.Context, input UpdateSettingsInput) (Club, error)
	Deactivate(ctx context.Context) (Club, error)
	Reactivate(ctx context.Context) (Club, error)

	ListMemberships(ctx context.Context) ([]Membership, error)
	AddMembership(ctx context.Context, input AddMembershipInput) (Membership, error)
	UpdateMembershipRoles(ctx context.Context, userID uuid.UUID, roles []string) (Membership, error)
	RemoveMembership(ctx context.Context, userID uuid.UUID) error
	TransferOwnership(ctx context.Context, toUserID uuid.UUID) error
}

type service struct {
	repo repo.Repository
	gate *tiers.Gate
}

// New constructs a clubs Service instance backed by the provided repository.
func New(r repo.Repository, gate *tiers.Gate) Service {
	if r == nil {
		panic("clubs repository is required")
	}
	if gate == nil {
		panic("tier gate is required")
	}
	return &service{repo: r, gate: gate}
}

func (s *service) Create(ctx context.Context, input CreateInput) (Club, error) {
	fieldErrors := FieldErrors{}

	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if slug == "" {
		fieldErrors.add("slug", "slug is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		fieldErrors.add("name", "name is required")
	}
	if input.OwnerUserID == uuid.Nil {
		fieldErrors.add("ownerUserId", "ownerUserId is required")
	}

	tierID := strings.TrimSpace(input.TierID)
	if tierID == "" {
		tierID = tiers.DefaultTierID
	}
	if _, ok := s.gate.Tier(tierID); !ok {
		fieldErrors.add("tierId", "unknown tier")
	}

	if len(fieldErrors) > 0 {
		return Club{}, &ValidationError{Fields: fieldErrors}
	}

	record, err := s.repo.CreateClub(ctx, persistence.CreateClubParams{
		Slug:   slug,
		Name:   strings.TrimSpace(input.Name),
		TierID: tierID,
	})
	if err != nil {
		return Club{}, mapPersistenceError(err)
	}

	// The designated owner gets the founding membership. A failure here
	// leaves a club without an owner, which is worse than a failed create.
	if _, err := s.repo.CreateMembership(ctx, persistence.CreateMembershipParams{
		ClubID: record.ClubID,
		UserID: input.OwnerUserID,
		Roles:  []string{string(authz.RoleOwner)},
	}); err != nil {
		return Club{}, mapPersistenceError(err)
	}

	return mapClub(record), nil
}

func (s *service) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	result, err := s.repo.ListClubs(ctx, persistence.ListClubsParams{Page: page, PageSize: pageSize})
	if err != nil {
		return ListResult{}, err
	}

	clubs := make([]Club, 0, len(result.Clubs))
	for _, record := range result.Clubs {
		clubs = append(clubs, mapClub(record))
	}

	totalPages := 0
	if result.TotalItems > 0 {
		totalPages = (result.TotalItems + pageSize - 1) / pageSize
	}

	return ListResult{
		Clubs:      clubs,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: result.TotalItems,
		TotalPages: totalPages,
	}, nil
}

func (s *service) UpdateTier(ctx context.Context, slug, tierID string) (Club, error) {
	if _, ok := s.gate.Tier(tierID); !ok {
		return Club{}, newValidationError(map[string]string{"tierId": "unknown tier"})
	}

	club, err := s.repo.GetClub(ctx, slug)
	if err != nil {
		return Club{}, mapPersistenceError(err)
	}

	updated, err := s.repo.UpdateTier(ctx, club.ClubID, tierID)
	if err != nil {
		return Club{}, mapPersistenceError(err)
	}

	return mapClub(updated), nil
}

func (s *service) GetSettings(ctx context.Context) (Club, error) {
	tc, err := requireClubContext(ctx)
	if err != nil {
		return Club{}, err
	}

	record, err := s.repo.GetClub(ctx, tc.ClubSlug)
	if err != nil {
		return Club{}, mapPersistenceError(err)
	}

	return mapClub(record), nil
}

func (s *service) UpdateSettings(ctx context.Context, input UpdateSettingsInput) (Club, error) {
	tc, err := requireClubContext(ctx)
	if err != nil {
		return Club{}, err
	}

	if input.Name == nil && input.Settings == nil {
		return Club{}, newValidationError(map[string]string{"payload": "at least one field must be provided"})
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return Club{}, newValidationError(map[string]string{"name": "name cannot be empty"})
	}
	if input.Settings != nil && !json.Valid(input.Settings) {
		return Club{}, newValidationError(map[string]string{"settings": "settings must be a valid JSON document"})
	}

	record, err := s.repo.UpdateSettings(ctx, tc.ClubID, input.Name, input.Settings)
	if err != nil {
		return Club{}, mapPersistenceError(err)
	}

	return mapClub(record), nil
}

func (s *service) Deactivate(ctx context.Context) (Club, error) {
	tc, err := requireClubContext(ctx)
	if err != nil {
		return Club{}, err
	}

	record, err := s.repo.Deactivate(ctx, tc.ClubID)
	if err != nil {
		return Club{}, mapPersistenceError(err)
	}

	return mapClub(record), nil
}

func (s *service) Reactivate(ctx context.Context) (Club, error) {
	tc, err := requireClubContext(ctx)
	if err != nil {
		return Club{}, err
	}

	record, err := s.repo.Reactivate(ctx, tc.ClubID)
	if err != nil {
		return Club{}, mapPersistenceError(err)
	}

	return mapClub(record), nil
}

func (s *service) ListMemberships(ctx context.Context) ([]Membership, error) {
	tc, err := requireClubContext(ctx)
	if err != nil {
		return nil, err
	}

	records, err := s.repo.ListMemberships(ctx, tc.ClubID)
	if err != nil {
		return nil, err
	}

	memberships := make([]Membership, 0, len(records))
	for _, record := range records {
		memberships = append(memberships, mapMembership(record))
	}
	return memberships, nil
}

func (s *service) AddMembership(ctx context.Context, input AddMembershipInput) (Membership, error) {
	tc, err := requireClubContext(ctx)
	if err != nil {
		return Membership{}, err
	}

	if input.UserID == uuid.Nil {
		return Membership{}, newValidationError(map[string]string{"userId": "userId is required"})
	}

	roles, err := s.checkAssignableRoles(tc, input.Roles)
	if err != nil {
		return Membership{}, err
	}

	record, err := s.repo.CreateMembership(ctx, persistence.CreateMembershipParams{
		ClubID: tc.ClubID,
		UserID: input.UserID,
		Roles:  roles,
	})
	if err != nil {
		return Membership{}, mapPersistenceError(err)
	}

	return mapMembership(record), nil
}

func (s *service) UpdateMembershipRoles(ctx context.Context, userID uuid.UUID, roles []string) (Membership, error) {
	tc, err := requireClubContext(ctx)
	if err != nil {
		return Membership{}, err
	}

	current, err := s.repo.GetMembership(ctx, tc.ClubID, userID)
	if err != nil {
		return Membership{}, mapPersistenceError(err)
	}

	// The owner's role set is only changed through ownership transfer.
	if containsRole(current.Roles, string(authz.RoleOwner)) {
		return Membership{}, ErrForbidden
	}

	checked, err := s.checkAssignableRoles(tc, roles)
	if err != nil {
		return Membership{}, err
	}

	record, err := s.repo.UpdateMembershipRoles(ctx, tc.ClubID, userID, checked)
	if err != nil {
		return Membership{}, mapPersistenceError(err)
	}

	return mapMembership(record), nil
}

func (s *service) RemoveMembership(ctx context.Context, userID uuid.UUID) error {
	tc, err := requireClubContext(ctx)
	if err != nil {
		return err
	}

	current, err := s.repo.GetMembership(ctx, tc.ClubID, userID)
	if err != nil {
		return mapPersistenceError(err)
	}

	// Removing the owner would orphan the club; ownership moves first.
	if containsRole(current.Roles, string(authz.RoleOwner)) {
		return ErrForbidden
	}

	if err := s.repo.RemoveMembership(ctx, tc.ClubID, userID); err != nil {
		return mapPersistenceError(err)
	}
	return nil
}

func (s *service) TransferOwnership(ctx context.Context, toUserID uuid.UUID) error {
	tc, err := requireClubContext(ctx)
	if err != nil {
		return err
	}

	// Only the current owner hands over the club. Super-admins acting through
	// the override carry no roles, so they cannot transfer on a member's behalf.
	if !authz.HasAnyRole(tc.Roles, []authz.Role{authz.RoleOwner}) {
		return ErrForbidden
	}
	if toUserID == uuid.Nil {
		return newValidationError(map[string]string{"toUserId": "toUserId is required"})
	}
	if toUserID == tc.UserID {
		return newValidationError(map[string]string{"toUserId": "cannot transfer ownership to yourself"})
	}

	err = s.repo.TransferOwnership(ctx, tc.ClubID, tc.UserID, toUserID,
		string(authz.RoleOwner), string(authz.RoleAdmin))
	if err != nil {
		return mapPersistenceError(err)
	}
	return nil
}

// checkAssignableRoles validates role names and enforces the minting rules:
// OWNER is never assignable directly and ADMIN only by the current owner.
func (s *service) checkAssignableRoles(tc tenant.Context, raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, newValidationError(map[string]string{"roles": "at least one role is required"})
	}

	roles := make([]string, 0, len(raw))
	for _, candidate := range raw {
		role, ok := authz.ParseRole(candidate)
		if !ok {
			return nil, newValidationError(map[string]string{"roles": "unknown role " + candidate})
		}
		if role == authz.RoleOwner {
			return nil, ErrForbidden
		}
		if role == authz.RoleAdmin && !authz.HasAnyRole(tc.Roles, []authz.Role{authz.RoleOwner}) && !tc.IsSuperAdmin {
			return nil, ErrForbidden
		}
		roles = append(roles, string(role))
	}

	return roles, nil
}

func requireClubContext(ctx context.Context) (tenant.Context, error) {
	tc, ok := tenant.FromContext(ctx)
	if !ok || !tc.HasClub() {
		return tenant.Context{}, errors.New("club context missing from request")
	}
	return tc, nil
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func mapClub(record persistence.Club) Club {
	return Club{
		ID:                  record.ClubID,
		Slug:                record.Slug,
		Name:                record.Name,
		TierID:              record.TierID,
		Settings:            json.RawMessage(record.Settings),
		Deactivated:         record.Deactivated(),
		ScheduledDeletionAt: record.ScheduledDeletionAt,
		CreatedAt:           record.CreatedAt,
		UpdatedAt:           record.UpdatedAt,
	}
}

func mapMembership(record persistence.Membership) Membership {
	return Membership{
		UserID:    record.UserID,
		Roles:     record.Roles,
		Since:     record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrClubNotFound),
		errors.Is(err, persistence.ErrMembershipNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrClubConflict),
		errors.Is(err, persistence.ErrMembershipConflict):
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
