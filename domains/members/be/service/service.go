package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clubstack/clubstack/domains/members/be/repo"
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
	ErrNotFound = errors.New("member not found")
	ErrConflict = errors.New("member conflict")
)

// Member represents the domain view of a registry entry.
type Member struct {
	ID        uuid.UUID
	MemberNo  string
	FirstName string
	LastName  string
	Email     *string
	JoinedOn  *time.Time
	Erased    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput represents the payload for a single registry entry.
type CreateInput struct {
	MemberNo  string
	FirstName string
	LastName  string
	Email     *string
	JoinedOn  *time.Time
}

// UpdateInput carries the mutable registry fields. Nil means unchanged.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	JoinedOn  *time.Time
}

// ListOptions controls filtering and pagination of the registry.
type ListOptions struct {
	LastName *string
	Page     int
	PageSize int
}

// ListResult wraps a page of members with pagination metadata.
type ListResult struct {
	Members    []Member
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// Service defines the business operations for the member registry. All
// operations run inside the resolved club's scope.
type Service interface {
	Create(ctx context.Context, input CreateInput) (Member, error)
	Import(ctx context.Context, inputs []CreateInput) ([]Member, error)
	Get(ctx context.Context, memberID uuid.UUID) (Member, error)
	List(ctx context.Context, opts ListOptions) (ListResult, error)
	Update(ctx context.Context, memberID uuid.UUID, input UpdateInput) (Member, error)
	Delete(ctx context.Context, memberID uuid.UUID) error
	Erase(ctx context.Context, memberID uuid.UUID) (Member, error)
}

type service struct {
	repo repo.Repository
}

// New constructs a members Service instance backed by the provided repository.
func New(r repo.Repository) Service {
	if r == nil {
		panic("members repository is required")
	}
	return &service{repo: r}
}

func (s *service) Create(ctx context.Context, input CreateInput) (Member, error) {
	scope, err := requireScope(ctx)
	if err != nil {
		return Member{}, err
	}

	params, err := buildCreateParams(input)
	if err != nil {
		return Member{}, err
	}

	record, err := s.repo.Create(ctx, scope, params)
	if err != nil {
		return Member{}, mapPersistenceError(err)
	}

	return mapMember(record), nil
}

func (s *service) Import(ctx context.Context, inputs []CreateInput) ([]Member, error) {
	scope, err := requireScope(ctx)
	if err != nil {
		return nil, err
	}

	if len(inputs) == 0 {
		return nil, newValidationError(map[string]string{"members": "at least one member is required"})
	}

	paramsList := make([]persistence.CreateMemberParams, 0, len(inputs))
	for _, input := range inputs {
		params, err := buildCreateParams(input)
		if err != nil {
			return nil, err
		}
		paramsList = append(paramsList, params)
	}

	records, err := s.repo.CreateMany(ctx, scope, paramsList)
	if err != nil {
		return nil, mapPersistenceError(err)
	}

	members := make([]Member, 0, len(records))
	for _, record := range records {
		members = append(members, mapMember(record))
	}
	return members, nil
}

func (s *service) Get(ctx context.Context, memberID uuid.UUID) (Member, error) {
	scope, err := requireScope(ctx)
	if err != nil {
		return Member{}, err
	}

	record, err := s.repo.Get(ctx, scope, memberID)
	if err != nil {
		return Member{}, mapPersistenceError(err)
	}

	return mapMember(record), nil
}

func (s *service) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	scope, err := requireScope(ctx)
	if err != nil {
		return ListResult{}, err
	}

	page := opts.Page
	if page < 1 {
		page = 1
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}

	result, err := s.repo.List(ctx, scope, persistence.ListMembersParams{
		LastName: opts.LastName,
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return ListResult{}, err
	}

	members := make([]Member, 0, len(result.Members))
	for _, record := range result.Members {
		members = append(members, mapMember(record))
	}

	totalPages := 0
	if result.TotalItems > 0 {
		totalPages = (result.TotalItems + pageSize - 1) / pageSize
	}

	return ListResult{
		Members:    members,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: result.TotalItems,
		TotalPages: totalPages,
	}, nil
}

func (s *service) Update(ctx context.Context, memberID uuid.UUID, input UpdateInput) (Member, error) {
	scope, err := requireScope(ctx)
	if err != nil {
		return Member{}, err
	}

	if input.FirstName == nil && input.LastName == nil && input.Email == nil && input.JoinedOn == nil {
		return Member{}, newValidationError(map[string]string{"payload": "at least one field must be provided"})
	}

	record, err := s.repo.Update(ctx, scope, memberID, persistence.UpdateMemberParams{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		JoinedOn:  input.JoinedOn,
	})
	if err != nil {
		return Member{}, mapPersistenceError(err)
	}

	return mapMember(record), nil
}

func (s *service) Delete(ctx context.Context, memberID uuid.UUID) error {
	scope, err := requireScope(ctx)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, scope, memberID); err != nil {
		return mapPersistenceError(err)
	}
	return nil
}

func (s *service) Erase(ctx context.Context, memberID uuid.UUID) (Member, error) {
	scope, err := requireScope(ctx)
	if err != nil {
		return Member{}, err
	}

	record, err := s.repo.Erase(ctx, scope, memberID)
	if err != nil {
		return Member{}, mapPersistenceError(err)
	}

	return mapMember(record), nil
}

func buildCreateParams(input CreateInput) (persistence.CreateMemberParams, error) {
	fieldErrors := FieldErrors{}

	if strings.TrimSpace(input.MemberNo) == "" {
		fieldErrors.add("memberNo", "memberNo is required")
	}
	if strings.TrimSpace(input.LastName) == "" {
		fieldErrors.add("lastName", "lastName is required")
	}
	if input.Email != nil && !strings.Contains(*input.Email, "@") {
		fieldErrors.add("email", "email must contain '@'")
	}

	if len(fieldErrors) > 0 {
		return persistence.CreateMemberParams{}, &ValidationError{Fields: fieldErrors}
	}

	return persistence.CreateMemberParams{
		MemberNo:  strings.TrimSpace(input.MemberNo),
		FirstName: strings.TrimSpace(input.FirstName),
		LastName:  strings.TrimSpace(input.LastName),
		Email:     input.Email,
		JoinedOn:  input.JoinedOn,
	}, nil
}

func requireScope(ctx context.Context) (persistence.Scope, error) {
	tc, ok := tenant.FromContext(ctx)
	if !ok || !tc.HasClub() {
		return persistence.Scope{}, errors.New("club context missing from request")
	}
	return persistence.NewScope(tc.ClubID), nil
}

func mapMember(record persistence.Member) Member {
	return Member{
		ID:        record.MemberID,
		MemberNo:  record.MemberNo,
		FirstName: record.FirstName,
		LastName:  record.LastName,
		Email:     record.Email,
		JoinedOn:  record.JoinedOn,
		Erased:    record.ErasedAt != nil,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrMemberNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrMemberConflict):
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
