package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clubstack/clubstack/domains/users/be/repo"
	"github.com/clubstack/clubstack/platform/go/persistence"
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
	ErrNotFound       = errors.New("user not found")
	ErrConflict       = errors.New("user conflict")
	ErrLastSuperAdmin = errors.New("cannot demote the last super admin")
)

// User represents the domain view of a user record.
type User struct {
	ID           uuid.UUID
	Email        string
	FullName     string
	IsSuperAdmin bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ClubMembership is one club the user belongs to, as shown on the profile.
type ClubMembership struct {
	ClubID uuid.UUID
	Roles  []string
	Since  time.Time
}

// Profile is the authenticated user's own view: account plus club memberships.
type Profile struct {
	User        User
	Memberships []ClubMembership
}

// SignupInput represents the payload required to register a new account.
type SignupInput struct {
	UserID   uuid.UUID
	Email    string
	FullName string
}

// ListOptions controls filtering and pagination.
type ListOptions struct {
	Email    *string
	Page     int
	PageSize int
}

// ListResult wraps a page of users with pagination metadata.
type ListResult struct {
	Users      []User
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// Service defines the business operations for the users domain.
type Service interface {
	Signup(ctx context.Context, input SignupInput) (User, error)
	Me(ctx context.Context, id uuid.UUID) (Profile, error)
	Get(ctx context.Context, id uuid.UUID) (User, error)
	List(ctx context.Context, opts ListOptions) (ListResult, error)
	Promote(ctx context.Context, id uuid.UUID) (User, error)
	Demote(ctx context.Context, id uuid.UUID) (User, error)
}

type service struct {
	repo      repo.Repository
	bootstrap *Bootstrap
}

// New constructs a users Service instance backed by the provided repository.
// The bootstrap evaluator runs after every successful signup.
func New(r repo.Repository, bootstrap *Bootstrap) Service {
	if r == nil {
		panic("users repository is required")
	}
	if bootstrap == nil {
		panic("bootstrap evaluator is required")
	}
	return &service{repo: r, bootstrap: bootstrap}
}

func (s *service) Signup(ctx context.Context, input SignupInput) (User, error) {
	fieldErrors := FieldErrors{}

	email := strings.TrimSpace(input.Email)
	if email == "" {
		fieldErrors.add("email", "email is required")
	} else if !strings.Contains(email, "@") {
		fieldErrors.add("email", "email must contain '@'")
	}

	if input.UserID == uuid.Nil {
		fieldErrors.add("userId", "user id is required")
	}

	if len(fieldErrors) > 0 {
		return User{}, &ValidationError{Fields: fieldErrors}
	}

	// Creation and first-account promotion commit together; splitting them
	// would let concurrent first registrations end with no super-admin.
	record, bootstrapped, err := s.repo.CreateBootstrapCandidate(ctx, persistence.CreateUserParams{
		UserID:   input.UserID,
		Email:    email,
		FullName: strings.TrimSpace(input.FullName),
	})
	if err != nil {
		return User{}, mapPersistenceError(err)
	}

	// The designated-address evaluation never fails the signup; a missed
	// promotion is recoverable, a failed registration is not.
	record = s.bootstrap.EvaluateNewUser(ctx, record, bootstrapped)

	return mapUser(record), nil
}

func (s *service) Me(ctx context.Context, id uuid.UUID) (Profile, error) {
	if id == uuid.Nil {
		return Profile{}, ErrNotFound
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return Profile{}, mapPersistenceError(err)
	}

	memberships, err := s.repo.ListMemberships(ctx, id)
	if err != nil {
		return Profile{}, err
	}

	clubs := make([]ClubMembership, 0, len(memberships))
	for _, membership := range memberships {
		clubs = append(clubs, ClubMembership{
			ClubID: membership.ClubID,
			Roles:  membership.Roles,
			Since:  membership.CreatedAt,
		})
	}

	return Profile{User: mapUser(record), Memberships: clubs}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	if id == uuid.Nil {
		return User{}, ErrNotFound
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, mapPersistenceError(err)
	}

	return mapUser(record), nil
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

	params := persistence.ListUsersParams{Page: page, PageSize: pageSize}
	if opts.Email != nil && strings.TrimSpace(*opts.Email) != "" {
		email := strings.TrimSpace(*opts.Email)
		params.Email = &email
	}

	result, err := s.repo.List(ctx, params)
	if err != nil {
		return ListResult{}, err
	}

	users := make([]User, 0, len(result.Users))
	for _, record := range result.Users {
		users = append(users, mapUser(record))
	}

	totalPages := 0
	if result.TotalItems > 0 {
		totalPages = (result.TotalItems + pageSize - 1) / pageSize
	}

	return ListResult{
		Users:      users,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: result.TotalItems,
		TotalPages: totalPages,
	}, nil
}

func (s *service) Promote(ctx context.Context, id uuid.UUID) (User, error) {
	if id == uuid.Nil {
		return User{}, ErrNotFound
	}

	if err := s.repo.Promote(ctx, id); err != nil {
		return User{}, mapPersistenceError(err)
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, mapPersistenceError(err)
	}

	return mapUser(record), nil
}

func (s *service) Demote(ctx context.Context, id uuid.UUID) (User, error) {
	if id == uuid.Nil {
		return User{}, ErrNotFound
	}

	if err := s.repo.Demote(ctx, id); err != nil {
		return User{}, mapPersistenceError(err)
	}

	record, err := s.repo.Get(ctx, id)
	if err != nil {
		return User{}, mapPersistenceError(err)
	}

	return mapUser(record), nil
}

func mapUser(record persistence.User) User {
	return User{
		ID:           record.UserID,
		Email:        record.Email,
		FullName:     record.FullName,
		IsSuperAdmin: record.IsSuperAdmin,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
}

func mapPersistenceError(err error) error {
	switch {
	case errors.Is(err, persistence.ErrUserNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrUserConflict):
		return ErrConflict
	case errors.Is(err, persistence.ErrLastSuperAdmin):
		return ErrLastSuperAdmin
	default:
		return err
	}
}

func (f FieldErrors) add(field, message string) {
	if f == nil {
		return
	}
	f[field] = append(f[field], message)
}
