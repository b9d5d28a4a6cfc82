package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/clubstack/clubstack/platform/go/persistence"
)

// Repository defines the persistence operations required by the users service.
// CreateBootstrapCandidate couples insertion with the first-account promotion
// so the two commit together.
type Repository interface {
	CreateBootstrapCandidate(ctx context.Context, params persistence.CreateUserParams) (persistence.User, bool, error)
	Get(ctx context.Context, id uuid.UUID) (persistence.User, error)
	GetByEmail(ctx context.Context, email string) (persistence.User, error)
	List(ctx context.Context, params persistence.ListUsersParams) (persistence.ListUsersResult, error)
	Promote(ctx context.Context, id uuid.UUID) error
	Demote(ctx context.Context, id uuid.UUID) error
	ListMemberships(ctx context.Context, userID uuid.UUID) ([]persistence.Membership, error)
}

type postgresRepository struct {
	users       *persistence.UserStore
	memberships *persistence.MembershipStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(users *persistence.UserStore, memberships *persistence.MembershipStore) Repository {
	if users == nil {
		panic("user store is required")
	}
	if memberships == nil {
		panic("membership store is required")
	}
	return &postgresRepository{users: users, memberships: memberships}
}

func (r *postgresRepository) CreateBootstrapCandidate(ctx context.Context, params persistence.CreateUserParams) (persistence.User, bool, error) {
	return r.users.CreateBootstrapCandidate(ctx, params)
}

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	return r.users.Get(ctx, id)
}

func (r *postgresRepository) GetByEmail(ctx context.Context, email string) (persistence.User, error) {
	return r.users.GetByEmail(ctx, email)
}

func (r *postgresRepository) List(ctx context.Context, params persistence.ListUsersParams) (persistence.ListUsersResult, error) {
	return r.users.List(ctx, params)
}

func (r *postgresRepository) Promote(ctx context.Context, id uuid.UUID) error {
	return r.users.Promote(ctx, id)
}

func (r *postgresRepository) Demote(ctx context.Context, id uuid.UUID) error {
	return r.users.Demote(ctx, id)
}

func (r *postgresRepository) ListMemberships(ctx context.Context, userID uuid.UUID) ([]persistence.Membership, error) {
	return r.memberships.ListByUser(ctx, userID)
}
