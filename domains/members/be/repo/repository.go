package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/clubstack/clubstack/platform/go/persistence"
)

// Repository defines the persistence operations required by the members
// service. Every call carries the scope of the resolved club.
type Repository interface {
	Create(ctx context.Context, scope persistence.Scope, params persistence.CreateMemberParams) (persistence.Member, error)
	CreateMany(ctx context.Context, scope persistence.Scope, params []persistence.CreateMemberParams) ([]persistence.Member, error)
	Get(ctx context.Context, scope persistence.Scope, memberID uuid.UUID) (persistence.Member, error)
	List(ctx context.Context, scope persistence.Scope, params persistence.ListMembersParams) (persistence.ListMembersResult, error)
	Update(ctx context.Context, scope persistence.Scope, memberID uuid.UUID, params persistence.UpdateMemberParams) (persistence.Member, error)
	Delete(ctx context.Context, scope persistence.Scope, memberID uuid.UUID) error
	Erase(ctx context.Context, scope persistence.Scope, memberID uuid.UUID) (persistence.Member, error)
}

type postgresRepository struct {
	store *persistence.MemberStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(store *persistence.MemberStore) Repository {
	if store == nil {
		panic("member store is required")
	}
	return &postgresRepository{store: store}
}

func (r *postgresRepository) Create(ctx context.Context, scope persistence.Scope, params persistence.CreateMemberParams) (persistence.Member, error) {
	return r.store.Create(ctx, scope, params)
}

func (r *postgresRepository) CreateMany(ctx context.Context, scope persistence.Scope, params []persistence.CreateMemberParams) ([]persistence.Member, error) {
	return r.store.CreateMany(ctx, scope, params)
}

func (r *postgresRepository) Get(ctx context.Context, scope persistence.Scope, memberID uuid.UUID) (persistence.Member, error) {
	return r.store.Get(ctx, scope, memberID)
}

func (r *postgresRepository) List(ctx context.Context, scope persistence.Scope, params persistence.ListMembersParams) (persistence.ListMembersResult, error) {
	return r.store.List(ctx, scope, params)
}

func (r *postgresRepository) Update(ctx context.Context, scope persistence.Scope, memberID uuid.UUID, params persistence.UpdateMemberParams) (persistence.Member, error) {
	return r.store.Update(ctx, scope, memberID, params)
}

func (r *postgresRepository) Delete(ctx context.Context, scope persistence.Scope, memberID uuid.UUID) error {
	return r.store.Delete(ctx, scope, memberID)
}

func (r *postgresRepository) Erase(ctx context.Context, scope persistence.Scope, memberID uuid.UUID) (persistence.Member, error) {
	return r.store.Erase(ctx, scope, memberID)
}
