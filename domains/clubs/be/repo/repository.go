package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/clubstack/clubstack/platform/go/persistence"
)

// Repository defines the persistence operations required by the clubs service.
type Repository interface {
	CreateClub(ctx context.Context, params persistence.CreateClubParams) (persistence.Club, error)
	GetClub(ctx context.Context, slug string) (persistence.Club, error)
	ListClubs(ctx context.Context, params persistence.ListClubsParams) (persistence.ListClubsResult, error)
	UpdateSettings(ctx context.Context, clubID uuid.UUID, name *string, settings []byte) (persistence.Club, error)
	UpdateTier(ctx context.Context, clubID uuid.UUID, tierID string) (persistence.Club, error)
	Deactivate(ctx context.Context, clubID uuid.UUID) (persistence.Club, error)
	Reactivate(ctx context.Context, clubID uuid.UUID) (persistence.Club, error)

	CreateMembership(ctx context.Context, params persistence.CreateMembershipParams) (persistence.Membership, error)
	GetMembership(ctx context.Context, clubID, userID uuid.UUID) (persistence.Membership, error)
	ListMemberships(ctx context.Context, clubID uuid.UUID) ([]persistence.Membership, error)
	UpdateMembershipRoles(ctx context.Context, clubID, userID uuid.UUID, roles []string) (persistence.Membership, error)
	RemoveMembership(ctx context.Context, clubID, userID uuid.UUID) error
	TransferOwnership(ctx context.Context, clubID, fromUserID, toUserID uuid.UUID, ownerRole, fallbackRole string) error
}

type postgresRepository struct {
	clubs       *persistence.ClubStore
	memberships *persistence.MembershipStore
}

// NewPostgresRepository constructs a repository backed by the shared persistence layer.
func NewPostgresRepository(clubs *persistence.ClubStore, memberships *persistence.MembershipStore) Repository {
	if clubs == nil {
		panic("club store is required")
	}
	if memberships == nil {
		panic("membership store is required")
	}
	return &postgresRepository{clubs: clubs, memberships: memberships}
}

func (r *postgresRepository) CreateClub(ctx context.Context, params persistence.CreateClubParams) (persistence.Club, error) {
	return r.clubs.Create(ctx, params)
}

func (r *postgresRepository) GetClub(ctx context.Context, slug string) (persistence.Club, error) {
	return r.clubs.GetBySlug(ctx, slug)
}

func (r *postgresRepository) ListClubs(ctx context.Context, params persistence.ListClubsParams) (persistence.ListClubsResult, error) {
	return r.clubs.List(ctx, params)
}

func (r *postgresRepository) UpdateSettings(ctx context.Context, clubID uuid.UUID, name *string, settings []byte) (persistence.Club, error) {
	return r.clubs.UpdateSettings(ctx, clubID, name, settings)
}

func (r *postgresRepository) UpdateTier(ctx context.Context, clubID uuid.UUID, tierID string) (persistence.Club, error) {
	return r.clubs.UpdateTier(ctx, clubID, tierID)
}

func (r *postgresRepository) Deactivate(ctx context.Context, clubID uuid.UUID) (persistence.Club, error) {
	return r.clubs.Deactivate(ctx, clubID)
}

func (r *postgresRepository) Reactivate(ctx context.Context, clubID uuid.UUID) (persistence.Club, error) {
	return r.clubs.Reactivate(ctx, clubID)
}

func (r *postgresRepository) CreateMembership(ctx context.Context, params persistence.CreateMembershipParams) (persistence.Membership, error) {
	return r.memberships.Create(ctx, params)
}

func (r *postgresRepository) GetMembership(ctx context.Context, clubID, userID uuid.UUID) (persistence.Membership, error) {
	return r.memberships.GetActive(ctx, clubID, userID)
}

func (r *postgresRepository) ListMemberships(ctx context.Context, clubID uuid.UUID) ([]persistence.Membership, error) {
	return r.memberships.ListByClub(ctx, clubID)
}

func (r *postgresRepository) UpdateMembershipRoles(ctx context.Context, clubID, userID uuid.UUID, roles []string) (persistence.Membership, error) {
	return r.memberships.UpdateRoles(ctx, clubID, userID, roles)
}

func (r *postgresRepository) RemoveMembership(ctx context.Context, clubID, userID uuid.UUID) error {
	return r.memberships.Remove(ctx, clubID, userID)
}

func (r *postgresRepository) TransferOwnership(ctx context.Context, clubID, fromUserID, toUserID uuid.UUID, ownerRole, fallbackRole string) error {
	return r.memberships.TransferOwnership(ctx, clubID, fromUserID, toUserID, ownerRole, fallbackRole)
}
