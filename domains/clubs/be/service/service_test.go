package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/clubstack/clubstack/platform/go/authz"
	"github.com/clubstack/clubstack/platform/go/persistence"
	"github.com/clubstack/clubstack/platform/go/tenant"
	"github.com/clubstack/clubstack/platform/go/tiers"
)

type mockRepository struct {
	createClubFunc        func(ctx context.Context, params persistence.CreateClubParams) (persistence.Club, error)
	getClubFunc           func(ctx context.Context, slug string) (persistence.Club, error)
	listClubsFunc         func(ctx context.Context, params persistence.ListClubsParams) (persistence.ListClubsResult, error)
	updateSettingsFunc    func(ctx context.Context, clubID uuid.UUID, name *string, settings []byte) (persistence.Club, error)
	updateTierFunc        func(ctx context.Context, clubID uuid.UUID, tierID string) (persistence.Club, error)
	deactivateFunc        func(ctx context.Context, clubID uuid.UUID) (persistence.Club, error)
	reactivateFunc        func(ctx context.Context, clubID uuid.UUID) (persistence.Club, error)
	createMembershipFunc  func(ctx context.Context, params persistence.CreateMembershipParams) (persistence.Membership, error)
	getMembershipFunc     func(ctx context.Context, clubID, userID uuid.UUID) (persistence.Membership, error)
	listMembershipsFunc   func(ctx context.Context, clubID uuid.UUID) ([]persistence.Membership, error)
	updateRolesFunc       func(ctx context.Context, clubID, userID uuid.UUID, roles []string) (persistence.Membership, error)
	removeMembershipFunc  func(ctx context.Context, clubID, userID uuid.UUID) error
	transferOwnershipFunc func(ctx context.Context, clubID, fromUserID, toUserID uuid.UUID, ownerRole, fallbackRole string) error
}

func (m *mockRepository) CreateClub(ctx context.Context, params persistence.CreateClubParams) (persistence.Club, error) {
	return m.createClubFunc(ctx, params)
}

func (m *mockRepository) GetClub(ctx context.Context, slug string) (persistence.Club, error) {
	return m.getClubFunc(ctx, slug)
}

func (m *mockRepository) ListClubs(ctx context.Context, params persistence.ListClubsParams) (persistence.ListClubsResult, error) {
	return m.listClubsFunc(ctx, params)
}

func (m *mockRepository) UpdateSettings(ctx context.Context, clubID uuid.UUID, name *string, settings []byte) (persistence.Club, error) {
	return m.updateSettingsFunc(ctx, clubID, name, settings)
}

func (m *mockRepository) UpdateTier(ctx context.Context, clubID uuid.UUID, tierID string) (persistence.Club, error) {
	return m.updateTierFunc(ctx, clubID, tierID)
}

func (m *mockRepository) Deactivate(ctx context.Context, clubID uuid.UUID) (persistence.Club, error) {
	return m.deactivateFunc(ctx, clubID)
}

func (m *mockRepository) Reactivate(ctx context.Context, clubID uuid.UUID) (persistence.Club, error) {
	return m.reactivateFunc(ctx, clubID)
}

func (m *mockRepository) CreateMembership(ctx context.Context, params persistence.CreateMembershipParams) (persistence.Membership, error) {
	return m.createMembershipFunc(ctx, params)
}

func (m *mockRepository) GetMembership(ctx context.Context, clubID, userID uuid.UUID) (persistence.Membership, error) {
	return m.getMembershipFunc(ctx, clubID, userID)
}

func (m *mockRepository) ListMemberships(ctx context.Context, clubID uuid.UUID) ([]persistence.Membership, error) {
	return m.listMembershipsFunc(ctx, clubID)
}

func (m *mockRepository) UpdateMembershipRoles(ctx context.Context, clubID, userID uuid.UUID, roles []string) (persistence.Membership, error) {
	return m.updateRolesFunc(ctx, clubID, userID, roles)
}

func (m *mockRepository) RemoveMembership(ctx context.Context, clubID, userID uuid.UUID) error {
	return m.removeMembershipFunc(ctx, clubID, userID)
}

func (m *mockRepository) TransferOwnership(ctx context.Context, clubID, fromUserID, toUserID uuid.UUID, ownerRole, fallbackRole string) error {
	return m.transferOwnershipFunc(ctx, clubID, fromUserID, toUserID, ownerRole, fallbackRole)
}

func mustGate(t *testing.T) *tiers.Gate {
	t.Helper()
	gate, err := tiers.NewGate()
	require.NoError(t, err)
	return gate
}

func clubCtx(userID, clubID uuid.UUID, roles ...authz.Role) context.Context {
	return tenant.WithContext(context.Background(), tenant.Context{
		UserID: userID,
		ClubID: clubID,
		Roles:  roles,
	})
}

func TestCreateProvisionsOwnerMembership(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	clubID := uuid.New()
	var membershipParams persistence.CreateMembershipParams

	repo := &mockRepository{
		createClubFunc: func(_ context.Context, params persistence.CreateClubParams) (persistence.Club, error) {
			require.Equal(t, "fc-test", params.Slug)
			return persistence.Club{ClubID: clubID, Slug: params.Slug, TierID: params.TierID}, nil
		},
		createMembershipFunc: func(_ context.Context, params persistence.CreateMembershipParams) (persistence.Membership, error) {
			membershipParams = params
			return persistence.Membership{ClubID: params.ClubID, UserID: params.UserID, Roles: params.Roles}, nil
		},
	}

	svc := New(repo, mustGate(t))
	created, err := svc.Create(context.Background(), CreateInput{
		Slug:        "FC-Test",
		Name:        "FC Test",
		OwnerUserID: ownerID,
	})
	require.NoError(t, err)
	require.Equal(t, tiers.DefaultTierID, created.TierID)
	require.Equal(t, clubID, membershipParams.ClubID)
	require.Equal(t, ownerID, membershipParams.UserID)
	require.Equal(t, []string{"OWNER"}, membershipParams.Roles)
}

func TestCreateRejectsUnknownTier(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{}, mustGate(t))
	_, err := svc.Create(context.Background(), CreateInput{
		Slug:        "fc-x",
		Name:        "FC X",
		TierID:      "platinum",
		OwnerUserID: uuid.New(),
	})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "tierId")
}

func TestUpdateSettingsValidatesPayload(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{}, mustGate(t))
	ctx := clubCtx(uuid.New(), uuid.New(), authz.RoleAdmin)

	_, err := svc.UpdateSettings(ctx, UpdateSettingsInput{})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	_, err = svc.UpdateSettings(ctx, UpdateSettingsInput{Settings: []byte("{broken")})
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "settings")
}

func TestUpdateMembershipRolesProtectsOwner(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	repo := &mockRepository{
		getMembershipFunc: func(_ context.Context, _, userID uuid.UUID) (persistence.Membership, error) {
			return persistence.Membership{UserID: userID, Roles: []string{"OWNER"}}, nil
		},
	}

	svc := New(repo, mustGate(t))
	ctx := clubCtx(uuid.New(), uuid.New(), authz.RoleAdmin)

	_, err := svc.UpdateMembershipRoles(ctx, ownerID, []string{"MEMBER"})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateMembershipRolesNeverMintsOwner(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{
		getMembershipFunc: func(_ context.Context, _, userID uuid.UUID) (persistence.Membership, error) {
			return persistence.Membership{UserID: userID, Roles: []string{"MEMBER"}}, nil
		},
	}

	svc := New(repo, mustGate(t))
	// Even the owner cannot hand out OWNER through a role update.
	ctx := clubCtx(uuid.New(), uuid.New(), authz.RoleOwner)

	_, err := svc.UpdateMembershipRoles(ctx, uuid.New(), []string{"OWNER"})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestAdminRoleMintableOnlyByOwner(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{
		getMembershipFunc: func(_ context.Context, _, userID uuid.UUID) (persistence.Membership, error) {
			return persistence.Membership{UserID: userID, Roles: []string{"MEMBER"}}, nil
		},
		updateRolesFunc: func(_ context.Context, _, userID uuid.UUID, roles []string) (persistence.Membership, error) {
			return persistence.Membership{UserID: userID, Roles: roles}, nil
		},
	}

	svc := New(repo, mustGate(t))
	target := uuid.New()

	// An admin actor cannot grant ADMIN.
	_, err := svc.UpdateMembershipRoles(clubCtx(uuid.New(), uuid.New(), authz.RoleAdmin), target, []string{"ADMIN"})
	require.ErrorIs(t, err, ErrForbidden)

	// The owner can.
	updated, err := svc.UpdateMembershipRoles(clubCtx(uuid.New(), uuid.New(), authz.RoleOwner), target, []string{"ADMIN"})
	require.NoError(t, err)
	require.Equal(t, []string{"ADMIN"}, updated.Roles)
}

func TestUpdateMembershipRolesRejectsUnknownRole(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{
		getMembershipFunc: func(_ context.Context, _, userID uuid.UUID) (persistence.Membership, error) {
			return persistence.Membership{UserID: userID, Roles: []string{"MEMBER"}}, nil
		},
	}

	svc := New(repo, mustGate(t))
	_, err := svc.UpdateMembershipRoles(clubCtx(uuid.New(), uuid.New(), authz.RoleOwner), uuid.New(), []string{"JANITOR"})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "roles")
}

func TestRemoveMembershipProtectsOwner(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{
		getMembershipFunc: func(_ context.Context, _, userID uuid.UUID) (persistence.Membership, error) {
			return persistence.Membership{UserID: userID, Roles: []string{"OWNER"}}, nil
		},
	}

	svc := New(repo, mustGate(t))
	err := svc.RemoveMembership(clubCtx(uuid.New(), uuid.New(), authz.RoleAdmin), uuid.New())
	require.ErrorIs(t, err, ErrForbidden)
}

func TestTransferOwnershipRequiresOwnerActor(t *testing.T) {
	t.Parallel()

	transferred := false
	repo := &mockRepository{
		transferOwnershipFunc: func(_ context.Context, _, _, _ uuid.UUID, ownerRole, fallbackRole string) error {
			require.Equal(t, "OWNER", ownerRole)
			require.Equal(t, "ADMIN", fallbackRole)
			transferred = true
			return nil
		},
	}

	svc := New(repo, mustGate(t))
	actorID := uuid.New()
	clubID := uuid.New()

	err := svc.TransferOwnership(clubCtx(actorID, clubID, authz.RoleAdmin), uuid.New())
	require.ErrorIs(t, err, ErrForbidden)
	require.False(t, transferred)

	err = svc.TransferOwnership(clubCtx(actorID, clubID, authz.RoleOwner), actorID)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	err = svc.TransferOwnership(clubCtx(actorID, clubID, authz.RoleOwner), uuid.New())
	require.NoError(t, err)
	require.True(t, transferred)
}

func TestUpdateTierValidatesAgainstCatalog(t *testing.T) {
	t.Parallel()

	clubID := uuid.New()
	repo := &mockRepository{
		getClubFunc: func(_ context.Context, slug string) (persistence.Club, error) {
			return persistence.Club{ClubID: clubID, Slug: slug, TierID: "free"}, nil
		},
		updateTierFunc: func(_ context.Context, id uuid.UUID, tierID string) (persistence.Club, error) {
			require.Equal(t, clubID, id)
			return persistence.Club{ClubID: id, TierID: tierID}, nil
		},
	}

	svc := New(repo, mustGate(t))

	_, err := svc.UpdateTier(context.Background(), "fc-x", "gold")
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	updated, err := svc.UpdateTier(context.Background(), "fc-x", "enterprise")
	require.NoError(t, err)
	require.Equal(t, "enterprise", updated.TierID)
}

func TestClubScopedOperationsRequireContext(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{}, mustGate(t))

	_, err := svc.GetSettings(context.Background())
	require.Error(t, err)
	_, err = svc.Deactivate(context.Background())
	require.Error(t, err)
	err = svc.TransferOwnership(context.Background(), uuid.New())
	require.Error(t, err)
}
