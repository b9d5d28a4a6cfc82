package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clubstack/clubstack/platform/go/persistence"
)

type mockRepository struct {
	createCandidateFunc func(ctx context.Context, params persistence.CreateUserParams) (persistence.User, bool, error)
	getFunc             func(ctx context.Context, id uuid.UUID) (persistence.User, error)
	getByEmailFunc      func(ctx context.Context, email string) (persistence.User, error)
	listFunc            func(ctx context.Context, params persistence.ListUsersParams) (persistence.ListUsersResult, error)
	promoteFunc         func(ctx context.Context, id uuid.UUID) error
	demoteFunc          func(ctx context.Context, id uuid.UUID) error
	listMembershipsFunc func(ctx context.Context, userID uuid.UUID) ([]persistence.Membership, error)
}

func (m *mockRepository) CreateBootstrapCandidate(ctx context.Context, params persistence.CreateUserParams) (persistence.User, bool, error) {
	return m.createCandidateFunc(ctx, params)
}

func (m *mockRepository) Get(ctx context.Context, id uuid.UUID) (persistence.User, error) {
	return m.getFunc(ctx, id)
}

func (m *mockRepository) GetByEmail(ctx context.Context, email string) (persistence.User, error) {
	return m.getByEmailFunc(ctx, email)
}

func (m *mockRepository) List(ctx context.Context, params persistence.ListUsersParams) (persistence.ListUsersResult, error) {
	return m.listFunc(ctx, params)
}

func (m *mockRepository) Promote(ctx context.Context, id uuid.UUID) error {
	return m.promoteFunc(ctx, id)
}

func (m *mockRepository) Demote(ctx context.Context, id uuid.UUID) error {
	return m.demoteFunc(ctx, id)
}

func (m *mockRepository) ListMemberships(ctx context.Context, userID uuid.UUID) ([]persistence.Membership, error) {
	return m.listMembershipsFunc(ctx, userID)
}

func newTestService(repo *mockRepository, designatedEmail string) Service {
	return New(repo, NewBootstrap(repo, designatedEmail, zap.NewNop()))
}

func TestSignupValidation(t *testing.T) {
	t.Parallel()

	svc := newTestService(&mockRepository{}, "")

	_, err := svc.Signup(context.Background(), SignupInput{UserID: uuid.New(), Email: ""})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "email")

	_, err = svc.Signup(context.Background(), SignupInput{UserID: uuid.Nil, Email: "no-at-sign"})
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "email")
	require.Contains(t, validationErr.Fields, "userId")
}

func TestSignupFirstUserBecomesSuperAdmin(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	repo := &mockRepository{
		createCandidateFunc: func(_ context.Context, params persistence.CreateUserParams) (persistence.User, bool, error) {
			require.Equal(t, userID, params.UserID)
			return persistence.User{UserID: params.UserID, Email: params.Email, IsSuperAdmin: true}, true, nil
		},
	}

	svc := newTestService(repo, "")
	created, err := svc.Signup(context.Background(), SignupInput{UserID: userID, Email: "first@example.com"})
	require.NoError(t, err)
	require.True(t, created.IsSuperAdmin)
}

func TestSignupLaterUserStaysRegular(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{
		createCandidateFunc: func(_ context.Context, params persistence.CreateUserParams) (persistence.User, bool, error) {
			return persistence.User{UserID: params.UserID, Email: params.Email}, false, nil
		},
	}

	svc := newTestService(repo, "")
	created, err := svc.Signup(context.Background(), SignupInput{UserID: uuid.New(), Email: "later@example.com"})
	require.NoError(t, err)
	require.False(t, created.IsSuperAdmin)
}

func TestSignupDesignatedEmailPromoted(t *testing.T) {
	t.Parallel()

	promoted := false
	repo := &mockRepository{
		createCandidateFunc: func(_ context.Context, params persistence.CreateUserParams) (persistence.User, bool, error) {
			return persistence.User{UserID: params.UserID, Email: params.Email}, false, nil
		},
		promoteFunc: func(context.Context, uuid.UUID) error {
			promoted = true
			return nil
		},
	}

	svc := newTestService(repo, "Root@Example.COM")
	created, err := svc.Signup(context.Background(), SignupInput{UserID: uuid.New(), Email: "root@example.com"})
	require.NoError(t, err)
	require.True(t, promoted)
	require.True(t, created.IsSuperAdmin)
}

func TestSignupSurvivesDesignatedPromotionFailure(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{
		createCandidateFunc: func(_ context.Context, params persistence.CreateUserParams) (persistence.User, bool, error) {
			return persistence.User{UserID: params.UserID, Email: params.Email}, false, nil
		},
		promoteFunc: func(context.Context, uuid.UUID) error {
			return errors.New("db down")
		},
	}

	svc := newTestService(repo, "root@example.com")
	created, err := svc.Signup(context.Background(), SignupInput{UserID: uuid.New(), Email: "root@example.com"})
	require.NoError(t, err)
	require.False(t, created.IsSuperAdmin)
}

func TestSignupMapsConflict(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{
		createCandidateFunc: func(context.Context, persistence.CreateUserParams) (persistence.User, bool, error) {
			return persistence.User{}, false, persistence.ErrUserConflict
		},
	}

	svc := newTestService(repo, "")
	_, err := svc.Signup(context.Background(), SignupInput{UserID: uuid.New(), Email: "dup@example.com"})
	require.ErrorIs(t, err, ErrConflict)
}

func TestMeAggregatesMemberships(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	clubID := uuid.New()
	repo := &mockRepository{
		getFunc: func(_ context.Context, id uuid.UUID) (persistence.User, error) {
			return persistence.User{UserID: id, Email: "me@example.com"}, nil
		},
		listMembershipsFunc: func(context.Context, uuid.UUID) ([]persistence.Membership, error) {
			return []persistence.Membership{{ClubID: clubID, Roles: []string{"OWNER"}}}, nil
		},
	}

	svc := newTestService(repo, "")
	profile, err := svc.Me(context.Background(), userID)
	require.NoError(t, err)
	require.Equal(t, "me@example.com", profile.User.Email)
	require.Len(t, profile.Memberships, 1)
	require.Equal(t, clubID, profile.Memberships[0].ClubID)
}

func TestDemoteMapsLastSuperAdmin(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{
		demoteFunc: func(context.Context, uuid.UUID) error {
			return persistence.ErrLastSuperAdmin
		},
	}

	svc := newTestService(repo, "")
	_, err := svc.Demote(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrLastSuperAdmin)
}

func TestPromoteReturnsFreshRecord(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	repo := &mockRepository{
		promoteFunc: func(context.Context, uuid.UUID) error { return nil },
		getFunc: func(_ context.Context, id uuid.UUID) (persistence.User, error) {
			return persistence.User{UserID: id, IsSuperAdmin: true}, nil
		},
	}

	svc := newTestService(repo, "")
	user, err := svc.Promote(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, user.IsSuperAdmin)

	_, err = svc.Promote(context.Background(), uuid.Nil)
	require.ErrorIs(t, err, ErrNotFound)
}
