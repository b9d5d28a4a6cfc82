package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/clubstack/clubstack/platform/go/persistence"
	"github.com/clubstack/clubstack/platform/go/tenant"
)

type mockRepository struct {
	createFunc     func(ctx context.Context, scope persistence.Scope, params persistence.CreateMemberParams) (persistence.Member, error)
	createManyFunc func(ctx context.Context, scope persistence.Scope, params []persistence.CreateMemberParams) ([]persistence.Member, error)
	getFunc        func(ctx context.Context, scope persistence.Scope, memberID uuid.UUID) (persistence.Member, error)
	listFunc       func(ctx context.Context, scope persistence.Scope, params persistence.ListMembersParams) (persistence.ListMembersResult, error)
	updateFunc     func(ctx context.Context, scope persistence.Scope, memberID uuid.UUID, params persistence.UpdateMemberParams) (persistence.Member, error)
	deleteFunc     func(ctx context.Context, scope persistence.Scope, memberID uuid.UUID) error
	eraseFunc      func(ctx context.Context, scope persistence.Scope, memberID uuid.UUID) (persistence.Member, error)
}

func (m *mockRepository) Create(ctx context.Context, scope persistence.Scope, params persistence.CreateMemberParams) (persistence.Member, error) {
	return m.createFunc(ctx, scope, params)
}

func (m *mockRepository) CreateMany(ctx context.Context, scope persistence.Scope, params []persistence.CreateMemberParams) ([]persistence.Member, error) {
	return m.createManyFunc(ctx, scope, params)
}

func (m *mockRepository) Get(ctx context.Context, scope persistence.Scope, memberID uuid.UUID) (persistence.Member, error) {
	return m.getFunc(ctx, scope, memberID)
}

func (m *mockRepository) List(ctx context.Context, scope persistence.Scope, params persistence.ListMembersParams) (persistence.ListMembersResult, error) {
	return m.listFunc(ctx, scope, params)
}

func (m *mockRepository) Update(ctx context.Context, scope persistence.Scope, memberID uuid.UUID, params persistence.UpdateMemberParams) (persistence.Member, error) {
	return m.updateFunc(ctx, scope, memberID, params)
}

func (m *mockRepository) Delete(ctx context.Context, scope persistence.Scope, memberID uuid.UUID) error {
	return m.deleteFunc(ctx, scope, memberID)
}

func (m *mockRepository) Erase(ctx context.Context, scope persistence.Scope, memberID uuid.UUID) (persistence.Member, error) {
	return m.eraseFunc(ctx, scope, memberID)
}

func scopedCtx(clubID uuid.UUID) context.Context {
	return tenant.WithContext(context.Background(), tenant.Context{
		UserID: uuid.New(),
		ClubID: clubID,
	})
}

func TestCreateStampsScopeFromContext(t *testing.T) {
	t.Parallel()

	clubID := uuid.New()
	var capturedScope persistence.Scope
	repo := &mockRepository{
		createFunc: func(_ context.Context, scope persistence.Scope, params persistence.CreateMemberParams) (persistence.Member, error) {
			capturedScope = scope
			return persistence.Member{MemberID: uuid.New(), ClubID: scope.ClubID, MemberNo: params.MemberNo, LastName: params.LastName}, nil
		},
	}

	svc := New(repo)
	created, err := svc.Create(scopedCtx(clubID), CreateInput{MemberNo: "001", LastName: "Meier"})
	require.NoError(t, err)
	require.Equal(t, clubID, capturedScope.ClubID)
	require.Equal(t, "001", created.MemberNo)
}

func TestCreateValidation(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{})
	badEmail := "not-an-email"

	_, err := svc.Create(scopedCtx(uuid.New()), CreateInput{Email: &badEmail})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "memberNo")
	require.Contains(t, validationErr.Fields, "lastName")
	require.Contains(t, validationErr.Fields, "email")
}

func TestOperationsRequireClubContext(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{})

	_, err := svc.Create(context.Background(), CreateInput{MemberNo: "001", LastName: "Meier"})
	require.Error(t, err)
	_, err = svc.List(context.Background(), ListOptions{})
	require.Error(t, err)
	_, err = svc.Erase(context.Background(), uuid.New())
	require.Error(t, err)
}

func TestImportRejectsEmptyAndInvalidBatches(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{})
	ctx := scopedCtx(uuid.New())

	_, err := svc.Import(ctx, nil)
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	_, err = svc.Import(ctx, []CreateInput{
		{MemberNo: "001", LastName: "Ok"},
		{MemberNo: "", LastName: "Broken"},
	})
	require.ErrorAs(t, err, &validationErr)
}

func TestImportMapsConflict(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{
		createManyFunc: func(context.Context, persistence.Scope, []persistence.CreateMemberParams) ([]persistence.Member, error) {
			return nil, persistence.ErrMemberConflict
		},
	}

	svc := New(repo)
	_, err := svc.Import(scopedCtx(uuid.New()), []CreateInput{{MemberNo: "001", LastName: "Dup"}})
	require.ErrorIs(t, err, ErrConflict)
}

func TestUpdateRequiresAtLeastOneField(t *testing.T) {
	t.Parallel()

	svc := New(&mockRepository{})
	_, err := svc.Update(scopedCtx(uuid.New()), uuid.New(), UpdateInput{})

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
}

func TestEraseMapsResult(t *testing.T) {
	t.Parallel()

	memberID := uuid.New()
	repo := &mockRepository{
		eraseFunc: func(_ context.Context, _ persistence.Scope, id uuid.UUID) (persistence.Member, error) {
			now := time.Now()
			return persistence.Member{MemberID: id, MemberNo: "042", ErasedAt: &now}, nil
		},
	}

	svc := New(repo)
	erased, err := svc.Erase(scopedCtx(uuid.New()), memberID)
	require.NoError(t, err)
	require.True(t, erased.Erased)
	require.Equal(t, "042", erased.MemberNo)
}

func TestGetMapsNotFound(t *testing.T) {
	t.Parallel()

	repo := &mockRepository{
		getFunc: func(context.Context, persistence.Scope, uuid.UUID) (persistence.Member, error) {
			return persistence.Member{}, persistence.ErrMemberNotFound
		},
	}

	svc := New(repo)
	_, err := svc.Get(scopedCtx(uuid.New()), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}
