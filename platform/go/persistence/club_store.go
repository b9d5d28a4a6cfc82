package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clubstack/clubstack/platform/go/tenant"
)

const ClubsTable = "clubs"

// DeletionGraceDays is how long a deactivated club is retained before it
// becomes eligible for permanent deletion.
const DeletionGraceDays = 90

// Club represents a row in the clubs table.
type Club struct {
	ClubID              uuid.UUID  `db:"club_id"`
	Slug                string     `db:"slug"`
	Name                string     `db:"name"`
	TierID              string     `db:"tier_id"`
	Settings            []byte     `db:"settings"`
	DeactivatedAt       *time.Time `db:"deactivated_at"`
	ScheduledDeletionAt *time.Time `db:"scheduled_deletion_at"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

// Deactivated reports whether the club is in the deactivation window.
func (c Club) Deactivated() bool {
	return c.DeactivatedAt != nil
}

var (
	// ErrClubNotFound indicates a missing or soft-deleted club record.
	ErrClubNotFound = errors.New("club not found")
	// ErrClubConflict indicates a uniqueness violation (duplicated slug).
	ErrClubConflict = errors.New("club conflict")
)

// ClubStore exposes persistence helpers for the clubs table. It also
// implements tenant.Resolver and tenant.ClubLookup for the guard pipeline.
type ClubStore struct {
	pool *pgxpool.Pool
}

// NewClubStore returns a store instance; assumes migrations already created the table.
func NewClubStore(pool *pgxpool.Pool) (*ClubStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &ClubStore{pool: pool}, nil
}

// CreateClubParams captures the fields required to insert a new club record.
type CreateClubParams struct {
	Slug     string
	Name     string
	TierID   string
	Settings []byte
}

// Create inserts a new club and returns the persisted record.
func (s *ClubStore) Create(ctx context.Context, params CreateClubParams) (Club, error) {
	slug := strings.ToLower(strings.TrimSpace(params.Slug))
	if slug == "" {
		return Club{}, errors.New("slug is required")
	}

	settings := params.Settings
	if len(settings) == 0 {
		settings = []byte("{}")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (club_id, slug, name, tier_id, settings)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING club_id, slug, name, tier_id, settings, deactivated_at, scheduled_deletion_at, created_at, updated_at
    `, ClubsTable),
		uuid.New(),
		slug,
		strings.TrimSpace(params.Name),
		params.TierID,
		settings,
	)

	club, err := scanClub(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Club{}, ErrClubConflict
		}
		return Club{}, err
	}

	return club, nil
}

// GetBySlug returns a single club by its slug. Soft-deleted clubs are invisible.
func (s *ClubStore) GetBySlug(ctx context.Context, slug string) (Club, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT club_id, slug, name, tier_id, settings, deactivated_at, scheduled_deletion_at, created_at, updated_at
        FROM %s WHERE slug = $1 AND deleted_at IS NULL
    `, ClubsTable), strings.ToLower(strings.TrimSpace(slug)))

	club, err := scanClub(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Club{}, ErrClubNotFound
		}
		return Club{}, err
	}

	return club, nil
}

// ListClubsParams captures filters and pagination for List.
type ListClubsParams struct {
	Page     int
	PageSize int
}

// ListClubsResult includes the rows and the total count for pagination metadata.
type ListClubsResult struct {
	Clubs      []Club
	TotalItems int
}

// List returns clubs ordered by creation time with pagination applied.
func (s *ClubStore) List(ctx context.Context, params ListClubsParams) (ListClubsResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 20
	}
	if params.PageSize > 100 {
		params.PageSize = 100
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE deleted_at IS NULL", ClubsTable)
	if err := s.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return ListClubsResult{}, fmt.Errorf("count clubs: %w", err)
	}

	result := ListClubsResult{Clubs: []Club{}, TotalItems: total}
	if total == 0 {
		return result, nil
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT club_id, slug, name, tier_id, settings, deactivated_at, scheduled_deletion_at, created_at, updated_at
        FROM %s
        WHERE deleted_at IS NULL
        ORDER BY created_at DESC
        LIMIT $1 OFFSET $2
    `, ClubsTable), params.PageSize, (params.Page-1)*params.PageSize)
	if err != nil {
		return ListClubsResult{}, fmt.Errorf("list clubs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		club, scanErr := scanClub(rows)
		if scanErr != nil {
			return ListClubsResult{}, fmt.Errorf("scan club: %w", scanErr)
		}
		result.Clubs = append(result.Clubs, club)
	}

	if err = rows.Err(); err != nil {
		return ListClubsResult{}, fmt.Errorf("iterate clubs: %w", err)
	}

	return result, nil
}

// UpdateSettings replaces the settings document and optionally the display name.
func (s *ClubStore) UpdateSettings(ctx context.Context, clubID uuid.UUID, name *string, settings []byte) (Club, error) {
	setParts := []string{"updated_at = NOW()"}
	args := []any{clubID}

	if name != nil {
		args = append(args, strings.TrimSpace(*name))
		setParts = append(setParts, fmt.Sprintf("name = $%d", len(args)))
	}
	if settings != nil {
		args = append(args, settings)
		setParts = append(setParts, fmt.Sprintf("settings = $%d", len(args)))
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s SET %s
        WHERE club_id = $1 AND deleted_at IS NULL
        RETURNING club_id, slug, name, tier_id, settings, deactivated_at, scheduled_deletion_at, created_at, updated_at
    `, ClubsTable, strings.Join(setParts, ", ")), args...)

	club, err := scanClub(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Club{}, ErrClubNotFound
		}
		return Club{}, err
	}

	return club, nil
}

// UpdateTier changes the club's tier assignment. Platform-admin operation.
func (s *ClubStore) UpdateTier(ctx context.Context, clubID uuid.UUID, tierID string) (Club, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s SET tier_id = $2, updated_at = NOW()
        WHERE club_id = $1 AND deleted_at IS NULL
        RETURNING club_id, slug, name, tier_id, settings, deactivated_at, scheduled_deletion_at, created_at, updated_at
    `, ClubsTable), clubID, tierID)

	club, err := scanClub(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Club{}, ErrClubNotFound
		}
		return Club{}, err
	}

	return club, nil
}

// Deactivate marks the club read-only and schedules its permanent deletion.
// Idempotent: re-deactivating keeps the original timestamps.
func (s *ClubStore) Deactivate(ctx context.Context, clubID uuid.UUID) (Club, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s SET
            deactivated_at = COALESCE(deactivated_at, NOW()),
            scheduled_deletion_at = COALESCE(scheduled_deletion_at, NOW() + make_interval(days => $2)),
            updated_at = NOW()
        WHERE club_id = $1 AND deleted_at IS NULL
        RETURNING club_id, slug, name, tier_id, settings, deactivated_at, scheduled_deletion_at, created_at, updated_at
    `, ClubsTable), clubID, DeletionGraceDays)

	club, err := scanClub(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Club{}, ErrClubNotFound
		}
		return Club{}, err
	}

	return club, nil
}

// Reactivate clears the deactivation window, cancelling the scheduled deletion.
func (s *ClubStore) Reactivate(ctx context.Context, clubID uuid.UUID) (Club, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s SET
            deactivated_at = NULL,
            scheduled_deletion_at = NULL,
            updated_at = NOW()
        WHERE club_id = $1 AND deleted_at IS NULL
        RETURNING club_id, slug, name, tier_id, settings, deactivated_at, scheduled_deletion_at, created_at, updated_at
    `, ClubsTable), clubID)

	club, err := scanClub(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Club{}, ErrClubNotFound
		}
		return Club{}, err
	}

	return club, nil
}

// Resolve loads the caller's active membership in the club identified by slug.
// One round trip returns everything the request pipeline needs: club identity,
// tier, deactivation state and the caller's roles. pgx.ErrNoRows collapses
// "club missing" and "not a member" into tenant.ErrNoContext on purpose.
func (s *ClubStore) Resolve(ctx context.Context, userID uuid.UUID, slug string) (tenant.Membership, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT c.club_id, c.slug, c.tier_id, c.deactivated_at IS NOT NULL, m.roles
        FROM %s c
        JOIN %s m ON m.club_id = c.club_id
        WHERE c.slug = $1
          AND c.deleted_at IS NULL
          AND m.user_id = $2
          AND m.status = 'ACTIVE'
    `, ClubsTable, MembershipsTable), strings.ToLower(strings.TrimSpace(slug)), userID)

	var membership tenant.Membership
	err := row.Scan(
		&membership.ClubID,
		&membership.ClubSlug,
		&membership.TierID,
		&membership.Deactivated,
		&membership.Roles,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tenant.Membership{}, tenant.ErrNoContext
		}
		return tenant.Membership{}, fmt.Errorf("resolve membership: %w", err)
	}

	return membership, nil
}

// LookupClub loads club identity without a membership requirement. Only the
// super-admin fallback in the guard uses this path.
func (s *ClubStore) LookupClub(ctx context.Context, slug string) (tenant.Membership, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT club_id, slug, tier_id, deactivated_at IS NOT NULL
        FROM %s WHERE slug = $1 AND deleted_at IS NULL
    `, ClubsTable), strings.ToLower(strings.TrimSpace(slug)))

	var membership tenant.Membership
	err := row.Scan(
		&membership.ClubID,
		&membership.ClubSlug,
		&membership.TierID,
		&membership.Deactivated,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return tenant.Membership{}, tenant.ErrNoContext
		}
		return tenant.Membership{}, fmt.Errorf("lookup club: %w", err)
	}

	return membership, nil
}

func scanClub(row pgx.Row) (Club, error) {
	var club Club
	err := row.Scan(
		&club.ClubID,
		&club.Slug,
		&club.Name,
		&club.TierID,
		&club.Settings,
		&club.DeactivatedAt,
		&club.ScheduledDeletionAt,
		&club.CreatedAt,
		&club.UpdatedAt,
	)
	if err != nil {
		return Club{}, err
	}
	return club, nil
}
