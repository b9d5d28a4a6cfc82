package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const MembershipsTable = "memberships"

// Membership statuses. Removed rows are kept for the audit trail; all reads
// that feed authorization filter on ACTIVE.
const (
	MembershipActive  = "ACTIVE"
	MembershipRemoved = "REMOVED"
)

// Membership links a user account to a club with one or more roles.
type Membership struct {
	MembershipID uuid.UUID `db:"membership_id"`
	ClubID       uuid.UUID `db:"club_id"`
	UserID       uuid.UUID `db:"user_id"`
	Roles        []string  `db:"roles"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

var (
	// ErrMembershipNotFound indicates no active membership for the pair.
	ErrMembershipNotFound = errors.New("membership not found")
	// ErrMembershipConflict indicates the user already has an active membership.
	ErrMembershipConflict = errors.New("membership conflict")
)

// MembershipStore exposes persistence helpers for the memberships table.
type MembershipStore struct {
	pool *pgxpool.Pool
}

// NewMembershipStore returns a store instance; assumes migrations already created the table.
func NewMembershipStore(pool *pgxpool.Pool) (*MembershipStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &MembershipStore{pool: pool}, nil
}

// CreateMembershipParams captures the fields required to insert a membership.
type CreateMembershipParams struct {
	ClubID uuid.UUID
	UserID uuid.UUID
	Roles  []string
}

// Create inserts an active membership and returns the persisted record.
func (s *MembershipStore) Create(ctx context.Context, params CreateMembershipParams) (Membership, error) {
	if len(params.Roles) == 0 {
		return Membership{}, errors.New("at least one role is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (membership_id, club_id, user_id, roles, status)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING membership_id, club_id, user_id, roles, status, created_at, updated_at
    `, MembershipsTable),
		uuid.New(),
		params.ClubID,
		params.UserID,
		params.Roles,
		MembershipActive,
	)

	membership, err := scanMembership(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Membership{}, ErrMembershipConflict
		}
		return Membership{}, err
	}

	return membership, nil
}

// GetActive returns the caller's active membership in a club.
func (s *MembershipStore) GetActive(ctx context.Context, clubID, userID uuid.UUID) (Membership, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT membership_id, club_id, user_id, roles, status, created_at, updated_at
        FROM %s WHERE club_id = $1 AND user_id = $2 AND status = $3
    `, MembershipsTable), clubID, userID, MembershipActive)

	membership, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Membership{}, ErrMembershipNotFound
		}
		return Membership{}, err
	}

	return membership, nil
}

// ListByClub returns all active memberships of a club, oldest first.
func (s *MembershipStore) ListByClub(ctx context.Context, clubID uuid.UUID) ([]Membership, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT membership_id, club_id, user_id, roles, status, created_at, updated_at
        FROM %s WHERE club_id = $1 AND status = $2
        ORDER BY created_at ASC
    `, MembershipsTable), clubID, MembershipActive)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	memberships := []Membership{}
	for rows.Next() {
		membership, scanErr := scanMembership(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan membership: %w", scanErr)
		}
		memberships = append(memberships, membership)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}

	return memberships, nil
}

// ListByUser returns all clubs the user actively belongs to, with slugs, for
// the profile endpoint.
func (s *MembershipStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]Membership, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT membership_id, club_id, user_id, roles, status, created_at, updated_at
        FROM %s WHERE user_id = $1 AND status = $2
        ORDER BY created_at ASC
    `, MembershipsTable), userID, MembershipActive)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	memberships := []Membership{}
	for rows.Next() {
		membership, scanErr := scanMembership(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan membership: %w", scanErr)
		}
		memberships = append(memberships, membership)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate memberships: %w", err)
	}

	return memberships, nil
}

// UpdateRoles replaces the role set of an active membership.
func (s *MembershipStore) UpdateRoles(ctx context.Context, clubID, userID uuid.UUID, roles []string) (Membership, error) {
	if len(roles) == 0 {
		return Membership{}, errors.New("at least one role is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s SET roles = $4, updated_at = NOW()
        WHERE club_id = $1 AND user_id = $2 AND status = $3
        RETURNING membership_id, club_id, user_id, roles, status, created_at, updated_at
    `, MembershipsTable), clubID, userID, MembershipActive, roles)

	membership, err := scanMembership(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Membership{}, ErrMembershipNotFound
		}
		return Membership{}, err
	}

	return membership, nil
}

// Remove flips the membership to REMOVED. The row stays for auditability.
func (s *MembershipStore) Remove(ctx context.Context, clubID, userID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET status = $4, updated_at = NOW()
        WHERE club_id = $1 AND user_id = $2 AND status = $3
    `, MembershipsTable), clubID, userID, MembershipActive, MembershipRemoved)
	if err != nil {
		return fmt.Errorf("remove membership: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMembershipNotFound
	}
	return nil
}

// TransferOwnership moves the OWNER role from one active member to another in
// a single transaction. Both rows are locked so two concurrent transfers
// serialize; the source loses OWNER (keeping any other roles, falling back to
// ADMIN when OWNER was its only role) and the target gains it.
func (s *MembershipStore) TransferOwnership(ctx context.Context, clubID, fromUserID, toUserID uuid.UUID, ownerRole, fallbackRole string) error {
	if fromUserID == toUserID {
		return errors.New("cannot transfer ownership to self")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lock := func(userID uuid.UUID) (Membership, error) {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
            SELECT membership_id, club_id, user_id, roles, status, created_at, updated_at
            FROM %s WHERE club_id = $1 AND user_id = $2 AND status = $3
            FOR UPDATE
        `, MembershipsTable), clubID, userID, MembershipActive)
		return scanMembership(row)
	}

	from, err := lock(fromUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMembershipNotFound
		}
		return err
	}
	to, err := lock(toUserID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrMembershipNotFound
		}
		return err
	}

	if !containsRole(from.Roles, ownerRole) {
		return fmt.Errorf("source membership does not hold %s", ownerRole)
	}

	fromRoles := removeRole(from.Roles, ownerRole)
	if len(fromRoles) == 0 {
		fromRoles = []string{fallbackRole}
	}
	toRoles := to.Roles
	if !containsRole(toRoles, ownerRole) {
		toRoles = append(append([]string{}, toRoles...), ownerRole)
	}

	update := func(membershipID uuid.UUID, roles []string) error {
		_, execErr := tx.Exec(ctx, fmt.Sprintf(`
            UPDATE %s SET roles = $2, updated_at = NOW() WHERE membership_id = $1
        `, MembershipsTable), membershipID, roles)
		return execErr
	}

	if err := update(from.MembershipID, fromRoles); err != nil {
		return fmt.Errorf("update source roles: %w", err)
	}
	if err := update(to.MembershipID, toRoles); err != nil {
		return fmt.Errorf("update target roles: %w", err)
	}

	return tx.Commit(ctx)
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func removeRole(roles []string, role string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r != role {
			out = append(out, r)
		}
	}
	return out
}

func scanMembership(row pgx.Row) (Membership, error) {
	var membership Membership
	err := row.Scan(
		&membership.MembershipID,
		&membership.ClubID,
		&membership.UserID,
		&membership.Roles,
		&membership.Status,
		&membership.CreatedAt,
		&membership.UpdatedAt,
	)
	if err != nil {
		return Membership{}, err
	}
	return membership, nil
}
