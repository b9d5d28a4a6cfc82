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
)

const UsersTable = "users"

// User represents a row in the users table. The super-admin flag is the one
// platform-scoped privilege; everything else is per-club.
type User struct {
	UserID       uuid.UUID `db:"user_id"`
	Email        string    `db:"email"`
	FullName     string    `db:"full_name"`
	IsSuperAdmin bool      `db:"is_super_admin"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

var (
	// ErrUserNotFound indicates a missing user record.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserConflict indicates a uniqueness violation (duplicated email).
	ErrUserConflict = errors.New("user conflict")
	// ErrLastSuperAdmin indicates a demotion that would leave the platform
	// with zero super-admins.
	ErrLastSuperAdmin = errors.New("last super admin")
)

// UserStore exposes persistence helpers for the users table.
type UserStore struct {
	pool *pgxpool.Pool
}

// NewUserStore returns a store instance; assumes migrations already created the table.
func NewUserStore(pool *pgxpool.Pool) (*UserStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &UserStore{pool: pool}, nil
}

// CreateUserParams captures the fields required to insert a new user record.
type CreateUserParams struct {
	UserID   uuid.UUID
	Email    string
	FullName string
}

// Create inserts a new user and returns the persisted record.
func (s *UserStore) Create(ctx context.Context, params CreateUserParams) (User, error) {
	if params.UserID == uuid.Nil {
		return User{}, errors.New("user id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (user_id, email, full_name)
        VALUES ($1, $2, $3)
        RETURNING user_id, email, full_name, is_super_admin, created_at, updated_at
    `, UsersTable),
		params.UserID,
		strings.ToLower(strings.TrimSpace(params.Email)),
		strings.TrimSpace(params.FullName),
	)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrUserConflict
		}
		return User{}, err
	}

	return user, nil
}

// Get returns a single user by identifier.
func (s *UserStore) Get(ctx context.Context, id uuid.UUID) (User, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT user_id, email, full_name, is_super_admin, created_at, updated_at
        FROM %s WHERE user_id = $1
    `, UsersTable), id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	return user, nil
}

// GetByEmail returns a single user by email, compared case-insensitively.
func (s *UserStore) GetByEmail(ctx context.Context, email string) (User, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT user_id, email, full_name, is_super_admin, created_at, updated_at
        FROM %s WHERE LOWER(email) = LOWER($1)
    `, UsersTable), strings.TrimSpace(email))

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}

	return user, nil
}

// ListUsersParams captures filters and pagination for List.
type ListUsersParams struct {
	Page     int
	PageSize int
	Email    *string
}

// ListUsersResult includes the rows and the total count for pagination metadata.
type ListUsersResult struct {
	Users      []User
	TotalItems int
}

// List returns users matching the filters with pagination applied.
func (s *UserStore) List(ctx context.Context, params ListUsersParams) (ListUsersResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 20
	}
	if params.PageSize > 100 {
		params.PageSize = 100
	}

	whereParts := []string{"1=1"}
	var args []any

	if params.Email != nil && strings.TrimSpace(*params.Email) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*params.Email))+"%")
		whereParts = append(whereParts, fmt.Sprintf("LOWER(email) LIKE $%d", len(args)))
	}

	whereSQL := strings.Join(whereParts, " AND ")

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", UsersTable, whereSQL)
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return ListUsersResult{}, fmt.Errorf("count users: %w", err)
	}

	result := ListUsersResult{Users: []User{}, TotalItems: total}
	if total == 0 {
		return result, nil
	}

	dataArgs := append([]any{}, args...)
	dataArgs = append(dataArgs, params.PageSize, (params.Page-1)*params.PageSize)

	query := fmt.Sprintf(`
        SELECT user_id, email, full_name, is_super_admin, created_at, updated_at
        FROM %s
        WHERE %s
        ORDER BY created_at DESC
        LIMIT $%d OFFSET $%d
    `, UsersTable, whereSQL, len(dataArgs)-1, len(dataArgs))

	rows, err := s.pool.Query(ctx, query, dataArgs...)
	if err != nil {
		return ListUsersResult{}, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, scanErr := scanUser(rows)
		if scanErr != nil {
			return ListUsersResult{}, fmt.Errorf("scan user: %w", scanErr)
		}
		result.Users = append(result.Users, user)
	}

	if err = rows.Err(); err != nil {
		return ListUsersResult{}, fmt.Errorf("iterate users: %w", err)
	}

	return result, nil
}

// IsSuperAdmin reads the platform flag directly from the store. The guard
// pipeline calls this on every super-admin decision so demotions take effect
// on the next request; do not add caching here.
func (s *UserStore) IsSuperAdmin(ctx context.Context, id uuid.UUID) (bool, error) {
	var flag bool
	err := s.pool.QueryRow(ctx, fmt.Sprintf(
		`SELECT is_super_admin FROM %s WHERE user_id = $1`, UsersTable,
	), id).Scan(&flag)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrUserNotFound
		}
		return false, err
	}
	return flag, nil
}

// Promote sets the super-admin flag unconditionally. Idempotent: promoting an
// already-promoted user just rewrites TRUE.
func (s *UserStore) Promote(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET is_super_admin = TRUE, updated_at = NOW() WHERE user_id = $1`, UsersTable,
	), id)
	if err != nil {
		return fmt.Errorf("promote user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// bootstrapLockID is the advisory lock class serializing first-account
// bootstrap. Arbitrary but stable; must not collide with other advisory
// locks on the same database.
const bootstrapLockID int64 = 0x626f6f74

// CreateBootstrapCandidate inserts the user and, in the same transaction,
// promotes it iff no super-admin exists yet AND no other user exists. Insert
// and promotion must not be split across transactions: two concurrent first
// registrations whose inserts both commit before either evaluation would
// each see the other user and leave the platform with zero super-admins.
// The advisory lock queues concurrent signups, so the first commit wins the
// promotion and every later insert sees that row through the sole-user
// predicate.
func (s *UserStore) CreateBootstrapCandidate(ctx context.Context, params CreateUserParams) (User, bool, error) {
	if params.UserID == uuid.Nil {
		return User{}, false, errors.New("user id is required")
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return User{}, false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockID); err != nil {
		return User{}, false, fmt.Errorf("acquire bootstrap lock: %w", err)
	}

	row := tx.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (user_id, email, full_name)
        VALUES ($1, $2, $3)
        RETURNING user_id, email, full_name, is_super_admin, created_at, updated_at
    `, UsersTable),
		params.UserID,
		strings.ToLower(strings.TrimSpace(params.Email)),
		strings.TrimSpace(params.FullName),
	)

	user, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, false, ErrUserConflict
		}
		return User{}, false, err
	}

	tag, err := tx.Exec(ctx, fmt.Sprintf(`
        UPDATE %s SET is_super_admin = TRUE, updated_at = NOW()
        WHERE user_id = $1
          AND NOT EXISTS (SELECT 1 FROM %s WHERE is_super_admin)
          AND NOT EXISTS (SELECT 1 FROM %s WHERE user_id <> $1)
    `, UsersTable, UsersTable, UsersTable), params.UserID)
	if err != nil {
		return User{}, false, fmt.Errorf("bootstrap promote: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return User{}, false, fmt.Errorf("commit tx: %w", err)
	}

	promoted := tag.RowsAffected() == 1
	if promoted {
		user.IsSuperAdmin = true
	}
	return user, promoted, nil
}

// Demote clears the super-admin flag, refusing to zero the platform-wide
// count. The surviving super-admin rows are locked first so two concurrent
// demotions cannot each see the other as the survivor.
func (s *UserStore) Demote(ctx context.Context, id uuid.UUID) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, fmt.Sprintf(
		`SELECT user_id FROM %s WHERE is_super_admin FOR UPDATE`, UsersTable,
	))
	if err != nil {
		return fmt.Errorf("lock super admins: %w", err)
	}

	var admins []uuid.UUID
	for rows.Next() {
		var adminID uuid.UUID
		if err := rows.Scan(&adminID); err != nil {
			rows.Close()
			return fmt.Errorf("scan super admin: %w", err)
		}
		admins = append(admins, adminID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate super admins: %w", err)
	}

	isAdmin := false
	for _, adminID := range admins {
		if adminID == id {
			isAdmin = true
			break
		}
	}
	if !isAdmin {
		// Demoting a non-super-admin is a no-op, but the user must exist.
		var exists bool
		if err := tx.QueryRow(ctx, fmt.Sprintf(
			`SELECT EXISTS (SELECT 1 FROM %s WHERE user_id = $1)`, UsersTable,
		), id).Scan(&exists); err != nil {
			return fmt.Errorf("check user exists: %w", err)
		}
		if !exists {
			return ErrUserNotFound
		}
		return tx.Commit(ctx)
	}

	if len(admins) == 1 {
		return ErrLastSuperAdmin
	}

	if _, err := tx.Exec(ctx, fmt.Sprintf(
		`UPDATE %s SET is_super_admin = FALSE, updated_at = NOW() WHERE user_id = $1`, UsersTable,
	), id); err != nil {
		return fmt.Errorf("demote user: %w", err)
	}

	return tx.Commit(ctx)
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	if err := row.Scan(&user.UserID, &user.Email, &user.FullName, &user.IsSuperAdmin, &user.CreatedAt, &user.UpdatedAt); err != nil {
		return User{}, err
	}
	return user, nil
}
