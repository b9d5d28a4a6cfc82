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

const MembersTable = "members"

// Member is a club-scoped registry entry. Members are people the club manages;
// they are unrelated to user accounts and never log in.
type Member struct {
	MemberID  uuid.UUID  `db:"member_id"`
	ClubID    uuid.UUID  `db:"club_id"`
	MemberNo  string     `db:"member_no"`
	FirstName string     `db:"first_name"`
	LastName  string     `db:"last_name"`
	Email     *string    `db:"email"`
	JoinedOn  *time.Time `db:"joined_on"`
	ErasedAt  *time.Time `db:"erased_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

var (
	// ErrMemberNotFound indicates a missing member inside the caller's club.
	// It is returned identically whether the row does not exist at all or
	// belongs to another club.
	ErrMemberNotFound = errors.New("member not found")
	// ErrMemberConflict indicates a duplicated member number within the club.
	ErrMemberConflict = errors.New("member conflict")
)

// MemberStore exposes persistence helpers for the members table. Every query
// routes its filter or payload through the caller's Scope, so rows outside the
// resolved club are unreachable by construction.
type MemberStore struct {
	pool *pgxpool.Pool
}

// NewMemberStore returns a store instance; assumes migrations already created the table.
func NewMemberStore(pool *pgxpool.Pool) (*MemberStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &MemberStore{pool: pool}, nil
}

// CreateMemberParams captures the fields required to insert a member record.
type CreateMemberParams struct {
	MemberNo  string
	FirstName string
	LastName  string
	Email     *string
	JoinedOn  *time.Time
}

// Create inserts a member into the scope's club and returns the persisted record.
func (s *MemberStore) Create(ctx context.Context, scope Scope, params CreateMemberParams) (Member, error) {
	values := scope.Create(KindMembers, map[string]any{
		"member_id":  uuid.New(),
		"member_no":  strings.TrimSpace(params.MemberNo),
		"first_name": strings.TrimSpace(params.FirstName),
		"last_name":  strings.TrimSpace(params.LastName),
		"email":      params.Email,
		"joined_on":  params.JoinedOn,
	})

	columns, placeholders, args := buildInsert(values)
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (%s) VALUES (%s)
        RETURNING member_id, club_id, member_no, first_name, last_name, email, joined_on, erased_at, created_at, updated_at
    `, MembersTable, columns, placeholders), args...)

	member, err := scanMember(row)
	if err != nil {
		if isUniqueViolation(err) {
			return Member{}, ErrMemberConflict
		}
		return Member{}, err
	}

	return member, nil
}

// CreateMany bulk-inserts members, stamping every row with the scope's club.
func (s *MemberStore) CreateMany(ctx context.Context, scope Scope, paramsList []CreateMemberParams) ([]Member, error) {
	rows := make([]map[string]any, len(paramsList))
	for i, params := range paramsList {
		rows[i] = map[string]any{
			"member_id":  uuid.New(),
			"member_no":  strings.TrimSpace(params.MemberNo),
			"first_name": strings.TrimSpace(params.FirstName),
			"last_name":  strings.TrimSpace(params.LastName),
			"email":      params.Email,
			"joined_on":  params.JoinedOn,
		}
	}

	stamped := scope.CreateMany(KindMembers, rows)

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	members := make([]Member, 0, len(stamped))
	for _, values := range stamped {
		columns, placeholders, args := buildInsert(values)
		row := tx.QueryRow(ctx, fmt.Sprintf(`
            INSERT INTO %s (%s) VALUES (%s)
            RETURNING member_id, club_id, member_no, first_name, last_name, email, joined_on, erased_at, created_at, updated_at
        `, MembersTable, columns, placeholders), args...)

		member, scanErr := scanMember(row)
		if scanErr != nil {
			if isUniqueViolation(scanErr) {
				return nil, ErrMemberConflict
			}
			return nil, scanErr
		}
		members = append(members, member)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit bulk insert: %w", err)
	}

	return members, nil
}

// Get returns a single member visible to the scope.
func (s *MemberStore) Get(ctx context.Context, scope Scope, memberID uuid.UUID) (Member, error) {
	filter := scope.Read(KindMembers, map[string]any{"member_id": memberID})
	whereSQL, args := buildWhere(filter, 1)

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT member_id, club_id, member_no, first_name, last_name, email, joined_on, erased_at, created_at, updated_at
        FROM %s WHERE %s
    `, MembersTable, whereSQL), args...)

	member, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, ErrMemberNotFound
		}
		return Member{}, err
	}

	return member, nil
}

// ListMembersParams captures optional registry filters.
type ListMembersParams struct {
	LastName *string
	Page     int
	PageSize int
}

// ListMembersResult includes the rows and the total count for pagination metadata.
type ListMembersResult struct {
	Members    []Member
	TotalItems int
}

// List returns the scope's members with pagination applied.
func (s *MemberStore) List(ctx context.Context, scope Scope, params ListMembersParams) (ListMembersResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize <= 0 {
		params.PageSize = 50
	}
	if params.PageSize > 200 {
		params.PageSize = 200
	}

	rawFilter := map[string]any{}
	if params.LastName != nil && strings.TrimSpace(*params.LastName) != "" {
		rawFilter["last_name"] = strings.TrimSpace(*params.LastName)
	}
	filter := scope.Read(KindMembers, rawFilter)
	whereSQL, args := buildWhere(filter, 1)

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", MembersTable, whereSQL)
	if err := s.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return ListMembersResult{}, fmt.Errorf("count members: %w", err)
	}

	result := ListMembersResult{Members: []Member{}, TotalItems: total}
	if total == 0 {
		return result, nil
	}

	dataArgs := append([]any{}, args...)
	dataArgs = append(dataArgs, params.PageSize, (params.Page-1)*params.PageSize)

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT member_id, club_id, member_no, first_name, last_name, email, joined_on, erased_at, created_at, updated_at
        FROM %s
        WHERE %s
        ORDER BY member_no ASC
        LIMIT $%d OFFSET $%d
    `, MembersTable, whereSQL, len(dataArgs)-1, len(dataArgs)), dataArgs...)
	if err != nil {
		return ListMembersResult{}, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		member, scanErr := scanMember(rows)
		if scanErr != nil {
			return ListMembersResult{}, fmt.Errorf("scan member: %w", scanErr)
		}
		result.Members = append(result.Members, member)
	}

	if err = rows.Err(); err != nil {
		return ListMembersResult{}, fmt.Errorf("iterate members: %w", err)
	}

	return result, nil
}

// UpdateMemberParams captures the mutable registry fields. Nil means unchanged.
type UpdateMemberParams struct {
	FirstName *string
	LastName  *string
	Email     *string
	JoinedOn  *time.Time
}

// Update patches a member visible to the scope and returns the updated record.
func (s *MemberStore) Update(ctx context.Context, scope Scope, memberID uuid.UUID, params UpdateMemberParams) (Member, error) {
	filter := scope.Mutate(KindMembers, map[string]any{"member_id": memberID})

	setParts := []string{"updated_at = NOW()"}
	var setArgs []any

	addSet := func(column string, value any) {
		setArgs = append(setArgs, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(setArgs)))
	}

	if params.FirstName != nil {
		addSet("first_name", strings.TrimSpace(*params.FirstName))
	}
	if params.LastName != nil {
		addSet("last_name", strings.TrimSpace(*params.LastName))
	}
	if params.Email != nil {
		addSet("email", *params.Email)
	}
	if params.JoinedOn != nil {
		addSet("joined_on", *params.JoinedOn)
	}

	whereSQL, whereArgs := buildWhere(filter, len(setArgs)+1)
	args := append(setArgs, whereArgs...)

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s SET %s
        WHERE %s
        RETURNING member_id, club_id, member_no, first_name, last_name, email, joined_on, erased_at, created_at, updated_at
    `, MembersTable, strings.Join(setParts, ", "), whereSQL), args...)

	member, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, ErrMemberNotFound
		}
		return Member{}, err
	}

	return member, nil
}

// Delete removes a member row visible to the scope.
func (s *MemberStore) Delete(ctx context.Context, scope Scope, memberID uuid.UUID) error {
	filter := scope.Mutate(KindMembers, map[string]any{"member_id": memberID})
	whereSQL, args := buildWhere(filter, 1)

	tag, err := s.pool.Exec(ctx, fmt.Sprintf(
		"DELETE FROM %s WHERE %s", MembersTable, whereSQL,
	), args...)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// Erase blanks the personal fields of a member and stamps erased_at. The row
// and its member number survive so references from ledger entries stay valid.
func (s *MemberStore) Erase(ctx context.Context, scope Scope, memberID uuid.UUID) (Member, error) {
	filter := scope.Mutate(KindMembers, map[string]any{"member_id": memberID})
	whereSQL, args := buildWhere(filter, 1)

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        UPDATE %s SET
            first_name = '',
            last_name = '',
            email = NULL,
            erased_at = COALESCE(erased_at, NOW()),
            updated_at = NOW()
        WHERE %s
        RETURNING member_id, club_id, member_no, first_name, last_name, email, joined_on, erased_at, created_at, updated_at
    `, MembersTable, whereSQL), args...)

	member, err := scanMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, ErrMemberNotFound
		}
		return Member{}, err
	}

	return member, nil
}

func scanMember(row pgx.Row) (Member, error) {
	var member Member
	err := row.Scan(
		&member.MemberID,
		&member.ClubID,
		&member.MemberNo,
		&member.FirstName,
		&member.LastName,
		&member.Email,
		&member.JoinedOn,
		&member.ErasedAt,
		&member.CreatedAt,
		&member.UpdatedAt,
	)
	if err != nil {
		return Member{}, err
	}
	return member, nil
}
