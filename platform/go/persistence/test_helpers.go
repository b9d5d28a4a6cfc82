package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/clubstack/clubstack/database"
)

// applyCoreSchemaDDL executes the embedded base schema. Tests call this helper
// so they can bootstrap a clean database with the same DDL the Docker init
// scripts apply.
func applyCoreSchemaDDL(ctx context.Context, pool *pgxpool.Pool) error {
	for _, asset := range sqlassets.CoreSchema() {
		for _, raw := range strings.Split(asset, ";") {
			stmt := strings.TrimSpace(raw)
			if stmt == "" {
				continue
			}
			if _, err := pool.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply core schema ddl: %w", err)
			}
		}
	}
	return nil
}

// truncateCoreTables wipes all rows between tests, children first.
func truncateCoreTables(ctx context.Context, pool *pgxpool.Pool) error {
	tables := []string{LedgerAccountsTable, MembersTable, MembershipsTable, ClubsTable, UsersTable}
	for _, table := range tables {
		if _, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}
