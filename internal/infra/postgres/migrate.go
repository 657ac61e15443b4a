package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"weekly-trivia/internal/infra/postgres/migrations"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

// Migrate applies pending schema migrations and returns the names applied.
func Migrate(ctx context.Context, dsn string) ([]string, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres url not configured")
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migrations: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	var applied []string
	if group != nil {
		for _, m := range group.Migrations {
			applied = append(applied, m.Name)
		}
	}
	return applied, nil
}
