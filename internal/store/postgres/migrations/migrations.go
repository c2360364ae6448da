package migrations

import (
	"context"
	"embed"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed *.sql
var sqlMigrations embed.FS

var Migrations = migrate.NewMigrations()

func init() {
	if err := Migrations.Discover(sqlMigrations); err != nil {
		panic(err)
	}
}

func newMigrator(ctx context.Context, db *bun.DB) (*migrate.Migrator, error) {
	m := migrate.NewMigrator(db, Migrations)
	if err := m.Init(ctx); err != nil {
		return nil, fmt.Errorf("init migration tables: %w", err)
	}
	return m, nil
}

// Up applies every pending migration as one group.
func Up(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	m, err := newMigrator(ctx, db)
	if err != nil {
		return nil, err
	}
	if err := m.Lock(ctx); err != nil {
		return nil, err
	}
	defer m.Unlock(ctx) //nolint:errcheck

	return m.Migrate(ctx)
}

// Down rolls back the last applied group.
func Down(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	m, err := newMigrator(ctx, db)
	if err != nil {
		return nil, err
	}
	if err := m.Lock(ctx); err != nil {
		return nil, err
	}
	defer m.Unlock(ctx) //nolint:errcheck

	return m.Rollback(ctx)
}

func Status(ctx context.Context, db *bun.DB) (applied, pending migrate.MigrationSlice, err error) {
	m, err := newMigrator(ctx, db)
	if err != nil {
		return nil, nil, err
	}
	ms, err := m.MigrationsWithStatus(ctx)
	if err != nil {
		return nil, nil, err
	}
	return ms.Applied(), ms.Unapplied(), nil
}
