package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	"github.com/miltonyano/gostack-gobarber/internal/store/postgres"
	"github.com/miltonyano/gostack-gobarber/internal/store/postgres/migrations"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the Postgres schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(ctx context.Context, db *bun.DB) error {
				group, err := migrations.Up(ctx, db)
				if err != nil {
					return fmt.Errorf("migrate up: %w", err)
				}
				a.logGroup("migrated", group)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(ctx context.Context, db *bun.DB) error {
				group, err := migrations.Down(ctx, db)
				if err != nil {
					return fmt.Errorf("migrate down: %w", err)
				}
				a.logGroup("rolled back", group)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List applied and pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withDB(cmd.Context(), func(ctx context.Context, db *bun.DB) error {
				applied, pending, err := migrations.Status(ctx, db)
				if err != nil {
					return fmt.Errorf("migrate status: %w", err)
				}
				out := cmd.OutOrStdout()
				for _, m := range applied {
					fmt.Fprintf(out, "applied  %s (group %d)\n", m.Name, m.GroupID)
				}
				for _, m := range pending {
					fmt.Fprintf(out, "pending  %s\n", m.Name)
				}
				return nil
			})
		},
	})

	return cmd
}

func (a *app) withDB(ctx context.Context, fn func(ctx context.Context, db *bun.DB) error) error {
	db, err := openDatabase(a.cfg, a.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			a.log.Warn("database close failed", zap.Error(err))
		}
	}()
	return fn(ctx, db)
}

func (a *app) logGroup(action string, group *migrate.MigrationGroup) {
	if group == nil || group.IsZero() {
		a.log.Info("no migrations to apply", zap.String("action", action))
		return
	}
	a.log.Info(action, zap.Int64("group", group.ID), zap.String("migrations", group.Migrations.String()))
}
