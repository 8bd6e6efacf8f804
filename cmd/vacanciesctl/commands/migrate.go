package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/sweethome/vacancies-bot/internal/infrastructure/persistence/postgres"
)

func withMigrator(ctx context.Context, cmd *cli.Command, fn func(*postgres.Migrator) error) error {
	app, err := NewAppContext(ctx, cmd.String("env"))
	if err != nil {
		return err
	}
	defer app.Close()

	if app.Stores.Postgres == nil {
		return errNeedsPostgres
	}
	return fn(postgres.NewMigrator(app.Stores.Postgres))
}

// MigrateUpAction applies every pending migration.
func MigrateUpAction(ctx context.Context, cmd *cli.Command) error {
	return withMigrator(ctx, cmd, func(m *postgres.Migrator) error {
		n, err := m.Migrate(ctx)
		if err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		fmt.Fprintf(output, "applied %d migration(s)\n", n)
		return nil
	})
}

// MigrateDownAction rolls back the latest migration.
func MigrateDownAction(ctx context.Context, cmd *cli.Command) error {
	return withMigrator(ctx, cmd, func(m *postgres.Migrator) error {
		version, err := m.Rollback(ctx)
		if err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		if version == 0 {
			fmt.Fprintln(output, "nothing to roll back")
			return nil
		}
		fmt.Fprintf(output, "rolled back migration %d\n", version)
		return nil
	})
}

// MigrateStatusAction prints every known migration and whether it ran.
func MigrateStatusAction(ctx context.Context, cmd *cli.Command) error {
	return withMigrator(ctx, cmd, func(m *postgres.Migrator) error {
		status, err := m.Status(ctx)
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		return renderMigrations(status)
	})
}

func renderMigrations(status []postgres.Migration) error {
	table := newTable("Version", "Name", "Applied", "Applied At")
	for _, m := range status {
		appliedAt := "-"
		if m.IsApplied {
			appliedAt = m.AppliedAt.Format("2006-01-02 15:04:05")
		}
		if err := table.Append(m.Version, m.Name, m.IsApplied, appliedAt); err != nil {
			return err
		}
	}
	return table.Render()
}
