package main

import (
	"context"
	"database/sql"
	root "navguard"
	"navguard/internal/config"
	"navguard/pkg/logger"

	"github.com/pressly/goose/v3"
	"github.com/riverqueue/river/riverdriver/riverdatabasesql"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateListings applies the embedded goose migrations up to version, or to
// the latest one when version is zero.
func migrateListings(ctx context.Context, db *sql.DB, version int64) error {
	goose.SetBaseFS(root.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err //nolint: wrapcheck
	}

	if version > 0 {
		return goose.UpToContext(ctx, db, "migrations", version) //nolint: wrapcheck
	}

	return goose.UpContext(ctx, db, "migrations") //nolint: wrapcheck
}

// migrateRiver brings the River job tables to their latest version.
func migrateRiver(ctx context.Context, db *sql.DB) (int, error) {
	migrator, err := rivermigrate.New(riverdatabasesql.New(db), nil)
	if err != nil {
		return 0, err //nolint: wrapcheck
	}

	all := migrator.AllVersions()
	latest := all[len(all)-1].Version

	current := 0
	existing, err := migrator.ExistingVersions(ctx)
	if err != nil {
		return 0, err //nolint: wrapcheck
	}
	if len(existing) > 0 {
		current = existing[len(existing)-1].Version
	}
	if latest <= current {
		return current, nil
	}

	if _, err = migrator.Migrate(ctx, rivermigrate.DirectionUp, &rivermigrate.MigrateOpts{
		TargetVersion: latest,
	}); err != nil {
		return current, err //nolint: wrapcheck
	}

	return latest, nil
}

// migrateCommand constructs the 'migrate' subcommand that applies the listing
// schema migrations with goose and then the River job queue migrations.
func migrateCommand(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrates database to the latest version",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()
			version, _ := cmd.Flags().GetInt64("version")

			strg, closeStrg := getPostgres(ctx, cfg)
			defer closeStrg()

			db, ok := strg.DB.(*sql.DB)
			if !ok {
				logger.Fatal(ctx, "migrations need a non-transactional database handle")
			}

			if err := migrateListings(ctx, db, version); err != nil {
				logger.Fatal(ctx, "could not migrate listings schema", zap.Error(err))
			}

			riverVersion, err := migrateRiver(ctx, db)
			if err != nil {
				logger.Fatal(ctx, "could not migrate river queue schema", zap.Error(err))
			}

			logger.Info(ctx, "database migrated", zap.Int("riverVersion", riverVersion))
		},
	}

	cmd.Flags().Int64("version", 0, "Listings schema version to migrate up to (0 means latest)")

	return cmd
}
