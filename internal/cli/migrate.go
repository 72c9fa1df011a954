package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"checkout-trainer/internal/config"
	"checkout-trainer/internal/infra/memory"
	"checkout-trainer/internal/infra/postgres"
	pgmigrations "checkout-trainer/internal/infra/postgres/migrations"
	"checkout-trainer/internal/logging"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "load the built-in checkout questions after migrating")
	return cmd
}

func runMigrations(ctx context.Context, configPath string, seed bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logging.New("checkout-trainer", cfg.Log.Level, cfg.Log.Format)
	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return err
	}
	if !seed {
		return nil
	}

	db := openBun(cfg.Postgres.URL)
	defer db.Close()
	questions := memory.SampleQuestions()
	if err := postgres.NewStore(db).SeedQuestions(ctx, questions); err != nil {
		return err
	}
	log.WithField("count", len(questions)).Info("questions seeded")
	return nil
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, log *logrus.Entry) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	db := openBun(cfg.Postgres.URL)
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Info("no new migrations")
		return nil
	}
	log.WithField("group", group.String()).Info("migrations applied")
	return nil
}

func openBun(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}
