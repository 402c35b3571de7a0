package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/disgoorg/snowflake/v2"
	"github.com/threadkeep/threadkeep/internal/database"
	"github.com/threadkeep/threadkeep/internal/database/migrations"
	"github.com/threadkeep/threadkeep/internal/setup/config"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

var (
	ErrNameRequired   = errors.New("NAME argument required")
	ErrUserIDRequired = errors.New("USER_ID argument required")
)

func main() {
	if err := run(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	db, migrator, logger, err := setupMigrator()
	if err != nil {
		return fmt.Errorf("failed to setup migrator: %w", err)
	}
	defer db.Close()

	app := &cli.Command{
		Name:  "db",
		Usage: "Database management tool",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Initialize migration tables",
				Action: func(ctx context.Context, _ *cli.Command) error {
					return migrator.Init(ctx)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run pending migrations",
				Action: func(ctx context.Context, _ *cli.Command) error {
					if err := migrator.Lock(ctx); err != nil {
						return err
					}
					defer migrator.Unlock(ctx) //nolint:errcheck

					group, err := migrator.Migrate(ctx)
					if err != nil {
						return err
					}

					if group.IsZero() {
						logger.Info("No new migrations to run (database is up to date)")
						return nil
					}

					logger.Info("Successfully migrated",
						zap.String("group", group.String()))

					return nil
				},
			},
			{
				Name:  "rollback",
				Usage: "Rollback the last migration group",
				Action: func(ctx context.Context, _ *cli.Command) error {
					if err := migrator.Lock(ctx); err != nil {
						return err
					}
					defer migrator.Unlock(ctx) //nolint:errcheck

					group, err := migrator.Rollback(ctx)
					if err != nil {
						return err
					}

					if group.IsZero() {
						logger.Info("No migrations to rollback")
						return nil
					}

					logger.Info("Successfully rolled back",
						zap.String("group", group.String()))

					return nil
				},
			},
			{
				Name:  "status",
				Usage: "Show migration status",
				Action: func(ctx context.Context, _ *cli.Command) error {
					status, err := migrator.MigrationsWithStatus(ctx)
					if err != nil {
						return err
					}

					logger.Info("Migration status",
						zap.String("migrations", status.String()),
						zap.String("unapplied", status.Unapplied().String()),
						zap.String("last_group", status.LastGroup().String()))

					return nil
				},
			},
			{
				Name:      "create",
				Usage:     "Create a new Go migration file",
				ArgsUsage: "NAME",
				Action: func(ctx context.Context, c *cli.Command) error {
					name := c.Args().First()
					if name == "" {
						return ErrNameRequired
					}

					mf, err := migrator.CreateGoMigration(ctx, name)
					if err != nil {
						return err
					}

					logger.Info("Created migration",
						zap.String("name", mf.Name),
						zap.String("path", mf.Path))

					return nil
				},
			},
			{
				Name:  "ignore",
				Usage: "Manage globally opted-out accounts",
				Commands: []*cli.Command{
					{
						Name:      "add",
						Usage:     "Globally opt out a user",
						ArgsUsage: "USER_ID",
						Action: func(ctx context.Context, c *cli.Command) error {
							userID, err := parseUserID(c)
							if err != nil {
								return err
							}

							if err := db.Model().Ignored().Add(ctx, userID); err != nil {
								return err
							}

							logger.Info("Added ignored account",
								zap.Uint64("userID", uint64(userID)))

							return nil
						},
					},
					{
						Name:      "remove",
						Usage:     "Lift a user's global opt-out",
						ArgsUsage: "USER_ID",
						Action: func(ctx context.Context, c *cli.Command) error {
							userID, err := parseUserID(c)
							if err != nil {
								return err
							}

							if err := db.Model().Ignored().Remove(ctx, userID); err != nil {
								return err
							}

							logger.Info("Removed ignored account",
								zap.Uint64("userID", uint64(userID)))

							return nil
						},
					},
				},
			},
		},
	}

	return app.Run(context.Background(), os.Args)
}

func parseUserID(c *cli.Command) (snowflake.ID, error) {
	arg := c.Args().First()
	if arg == "" {
		return 0, ErrUserIDRequired
	}

	userID, err := snowflake.Parse(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid user id %q: %w", arg, err)
	}

	return userID, nil
}

func setupMigrator() (database.Client, *migrate.Migrator, *zap.Logger, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, nil, nil, err
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return nil, nil, nil, err
	}

	db, err := database.NewConnection(context.Background(), &cfg.PostgreSQL, logger, false)
	if err != nil {
		return nil, nil, nil, err
	}

	return db, migrate.NewMigrator(db.DB(), migrations.Migrations), logger, nil
}
