package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/angelmondragon/posledger/pkg/config"
	"github.com/angelmondragon/posledger/pkg/db"
	"github.com/angelmondragon/posledger/pkg/logger"
	"github.com/angelmondragon/posledger/pkg/migrate"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "migrate",
		Usage: "apply and inspect the ledger schema migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Value: migrate.DefaultDir, Usage: "goose migrations directory"},
		},
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "apply all pending migrations",
				Action: withDB(logg, func(ctx context.Context, sqlDB *sql.DB, dir string, _ *cli.Context) error {
					return migrate.Run(ctx, sqlDB, dir, "up")
				}),
			},
			{
				Name:   "down",
				Usage:  "roll back the latest migration",
				Action: withDB(logg, func(ctx context.Context, sqlDB *sql.DB, dir string, _ *cli.Context) error {
					return migrate.Run(ctx, sqlDB, dir, "down")
				}),
			},
			{
				Name:   "status",
				Usage:  "print applied and pending migrations",
				Action: withDB(logg, func(ctx context.Context, sqlDB *sql.DB, dir string, _ *cli.Context) error {
					return migrate.Run(ctx, sqlDB, dir, "status")
				}),
			},
			{
				Name:  "version",
				Usage: "migrate up or down to a target version",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "to", Required: true, Usage: "target version (YYYYMMDDHHMMSS)"},
				},
				Action: withDB(logg, func(ctx context.Context, sqlDB *sql.DB, dir string, c *cli.Context) error {
					return migrate.MigrateToVersion(ctx, sqlDB, dir, c.String("to"))
				}),
			},
			{
				Name:  "create",
				Usage: "scaffold a new SQL migration",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "name", Required: true},
				},
				Action: func(c *cli.Context) error {
					path, err := migrate.CreateSQLMigration(c.String("dir"), c.String("name"))
					if err != nil {
						return fmt.Errorf("create migration: %w", err)
					}
					fmt.Fprintln(c.App.Writer, "created migration:", path)
					return nil
				},
			},
			{
				Name:  "validate",
				Usage: "check migration file names and goose annotations",
				Action: func(c *cli.Context) error {
					if err := migrate.ValidateDir(c.String("dir")); err != nil {
						return fmt.Errorf("migration validation failed: %w", err)
					}
					fmt.Fprintln(c.App.Writer, "migration validation passed")
					return nil
				},
			},
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		logg.Error(context.Background(), "migrate failed", err)
		os.Exit(1)
	}
}

type dbAction func(ctx context.Context, sqlDB *sql.DB, dir string, c *cli.Context) error

// withDB loads config, opens postgres and hands the raw *sql.DB to fn.
func withDB(logg *logger.Logger, fn dbAction) cli.ActionFunc {
	return func(c *cli.Context) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logg = logger.New(logger.Options{
			ServiceName: "migrate",
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
		})
		ctx := logg.WithFields(c.Context, map[string]any{
			"env": cfg.App.Env,
			"cmd": c.Command.Name,
			"dir": c.String("dir"),
		})

		dbClient, err := db.New(ctx, cfg.DB, logg)
		if err != nil {
			return fmt.Errorf("bootstrap database: %w", err)
		}
		defer dbClient.Close()

		sqlDB, err := dbClient.DB().DB()
		if err != nil {
			return fmt.Errorf("sql database: %w", err)
		}

		logg.Info(ctx, "migrate ready")
		if err := fn(ctx, sqlDB, c.String("dir"), c); err != nil {
			return fmt.Errorf("goose %s: %w", c.Command.Name, err)
		}
		return nil
	}
}
