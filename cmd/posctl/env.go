package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/angelmondragon/posledger/internal/app"
	"github.com/angelmondragon/posledger/pkg/config"
	"github.com/angelmondragon/posledger/pkg/db"
	"github.com/angelmondragon/posledger/pkg/logger"
)

// env is the bootstrapped state shared by every command.
type env struct {
	cfg      *config.Config
	logg     *logger.Logger
	db       *db.Client
	services *app.Services
}

func (e *env) Close() {
	if e.db != nil {
		_ = e.db.Close()
	}
}

func bootstrap(c *cli.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.Service.Kind = "posctl"

	logg := logger.New(logger.Options{
		ServiceName: "posctl",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Output:      c.App.ErrWriter,
	})

	dbClient, err := db.New(c.Context, cfg.DB, logg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}
	services, err := app.NewServices(cfg.POS, dbClient, logg, nil)
	if err != nil {
		_ = dbClient.Close()
		return nil, fmt.Errorf("build ledger services: %w", err)
	}
	return &env{cfg: cfg, logg: logg, db: dbClient, services: services}, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
