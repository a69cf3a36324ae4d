// Command posctl is the operator CLI for maintenance tasks that must not wait
// for the cron worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/angelmondragon/posledger/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "posctl"})
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		logg.Error(ctx, "posctl failed", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "posctl",
		Usage: "operate the POS ledger",
		Commands: []*cli.Command{
			loyaltyDecayCommand(),
			reconcileCommand(),
			createStaffCommand(),
			cronCommand(),
		},
	}
}
