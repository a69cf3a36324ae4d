package app

import (
	"fmt"

	"github.com/angelmondragon/posledger/internal/cron"
	"github.com/angelmondragon/posledger/pkg/config"
	"github.com/angelmondragon/posledger/pkg/db"
	"github.com/angelmondragon/posledger/pkg/logger"
	"github.com/angelmondragon/posledger/pkg/outbox"
)

// CronRegistry registers the maintenance jobs run by the cron worker and
// posctl.
func CronRegistry(cfg *config.Config, client *db.Client, svcs *Services, logg *logger.Logger) (*cron.Registry, error) {
	decay, err := cron.NewLoyaltyDecayJob(cron.LoyaltyDecayJobParams{
		Logger:      logg,
		Loyalty:     svcs.Loyalty,
		WindowHours: cfg.POS.DecayWindowHours,
		Percent:     cfg.POS.DecayPercent,
	})
	if err != nil {
		return nil, fmt.Errorf("loyalty decay job: %w", err)
	}
	totals, err := cron.NewRegisterTotalsJob(cron.RegisterTotalsJobParams{
		Logger:    logg,
		Registers: svcs.Registers,
	})
	if err != nil {
		return nil, fmt.Errorf("register totals job: %w", err)
	}
	lowStock, err := cron.NewLowStockJob(cron.LowStockJobParams{
		Logger:    logg,
		Inventory: svcs.Inventory,
	})
	if err != nil {
		return nil, fmt.Errorf("low stock job: %w", err)
	}
	retention, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:        logg,
		DB:            client,
		Repository:    outbox.NewRepository(client.DB()),
		RetentionDays: cfg.Outbox.RetentionDays,
		MaxAttempts:   cfg.Outbox.MaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("outbox retention job: %w", err)
	}
	return cron.NewRegistry(decay, totals, lowStock, retention)
}
