// Package app wires the ledger services shared by the api, cron worker and
// operator CLI.
package app

import (
	"fmt"

	"github.com/angelmondragon/posledger/internal/credit"
	"github.com/angelmondragon/posledger/internal/inventory"
	"github.com/angelmondragon/posledger/internal/loyalty"
	"github.com/angelmondragon/posledger/internal/orders"
	"github.com/angelmondragon/posledger/internal/payables"
	"github.com/angelmondragon/posledger/internal/registers"
	"github.com/angelmondragon/posledger/pkg/config"
	"github.com/angelmondragon/posledger/pkg/db"
	"github.com/angelmondragon/posledger/pkg/logger"
	"github.com/angelmondragon/posledger/pkg/metrics"
	"github.com/angelmondragon/posledger/pkg/outbox"
)

// Services holds one instance of every ledger service.
type Services struct {
	Outbox    *outbox.Service
	Registers registers.Service
	Inventory inventory.Service
	Credit    credit.Service
	Loyalty   loyalty.Service
	Orders    orders.Service
	Payables  payables.Service
}

// NewServices builds the ledger services on one database client. Metrics may
// be nil.
func NewServices(cfg config.POSConfig, client *db.Client, logg *logger.Logger, ledgerMetrics *metrics.LedgerMetrics) (*Services, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	conn := client.DB()
	ob := outbox.NewService(outbox.NewRepository(conn), logg)

	regSvc, err := registers.NewService(registers.ServiceParams{
		Repository: registers.NewRepository(conn),
		DB:         client,
		Outbox:     ob,
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("registers: %w", err)
	}

	invSvc, err := inventory.NewService(inventory.ServiceParams{
		Repository: inventory.NewRepository(conn),
		DB:         client,
		Register:   regSvc,
		Outbox:     ob,
		Metrics:    ledgerMetrics,
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("inventory: %w", err)
	}

	creditSvc, err := credit.NewService(credit.ServiceParams{
		Repository: credit.NewRepository(conn),
		DB:         client,
		Register:   regSvc,
		Outbox:     ob,
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("credit: %w", err)
	}

	loyaltySvc, err := loyalty.NewService(loyalty.ServiceParams{
		Repository:       loyalty.NewRepository(conn),
		DB:               client,
		Outbox:           ob,
		Metrics:          ledgerMetrics,
		Logger:           logg,
		DecayWindowHours: cfg.DecayWindowHours,
		DecayPercent:     cfg.DecayPercent,
	})
	if err != nil {
		return nil, fmt.Errorf("loyalty: %w", err)
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repository:         orders.NewRepository(conn),
		DB:                 client,
		Register:           regSvc,
		Inventory:          invSvc,
		Credit:             creditSvc,
		Loyalty:            loyaltySvc,
		Outbox:             ob,
		Metrics:            ledgerMetrics,
		Logger:             logg,
		DeliveryFee:        cfg.DeliveryFee,
		LoyaltyEarnDivisor: cfg.LoyaltyEarnDivisor,
		OrderNumberPrefix:  cfg.OrderNumberPrefix,
	})
	if err != nil {
		return nil, fmt.Errorf("orders: %w", err)
	}

	payablesSvc, err := payables.NewService(payables.ServiceParams{
		Repository: payables.NewRepository(conn),
		DB:         client,
		Register:   regSvc,
		Credit:     creditSvc,
		Outbox:     ob,
		Metrics:    ledgerMetrics,
		Logger:     logg,
	})
	if err != nil {
		return nil, fmt.Errorf("payables: %w", err)
	}

	return &Services{
		Outbox:    ob,
		Registers: regSvc,
		Inventory: invSvc,
		Credit:    creditSvc,
		Loyalty:   loyaltySvc,
		Orders:    ordersSvc,
		Payables:  payablesSvc,
	}, nil
}
