package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/logger"
)

const lowStockReportLimit = 100

// LowStockJobParams configure the low stock report.
type LowStockJobParams struct {
	Logger    *logger.Logger
	Inventory lowStockReader
}

type lowStockReader interface {
	ListLowStock(ctx context.Context, limit int) ([]models.MenuItem, error)
}

// NewLowStockJob builds the job that logs menu items at or below their
// low stock threshold.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	return &lowStockJob{logg: params.Logger, inventory: params.Inventory}, nil
}

type lowStockJob struct {
	logg      *logger.Logger
	inventory lowStockReader
}

func (j *lowStockJob) Name() string { return "low-stock-report" }

func (j *lowStockJob) Run(ctx context.Context) error {
	items, err := j.inventory.ListLowStock(ctx, lowStockReportLimit)
	if err != nil {
		return fmt.Errorf("list low stock: %w", err)
	}
	for _, item := range items {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"menu_item_id": item.ID.String(),
			"name":         item.Name,
			"stock":        item.StockQuantity,
			"threshold":    item.LowStockThreshold,
		})
		j.logg.Warn(logCtx, "menu item low on stock")
	}
	j.logg.Info(j.logg.WithField(ctx, "items", len(items)), "low stock report complete")
	return nil
}
