package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/logger"
)

// RegisterTotalsJobParams configure the open register totals check.
type RegisterTotalsJobParams struct {
	Logger    *logger.Logger
	Registers registerReconciler
}

type registerReconciler interface {
	Current(ctx context.Context) (*models.Register, error)
	RecalculateTotals(ctx context.Context, registerID uuid.UUID) (*models.Register, error)
}

// NewRegisterTotalsJob builds the job that rebuilds the open register's
// running totals from the orders and seller payments in its window.
func NewRegisterTotalsJob(params RegisterTotalsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Registers == nil {
		return nil, fmt.Errorf("register service required")
	}
	return &registerTotalsJob{logg: params.Logger, registers: params.Registers}, nil
}

type registerTotalsJob struct {
	logg      *logger.Logger
	registers registerReconciler
}

func (j *registerTotalsJob) Name() string { return "register-totals" }

func (j *registerTotalsJob) Run(ctx context.Context) error {
	current, err := j.registers.Current(ctx)
	if err != nil {
		return fmt.Errorf("load open register: %w", err)
	}
	if current == nil {
		j.logg.Info(ctx, "no open register; nothing to recalculate")
		return nil
	}
	rebuilt, err := j.registers.RecalculateTotals(ctx, current.ID)
	if err != nil {
		return fmt.Errorf("recalculate register %s: %w", current.ID, err)
	}

	logCtx := j.logg.WithRegisterID(ctx, current.ID.String())
	logCtx = j.logg.WithFields(logCtx, map[string]any{
		"cash_before":   current.CashTotal.StringFixed(2),
		"cash_after":    rebuilt.CashTotal.StringFixed(2),
		"qr_before":     current.QRTotal.StringFixed(2),
		"qr_after":      rebuilt.QRTotal.StringFixed(2),
		"credit_before": current.CreditTotal.StringFixed(2),
		"credit_after":  rebuilt.CreditTotal.StringFixed(2),
	})
	if !current.CashTotal.Equal(rebuilt.CashTotal) ||
		!current.QRTotal.Equal(rebuilt.QRTotal) ||
		!current.CreditTotal.Equal(rebuilt.CreditTotal) {
		j.logg.Warn(logCtx, "register running totals drifted from projection")
		return nil
	}
	j.logg.Info(logCtx, "register totals consistent")
	return nil
}
