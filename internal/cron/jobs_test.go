package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posledger/internal/loyalty"
	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/logger"
)

func quietLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
}

type fakeDecayRunner struct {
	input  loyalty.DecayInput
	report *loyalty.DecayReport
	err    error
}

func (f *fakeDecayRunner) ApplyInactivityDeductions(_ context.Context, input loyalty.DecayInput) (*loyalty.DecayReport, error) {
	f.input = input
	return f.report, f.err
}

func TestLoyaltyDecayJobPassesConfiguredWindow(t *testing.T) {
	runner := &fakeDecayRunner{report: &loyalty.DecayReport{Scanned: 3, Deducted: 1, PointsDeducted: 5}}
	job, err := NewLoyaltyDecayJob(LoyaltyDecayJobParams{Logger: quietLogger(), Loyalty: runner, WindowHours: 48, Percent: 10})
	if err != nil {
		t.Fatalf("NewLoyaltyDecayJob: %v", err)
	}
	if job.Name() != "loyalty-decay" {
		t.Fatalf("unexpected name %q", job.Name())
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if runner.input.WindowHours != 48 || runner.input.Percent != 10 || runner.input.DryRun {
		t.Fatalf("unexpected input %+v", runner.input)
	}
}

func TestLoyaltyDecayJobSurfacesPartialFailure(t *testing.T) {
	runner := &fakeDecayRunner{
		report: &loyalty.DecayReport{Scanned: 2, Failed: 1},
		err:    errors.New("customer locked"),
	}
	job, err := NewLoyaltyDecayJob(LoyaltyDecayJobParams{Logger: quietLogger(), Loyalty: runner})
	if err != nil {
		t.Fatalf("NewLoyaltyDecayJob: %v", err)
	}
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

type fakeRegisters struct {
	current    *models.Register
	rebuilt    *models.Register
	recomputed []uuid.UUID
}

func (f *fakeRegisters) Current(context.Context) (*models.Register, error) {
	return f.current, nil
}

func (f *fakeRegisters) RecalculateTotals(_ context.Context, id uuid.UUID) (*models.Register, error) {
	f.recomputed = append(f.recomputed, id)
	return f.rebuilt, nil
}

func TestRegisterTotalsJobSkipsWhenClosed(t *testing.T) {
	regs := &fakeRegisters{}
	job, err := NewRegisterTotalsJob(RegisterTotalsJobParams{Logger: quietLogger(), Registers: regs})
	if err != nil {
		t.Fatalf("NewRegisterTotalsJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(regs.recomputed) != 0 {
		t.Fatalf("expected no recalculation, got %d", len(regs.recomputed))
	}
}

func TestRegisterTotalsJobRecalculatesOpenRegister(t *testing.T) {
	id := uuid.New()
	regs := &fakeRegisters{
		current: &models.Register{ID: id, IsOpen: true, CashTotal: decimal.NewFromInt(100)},
		rebuilt: &models.Register{ID: id, IsOpen: true, CashTotal: decimal.NewFromInt(120)},
	}
	job, err := NewRegisterTotalsJob(RegisterTotalsJobParams{Logger: quietLogger(), Registers: regs})
	if err != nil {
		t.Fatalf("NewRegisterTotalsJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(regs.recomputed) != 1 || regs.recomputed[0] != id {
		t.Fatalf("expected recalculation of %s, got %v", id, regs.recomputed)
	}
}

type fakeLowStock struct {
	items []models.MenuItem
	limit int
	err   error
}

func (f *fakeLowStock) ListLowStock(_ context.Context, limit int) ([]models.MenuItem, error) {
	f.limit = limit
	return f.items, f.err
}

func TestLowStockJob(t *testing.T) {
	reader := &fakeLowStock{items: []models.MenuItem{{ID: uuid.New(), Name: "Momo", StockQuantity: 2, LowStockThreshold: 10}}}
	job, err := NewLowStockJob(LowStockJobParams{Logger: quietLogger(), Inventory: reader})
	if err != nil {
		t.Fatalf("NewLowStockJob: %v", err)
	}
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reader.limit != lowStockReportLimit {
		t.Fatalf("expected limit %d, got %d", lowStockReportLimit, reader.limit)
	}

	reader.err = errors.New("timeout")
	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestJobConstructorsRequireDependencies(t *testing.T) {
	if _, err := NewLoyaltyDecayJob(LoyaltyDecayJobParams{Logger: quietLogger()}); err == nil {
		t.Fatal("decay job without loyalty service")
	}
	if _, err := NewRegisterTotalsJob(RegisterTotalsJobParams{Logger: quietLogger()}); err == nil {
		t.Fatal("register job without registers")
	}
	if _, err := NewLowStockJob(LowStockJobParams{}); err == nil {
		t.Fatal("low stock job without logger")
	}
}
