package inventory

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger/internal/testdb"
	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
	pkgerrors "github.com/angelmondragon/posledger/pkg/errors"
	"github.com/angelmondragon/posledger/pkg/logger"
	"github.com/angelmondragon/posledger/pkg/outbox"
)

type stubGate struct {
	register *models.Register
}

func (g stubGate) RequireOpen(context.Context) (*models.Register, error) {
	if g.register == nil {
		return nil, pkgerrors.Precondition(pkgerrors.ReasonNoOpenRegister, "no open register")
	}
	return g.register, nil
}

type countingMetrics struct {
	rejected int
}

func (m *countingMetrics) StockRejected(string) { m.rejected++ }

type fixture struct {
	svc     Service
	conn    *gorm.DB
	metrics *countingMetrics
}

func newFixture(t *testing.T, gate stubGate) fixture {
	t.Helper()
	client, conn := testdb.Client(t)
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: io.Discard})
	metrics := &countingMetrics{}
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		DB:         client,
		Register:   gate,
		Outbox:     outbox.NewService(outbox.NewRepository(conn), logg),
		Metrics:    metrics,
		Logger:     logg,
	})
	require.NoError(t, err)
	return fixture{svc: svc, conn: conn, metrics: metrics}
}

func openGate() stubGate {
	return stubGate{register: &models.Register{ID: uuid.New(), IsOpen: true, OpenedAt: time.Now().UTC()}}
}

func reload(t *testing.T, conn *gorm.DB, id uuid.UUID) models.MenuItem {
	t.Helper()
	var item models.MenuItem
	require.NoError(t, conn.First(&item, "id = ?", id).Error)
	return item
}

func TestReduceStockFlipsToOutOfStockAtZero(t *testing.T) {
	f := newFixture(t, openGate())
	item := testdb.SeedMenuItem(t, f.conn, "Momo", "120.00", 3)

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := f.svc.ReduceStock(context.Background(), tx, item.ID, 3)
		return err
	})
	require.NoError(t, err)

	got := reload(t, f.conn, item.ID)
	assert.Equal(t, 0, got.StockQuantity)
	assert.Equal(t, enums.AvailabilityOutOfStock, got.Availability)
}

func TestReduceStockRejectsOverdraw(t *testing.T) {
	f := newFixture(t, openGate())
	item := testdb.SeedMenuItem(t, f.conn, "Thukpa", "90.00", 1)

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := f.svc.ReduceStock(context.Background(), tx, item.ID, 2)
		return err
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInsufficientStock))
	assert.Contains(t, err.Error(), "requested 2, only 1 in stock")
	assert.Equal(t, 1, f.metrics.rejected)

	got := reload(t, f.conn, item.ID)
	assert.Equal(t, 1, got.StockQuantity)
	assert.Equal(t, enums.AvailabilityAvailable, got.Availability)
}

func TestStockNeverNegativeAcrossSequence(t *testing.T) {
	f := newFixture(t, openGate())
	item := testdb.SeedMenuItem(t, f.conn, "Chowmein", "80.00", 5)
	ctx := context.Background()

	steps := []struct {
		reduce bool
		qty    int
	}{
		{true, 2}, {true, 4}, {false, 1}, {true, 4}, {true, 1}, {false, 3}, {true, 9},
	}
	for _, step := range steps {
		_ = f.conn.Transaction(func(tx *gorm.DB) error {
			var err error
			if step.reduce {
				_, err = f.svc.ReduceStock(ctx, tx, item.ID, step.qty)
			} else {
				_, err = f.svc.IncreaseStock(ctx, tx, item.ID, step.qty)
			}
			return err
		})
		got := reload(t, f.conn, item.ID)
		require.GreaterOrEqual(t, got.StockQuantity, 0)
	}
	assert.Equal(t, 3, reload(t, f.conn, item.ID).StockQuantity)
}

func TestIncreaseStockRestoresAvailability(t *testing.T) {
	f := newFixture(t, openGate())
	item := testdb.SeedMenuItem(t, f.conn, "Lassi", "60.00", 0)

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := f.svc.IncreaseStock(context.Background(), tx, item.ID, 4)
		return err
	})
	require.NoError(t, err)

	got := reload(t, f.conn, item.ID)
	assert.Equal(t, 4, got.StockQuantity)
	assert.Equal(t, enums.AvailabilityAvailable, got.Availability)
}

func TestIncreaseStockKeepsSeasonal(t *testing.T) {
	f := newFixture(t, openGate())
	item := testdb.SeedMenuItem(t, f.conn, "Mango shake", "70.00", 0)
	require.NoError(t, f.conn.Model(&models.MenuItem{}).Where("id = ?", item.ID).
		Update("availability", enums.AvailabilitySeasonal).Error)

	err := f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := f.svc.IncreaseStock(context.Background(), tx, item.ID, 2)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, enums.AvailabilitySeasonal, reload(t, f.conn, item.ID).Availability)
}

func TestLedgerRequiresTransaction(t *testing.T) {
	f := newFixture(t, openGate())
	_, err := f.svc.ReduceStock(context.Background(), nil, uuid.New(), 1)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}

func TestSetStockActions(t *testing.T) {
	threshold := 3
	price := decimal.RequireFromString("150.499")

	cases := []struct {
		name      string
		start     int
		input     SetStockInput
		wantStock int
		wantAvail enums.Availability
		wantErr   pkgerrors.Reason
	}{
		{name: "set absolute", start: 5, input: SetStockInput{Action: enums.StockActionSet, Quantity: 12}, wantStock: 12, wantAvail: enums.AvailabilityAvailable},
		{name: "set zero flips", start: 5, input: SetStockInput{Action: enums.StockActionSet, Quantity: 0}, wantStock: 0, wantAvail: enums.AvailabilityOutOfStock},
		{name: "add", start: 0, input: SetStockInput{Action: enums.StockActionAdd, Quantity: 4}, wantStock: 4, wantAvail: enums.AvailabilityAvailable},
		{name: "decrease", start: 5, input: SetStockInput{Action: enums.StockActionDecrease, Quantity: 5}, wantStock: 0, wantAvail: enums.AvailabilityOutOfStock},
		{name: "decrease too much", start: 2, input: SetStockInput{Action: enums.StockActionDecrease, Quantity: 3}, wantStock: 2, wantErr: pkgerrors.ReasonInsufficientStock},
		{name: "add zero", start: 2, input: SetStockInput{Action: enums.StockActionAdd, Quantity: 0}, wantStock: 2, wantErr: pkgerrors.ReasonInvalidQuantity},
		{name: "negative quantity", start: 2, input: SetStockInput{Action: enums.StockActionSet, Quantity: -1}, wantStock: 2, wantErr: pkgerrors.ReasonInvalidQuantity},
		{name: "negative threshold", start: 2, input: SetStockInput{Action: enums.StockActionSet, Quantity: 9, LowStockThreshold: intPtr(-1)}, wantStock: 2, wantErr: pkgerrors.ReasonInvalidQuantity},
		{name: "overrides", start: 2, input: SetStockInput{Action: enums.StockActionAdd, Quantity: 1, LowStockThreshold: &threshold, Price: &price}, wantStock: 3, wantAvail: enums.AvailabilityAvailable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, openGate())
			item := testdb.SeedMenuItem(t, f.conn, "Item", "100.00", tc.start)
			tc.input.ItemID = item.ID
			tc.input.StaffID = uuid.New()

			_, err := f.svc.SetStock(context.Background(), tc.input)
			got := reload(t, f.conn, item.ID)
			if tc.wantErr != "" {
				require.Error(t, err)
				assert.True(t, pkgerrors.HasReason(err, tc.wantErr), "got %v", err)
				assert.Equal(t, tc.wantStock, got.StockQuantity)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantStock, got.StockQuantity)
			assert.Equal(t, tc.wantAvail, got.Availability)
			if tc.input.LowStockThreshold != nil {
				assert.Equal(t, *tc.input.LowStockThreshold, got.LowStockThreshold)
			}
			if tc.input.Price != nil {
				assert.True(t, decimal.RequireFromString("150.50").Equal(got.Price), "price %s", got.Price)
			}
		})
	}
}

func TestSetStockRequiresOpenRegister(t *testing.T) {
	f := newFixture(t, stubGate{})
	item := testdb.SeedMenuItem(t, f.conn, "Item", "100.00", 2)

	_, err := f.svc.SetStock(context.Background(), SetStockInput{ItemID: item.ID, Action: enums.StockActionSet, Quantity: 5})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonNoOpenRegister))
	assert.Equal(t, 2, reload(t, f.conn, item.ID).StockQuantity)
}

func TestSetStockEmitsAdjustedEvent(t *testing.T) {
	f := newFixture(t, openGate())
	item := testdb.SeedMenuItem(t, f.conn, "Item", "100.00", 2)

	_, err := f.svc.SetStock(context.Background(), SetStockInput{ItemID: item.ID, Action: enums.StockActionAdd, Quantity: 5, StaffID: uuid.New()})
	require.NoError(t, err)

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Where("aggregate_id = ?", item.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventStockAdjusted, events[0].EventType)
}

func TestSetStockUnknownItem(t *testing.T) {
	f := newFixture(t, openGate())
	_, err := f.svc.SetStock(context.Background(), SetStockInput{ItemID: uuid.New(), Action: enums.StockActionSet, Quantity: 1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListLowStock(t *testing.T) {
	f := newFixture(t, openGate())
	testdb.SeedMenuItem(t, f.conn, "Low", "10.00", 2)
	testdb.SeedMenuItem(t, f.conn, "Plenty", "10.00", 50)

	items, err := f.svc.ListLowStock(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Low", items[0].Name)
}

func intPtr(v int) *int { return &v }
