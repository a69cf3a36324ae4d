package credit

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
	open bool
}

func (g stubGate) RequireOpen(context.Context) (*models.Register, error) {
	if !g.open {
		return nil, pkgerrors.Precondition(pkgerrors.ReasonNoOpenRegister, "no open register")
	}
	return &models.Register{ID: uuid.New(), IsOpen: true}, nil
}

func newTestService(t *testing.T, gate stubGate) (Service, *gorm.DB) {
	t.Helper()
	client, conn := testdb.Client(t)
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.DebugLevel, Output: io.Discard})
	svc, err := NewService(ServiceParams{
		Repository: NewRepository(conn),
		DB:         client,
		Register:   gate,
		Outbox:     outbox.NewService(outbox.NewRepository(conn), logg),
		Logger:     logg,
	})
	require.NoError(t, err)
	return svc, conn
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestAddCreditRecordsBalanceSnapshot(t *testing.T) {
	svc, conn := newTestService(t, stubGate{open: true})
	customer := testdb.SeedUser(t, conn, "Asha", enums.UserRoleCustomer)
	orderID := uuid.New()

	var row *models.CreditTransaction
	err := conn.Transaction(func(tx *gorm.DB) error {
		var err error
		row, err = svc.AddCredit(context.Background(), tx, Entry{
			Account: Customer(customer.ID),
			Amount:  dec("240.005"),
			OrderID: &orderID,
			Note:    "Order #ZRP1 completed on credit",
		})
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, enums.CreditActionAdded, row.Action)
	assert.True(t, dec("240.01").Equal(row.Amount), "amount %s", row.Amount)
	assert.True(t, dec("240.01").Equal(row.BalanceAfter))

	balance, err := svc.Balance(context.Background(), Customer(customer.ID))
	require.NoError(t, err)
	assert.True(t, dec("240.01").Equal(balance))
}

func TestDeductCreditRejectsOverdraw(t *testing.T) {
	svc, conn := newTestService(t, stubGate{open: true})
	seller := testdb.SeedSeller(t, conn, "Dairy Co")
	ctx := context.Background()

	require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.AddCredit(ctx, tx, Entry{Account: Seller(seller.ID), Amount: dec("50")})
		return err
	}))

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.DeductCredit(ctx, tx, Entry{Account: Seller(seller.ID), Amount: dec("80")})
		return err
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInsufficientBalance))
	assert.Contains(t, err.Error(), "requested 80.00, balance 50.00")

	balance, err := svc.Balance(ctx, Seller(seller.ID))
	require.NoError(t, err)
	assert.True(t, dec("50").Equal(balance))
}

func TestPostRejectsNonPositiveAmounts(t *testing.T) {
	svc, conn := newTestService(t, stubGate{open: true})
	customer := testdb.SeedUser(t, conn, "Asha", enums.UserRoleCustomer)

	for _, amount := range []string{"0", "-5", "0.001"} {
		err := conn.Transaction(func(tx *gorm.DB) error {
			_, err := svc.AddCredit(context.Background(), tx, Entry{Account: Customer(customer.ID), Amount: dec(amount)})
			return err
		})
		assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonInvalidAmount), "amount %s: %v", amount, err)
	}
}

func TestPostUnknownOwner(t *testing.T) {
	svc, conn := newTestService(t, stubGate{open: true})
	err := conn.Transaction(func(tx *gorm.DB) error {
		_, err := svc.AddCredit(context.Background(), tx, Entry{Account: Seller(uuid.New()), Amount: dec("1")})
		return err
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestBalanceMatchesLedgerAfterMixedSequence(t *testing.T) {
	svc, conn := newTestService(t, stubGate{open: true})
	customer := testdb.SeedUser(t, conn, "Asha", enums.UserRoleCustomer)
	account := Customer(customer.ID)
	ctx := context.Background()

	ops := []struct {
		add    bool
		amount string
	}{
		{true, "100.10"}, {false, "20.05"}, {true, "5"}, {false, "500"}, {false, "85.05"}, {true, "0.99"},
	}
	for _, op := range ops {
		_ = conn.Transaction(func(tx *gorm.DB) error {
			var err error
			if op.add {
				_, err = svc.AddCredit(ctx, tx, Entry{Account: account, Amount: dec(op.amount)})
			} else {
				_, err = svc.DeductCredit(ctx, tx, Entry{Account: account, Amount: dec(op.amount), Action: enums.CreditActionPayment})
			}
			return err
		})
	}

	report, err := svc.Reconcile(ctx, account)
	require.NoError(t, err)
	assert.True(t, report.Consistent, "drift %s", report.Drift)
	assert.Equal(t, 5, report.Transactions)
	assert.True(t, dec("0.99").Equal(report.Balance), "balance %s", report.Balance)
}

func TestReconcileFlagsDrift(t *testing.T) {
	svc, conn := newTestService(t, stubGate{open: true})
	customer := testdb.SeedUser(t, conn, "Asha", enums.UserRoleCustomer)
	require.NoError(t, conn.Model(&models.User{}).Where("id = ?", customer.ID).Update("credit_balance", dec("12.50")).Error)

	report, err := svc.Reconcile(context.Background(), Customer(customer.ID))
	require.NoError(t, err)
	assert.False(t, report.Consistent)
	assert.True(t, dec("12.50").Equal(report.Drift))
}

func TestAdjustRequiresOpenRegister(t *testing.T) {
	svc, conn := newTestService(t, stubGate{open: false})
	customer := testdb.SeedUser(t, conn, "Asha", enums.UserRoleCustomer)

	_, err := svc.Adjust(context.Background(), AdjustInput{
		Account: Customer(customer.ID),
		Amount:  dec("10"),
		Action:  enums.CreditActionAdded,
		StaffID: uuid.New(),
	})
	assert.True(t, pkgerrors.HasReason(err, pkgerrors.ReasonNoOpenRegister))
}

func TestAdjustDefaultsNotes(t *testing.T) {
	svc, conn := newTestService(t, stubGate{open: true})
	customer := testdb.SeedUser(t, conn, "Asha", enums.UserRoleCustomer)
	staff := testdb.SeedUser(t, conn, "Ravi", enums.UserRoleManager)
	ctx := context.Background()

	added, err := svc.Adjust(ctx, AdjustInput{Account: Customer(customer.ID), Amount: dec("30"), Action: enums.CreditActionAdded, StaffID: staff.ID})
	require.NoError(t, err)
	require.NotNil(t, added.Note)
	assert.Equal(t, "Manual adjustment", *added.Note)

	deducted, err := svc.Adjust(ctx, AdjustInput{Account: Customer(customer.ID), Amount: dec("10"), Action: enums.CreditActionDeduct, StaffID: staff.ID})
	require.NoError(t, err)
	require.NotNil(t, deducted.Note)
	assert.Equal(t, "Manual deduction", *deducted.Note)
	assert.True(t, dec("-10").Equal(deducted.Amount))
	assert.True(t, dec("20").Equal(deducted.BalanceAfter))

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("event_type = ?", enums.EventCreditPosted).Count(&events).Error)
	assert.Equal(t, int64(2), events)
}

func TestHistoryCapsAndFilters(t *testing.T) {
	svc, conn := newTestService(t, stubGate{open: true})
	customer := testdb.SeedUser(t, conn, "Asha", enums.UserRoleCustomer)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			_, err := svc.AddCredit(ctx, tx, Entry{Account: Customer(customer.ID), Amount: dec("1")})
			return err
		}))
	}

	rows, err := svc.History(ctx, Customer(customer.ID), HistoryFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	future := time.Now().UTC().Add(time.Hour)
	rows, err = svc.History(ctx, Customer(customer.ID), HistoryFilter{From: &future})
	require.NoError(t, err)
	assert.Empty(t, rows)

	past := time.Now().UTC().Add(-time.Hour)
	_, err = svc.History(ctx, Customer(customer.ID), HistoryFilter{From: &future, To: &past})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
