package app

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/posledger/internal/orders"
	"github.com/angelmondragon/posledger/internal/registers"
	"github.com/angelmondragon/posledger/internal/testdb"
	"github.com/angelmondragon/posledger/pkg/config"
	"github.com/angelmondragon/posledger/pkg/enums"
	"github.com/angelmondragon/posledger/pkg/logger"
	"github.com/angelmondragon/posledger/pkg/metrics"
)

func testConfig() config.POSConfig {
	return config.POSConfig{
		OrderNumberPrefix:  "ZRP",
		DeliveryFee:        decimal.NewFromInt(50),
		LoyaltyEarnDivisor: 10,
		DecayWindowHours:   24,
		DecayPercent:       5,
	}
}

func TestNewServicesRequiresClient(t *testing.T) {
	_, err := NewServices(testConfig(), nil, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}), nil)
	require.Error(t, err)
}

func TestServicesSettleAnOrderEndToEnd(t *testing.T) {
	client, conn := testdb.Client(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svcs, err := NewServices(testConfig(), client, logg, metrics.NewLedgerMetrics(prometheus.NewRegistry()))
	require.NoError(t, err)

	ctx := context.Background()
	staff := testdb.SeedUser(t, conn, "Till", enums.UserRoleStaff)
	customer := testdb.SeedUser(t, conn, "Asha", enums.UserRoleCustomer)
	item := testdb.SeedMenuItem(t, conn, "Chowmein", "150.00", 5)

	_, err = svcs.Registers.Open(ctx, registers.OpenInput{OpenedBy: staff.ID, OpeningBalance: decimal.NewFromInt(500)})
	require.NoError(t, err)

	actor := orders.Actor{UserID: staff.ID, Role: enums.UserRoleStaff}
	created, err := svcs.Orders.CreateOrder(ctx, orders.CreateOrderInput{
		CustomerID: &customer.ID,
		OrderType:  enums.OrderTypeDelivery,
		Items:      []orders.ItemInput{{MenuItemID: item.ID, Quantity: 1}},
		Actor:      actor,
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(200).Equal(created.Order.Total))

	paid, err := svcs.Orders.CompletePayment(ctx, orders.CompletePaymentInput{OrderID: created.Order.ID, Method: enums.PaymentMethodQR, Actor: actor})
	require.NoError(t, err)
	assert.Equal(t, int64(20), paid.PointsEarned)

	closed, err := svcs.Registers.Close(ctx, registers.CloseInput{ClosedBy: staff.ID})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(200).Equal(closed.QRTotal))
	require.NotNil(t, closed.ClosingBalance)
	assert.NotEqual(t, uuid.Nil, closed.ID)
}
