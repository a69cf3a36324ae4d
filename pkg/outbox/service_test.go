package outbox_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/posledger/internal/testdb"
	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
	"github.com/angelmondragon/posledger/pkg/logger"
	"github.com/angelmondragon/posledger/pkg/outbox"
	"github.com/angelmondragon/posledger/pkg/outbox/payloads"
)

func newService(t *testing.T) (*outbox.Service, *gorm.DB) {
	t.Helper()
	conn := testdb.Open(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return outbox.NewService(outbox.NewRepository(conn), logg), conn
}

func TestEmitStoresEnvelope(t *testing.T) {
	svc, conn := newService(t)
	orderID := uuid.New()
	staffID := uuid.New()

	err := conn.Transaction(func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         outbox.StaffActor(staffID, enums.UserRoleStaff),
			Data:          payloads.OrderCreatedEvent{OrderID: orderID, OrderNumber: "ZRP20261016ABCDEF"},
		})
	})
	require.NoError(t, err)

	rows, err := outbox.NewRepository(conn).ListByAggregate(context.Background(), enums.AggregateOrder, orderID)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(rows[0].Payload, &envelope))
	assert.Equal(t, 1, envelope.Version)
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, staffID, envelope.Actor.UserID)
	assert.Equal(t, "staff", envelope.Actor.Role)
	assert.Contains(t, string(envelope.Data), "ZRP20261016ABCDEF")
}

func TestEmitRequiresTransaction(t *testing.T) {
	svc, _ := newService(t)
	err := svc.Emit(context.Background(), nil, outbox.DomainEvent{EventType: enums.EventOrderCreated})
	require.Error(t, err)
}

func TestEmitIfNotExistsWritesOnce(t *testing.T) {
	svc, conn := newService(t)
	orderID := uuid.New()
	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCompleted,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Data:          payloads.OrderCompletedEvent{OrderID: orderID},
	}
	for i := 0; i < 2; i++ {
		require.NoError(t, conn.Transaction(func(tx *gorm.DB) error {
			return svc.EmitIfNotExists(context.Background(), tx, event)
		}))
	}

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Where("aggregate_id = ?", orderID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestStaffActorOmitsAnonymous(t *testing.T) {
	assert.Nil(t, outbox.StaffActor(uuid.Nil, enums.UserRoleStaff))
	assert.Equal(t, "system:loyalty-decay", outbox.SystemActor("loyalty-decay").Role)
}

func TestDecoderRegistryDecodesRegisteredEvents(t *testing.T) {
	reg := outbox.NewDecoderRegistry()
	outbox.RegisterJSON[payloads.StockAdjustedEvent](reg, enums.EventStockAdjusted, 1)

	itemID := uuid.New()
	body := envelopeBody(t, 1, payloads.StockAdjustedEvent{MenuItemID: itemID, NewStock: 0, Availability: enums.AvailabilityOutOfStock})

	delivery, err := reg.Decode(enums.EventStockAdjusted, body)
	require.NoError(t, err)
	payload, ok := delivery.Payload.(*payloads.StockAdjustedEvent)
	require.True(t, ok, "payload type %T", delivery.Payload)
	assert.Equal(t, itemID, payload.MenuItemID)
	assert.NotEqual(t, uuid.Nil, delivery.EventID)

	_, err = reg.Decode(enums.EventStockAdjusted, envelopeBody(t, 2, payload))
	assert.True(t, errors.Is(err, outbox.ErrNoDecoder))

	delivery, err = reg.Decode(enums.EventLoyaltyPosted, body)
	assert.True(t, errors.Is(err, outbox.ErrNoDecoder))
	require.NotNil(t, delivery)

	_, err = reg.Decode(enums.EventStockAdjusted, []byte(`{"eventId":"nope","version":1,"data":{}}`))
	require.Error(t, err)
}

func envelopeBody(t *testing.T, version int, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(outbox.PayloadEnvelope{Version: version, EventID: uuid.NewString(), Data: raw})
	require.NoError(t, err)
	return body
}
