package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
	"github.com/angelmondragon/posledger/pkg/logger"
	"github.com/angelmondragon/posledger/pkg/outbox"
	"github.com/angelmondragon/posledger/pkg/outbox/idempotency"
	"github.com/angelmondragon/posledger/pkg/outbox/payloads"
)

const alertsConsumer = "staff-alerts"

type alertWriter interface {
	Create(ctx context.Context, notification *models.Notification) (bool, error)
}

// Consumer turns ledger events into staff alerts: items running out,
// orders taken against missing stock, register closes and seller payments.
type Consumer struct {
	repo         alertWriter
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	decoders     *outbox.DecoderRegistry
	logg         *logger.Logger
}

func NewConsumer(repo alertWriter, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("ledger subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  manager,
		decoders:     alertDecoders(),
		logg:         logg,
	}, nil
}

func alertDecoders() *outbox.DecoderRegistry {
	reg := outbox.NewDecoderRegistry()
	outbox.RegisterJSON[payloads.StockAdjustedEvent](reg, enums.EventStockAdjusted, 1)
	outbox.RegisterJSON[payloads.OrderCreatedEvent](reg, enums.EventOrderCreated, 1)
	outbox.RegisterJSON[payloads.RegisterEvent](reg, enums.EventRegisterClosed, 1)
	outbox.RegisterJSON[payloads.PayableSettledEvent](reg, enums.EventPayableSettled, 1)
	return reg
}

// Run receives until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		if c.process(ctx, msg.ID, msg.Attributes["event_type"], msg.Data) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// process reports whether the message should be acked. Malformed and
// uninteresting messages are acked; storage failures are redelivered.
func (c *Consumer) process(ctx context.Context, messageID, eventType string, body []byte) bool {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": messageID,
		"event_type": eventType,
	})

	delivery, err := c.decoders.Decode(enums.OutboxEventType(eventType), body)
	if err != nil {
		if errors.Is(err, outbox.ErrNoDecoder) {
			c.logg.Debug(logCtx, "skipping event without alert")
			return true
		}
		c.logg.Error(logCtx, "failed to decode ledger event", err)
		return true
	}
	logCtx = c.logg.WithField(logCtx, "event_id", delivery.EventID.String())

	notification := buildAlert(delivery)
	if notification == nil {
		return true
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, alertsConsumer, delivery.EventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return false
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return true
	}

	created, err := c.repo.Create(ctx, notification)
	if err != nil {
		c.logg.Error(logCtx, "failed to store alert", err)
		_ = c.idempotency.Delete(ctx, alertsConsumer, delivery.EventID)
		return false
	}
	if created {
		c.logg.Info(c.logg.WithField(logCtx, "alert_type", notification.Type), "staff alert created")
	}
	return true
}

// buildAlert returns nil for events that do not warrant an alert.
func buildAlert(d *outbox.Delivery) *models.Notification {
	eventID := d.EventID
	switch p := d.Payload.(type) {
	case *payloads.StockAdjustedEvent:
		if p.NewStock > 0 && p.Availability != enums.AvailabilityOutOfStock {
			return nil
		}
		return &models.Notification{
			EventID: &eventID,
			Type:    enums.NotificationTypeOutOfStock,
			Title:   "Menu item out of stock",
			Message: fmt.Sprintf("Menu item %s dropped from %d to %d and is now %s.", p.MenuItemID, p.PreviousStock, p.NewStock, p.Availability),
			Link:    link("/inventory/%s", p.MenuItemID),
		}
	case *payloads.OrderCreatedEvent:
		if len(p.StockIssues) == 0 {
			return nil
		}
		return &models.Notification{
			EventID: &eventID,
			Type:    enums.NotificationTypeStockShortfall,
			Title:   "Order taken without stock",
			Message: fmt.Sprintf("Order #%s was created with stock warnings: %s", p.OrderNumber, strings.Join(p.StockIssues, "; ")),
			Link:    link("/orders/%s", p.OrderID),
		}
	case *payloads.RegisterEvent:
		closing := "unknown"
		if p.ClosingBalance != nil {
			closing = p.ClosingBalance.StringFixed(2)
		}
		return &models.Notification{
			EventID: &eventID,
			Type:    enums.NotificationTypeRegisterClosed,
			Title:   "Register closed",
			Message: fmt.Sprintf("Register closed with balance %s (cash %s, qr %s, credit %s).",
				closing, p.CashTotal.StringFixed(2), p.QRTotal.StringFixed(2), p.CreditTotal.StringFixed(2)),
			Link: link("/registers/%s", p.RegisterID),
		}
	case *payloads.PayableSettledEvent:
		return &models.Notification{
			EventID: &eventID,
			Type:    enums.NotificationTypeSellerPaid,
			Title:   "Seller paid",
			Message: fmt.Sprintf("Paid %s via %s across %d payable(s), %d settled.",
				p.Amount.StringFixed(2), p.Mode, len(p.PayableIDs), len(p.SettledIDs)),
			Link: link("/sellers/%s", p.SellerID),
		}
	}
	return nil
}

func link(format string, id uuid.UUID) *string {
	value := fmt.Sprintf(format, id)
	return &value
}
