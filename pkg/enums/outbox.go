package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder    OutboxAggregateType = "order"
	AggregateRegister OutboxAggregateType = "register"
	AggregateMenuItem OutboxAggregateType = "menu_item"
	AggregateCustomer OutboxAggregateType = "customer"
	AggregateSeller   OutboxAggregateType = "seller"
	AggregatePayable  OutboxAggregateType = "payable"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateRegister,
	AggregateMenuItem,
	AggregateCustomer,
	AggregateSeller,
	AggregatePayable,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated    OutboxEventType = "order_created"
	EventOrderCompleted  OutboxEventType = "order_completed"
	EventOrderCancelled  OutboxEventType = "order_cancelled"
	EventOrderDeleted    OutboxEventType = "order_deleted"
	EventRegisterOpened  OutboxEventType = "register_opened"
	EventRegisterClosed  OutboxEventType = "register_closed"
	EventStockAdjusted   OutboxEventType = "stock_adjusted"
	EventCreditPosted    OutboxEventType = "credit_posted"
	EventLoyaltyPosted   OutboxEventType = "loyalty_posted"
	EventPayableSettled  OutboxEventType = "payable_settled"
	EventPayableRecorded OutboxEventType = "payable_recorded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderCompleted,
	EventOrderCancelled,
	EventOrderDeleted,
	EventRegisterOpened,
	EventRegisterClosed,
	EventStockAdjusted,
	EventCreditPosted,
	EventLoyaltyPosted,
	EventPayableSettled,
	EventPayableRecorded,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
