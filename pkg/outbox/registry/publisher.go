package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/posledger/pkg/config"
	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
	"github.com/angelmondragon/posledger/pkg/outbox"
	"github.com/angelmondragon/posledger/pkg/outbox/payloads"
)

// EventDescriptor links an event type to the aggregates allowed to emit it
// and its payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateTypes []enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() interface{}
}

func (d EventDescriptor) allows(aggregate enums.OutboxAggregateType) bool {
	for _, candidate := range d.AggregateTypes {
		if candidate == aggregate {
			return true
		}
	}
	return false
}

// ResolvedEvent is the result of decoding an outbox row.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    interface{}
}

// EventRegistry maps each supported event type to its descriptor.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError signals the dispatcher should stop retrying a row.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewEventRegistry routes every ledger event to the configured ledger topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	topic := strings.TrimSpace(cfg.LedgerTopic)
	if topic == "" {
		return nil, fmt.Errorf("ledger topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	order := []enums.OutboxAggregateType{enums.AggregateOrder}
	for _, desc := range []EventDescriptor{
		{
			EventType:      enums.EventOrderCreated,
			AggregateTypes: order,
			PayloadFactory: func() interface{} { return &payloads.OrderCreatedEvent{} },
		},
		{
			EventType:      enums.EventOrderCompleted,
			AggregateTypes: order,
			PayloadFactory: func() interface{} { return &payloads.OrderCompletedEvent{} },
		},
		{
			EventType:      enums.EventOrderCancelled,
			AggregateTypes: order,
			PayloadFactory: func() interface{} { return &payloads.OrderClosedEvent{} },
		},
		{
			EventType:      enums.EventOrderDeleted,
			AggregateTypes: order,
			PayloadFactory: func() interface{} { return &payloads.OrderClosedEvent{} },
		},
		{
			EventType:      enums.EventRegisterOpened,
			AggregateTypes: []enums.OutboxAggregateType{enums.AggregateRegister},
			PayloadFactory: func() interface{} { return &payloads.RegisterEvent{} },
		},
		{
			EventType:      enums.EventRegisterClosed,
			AggregateTypes: []enums.OutboxAggregateType{enums.AggregateRegister},
			PayloadFactory: func() interface{} { return &payloads.RegisterEvent{} },
		},
		{
			EventType:      enums.EventStockAdjusted,
			AggregateTypes: []enums.OutboxAggregateType{enums.AggregateMenuItem},
			PayloadFactory: func() interface{} { return &payloads.StockAdjustedEvent{} },
		},
		{
			EventType:      enums.EventCreditPosted,
			AggregateTypes: []enums.OutboxAggregateType{enums.AggregateCustomer, enums.AggregateSeller},
			PayloadFactory: func() interface{} { return &payloads.CreditPostedEvent{} },
		},
		{
			EventType:      enums.EventLoyaltyPosted,
			AggregateTypes: []enums.OutboxAggregateType{enums.AggregateCustomer},
			PayloadFactory: func() interface{} { return &payloads.LoyaltyPostedEvent{} },
		},
		{
			EventType:      enums.EventPayableRecorded,
			AggregateTypes: []enums.OutboxAggregateType{enums.AggregatePayable},
			PayloadFactory: func() interface{} { return &payloads.PayableRecordedEvent{} },
		},
		{
			EventType:      enums.EventPayableSettled,
			AggregateTypes: []enums.OutboxAggregateType{enums.AggregateSeller},
			PayloadFactory: func() interface{} { return &payloads.PayableSettledEvent{} },
		},
	} {
		desc.Topic = topic
		reg.register(desc)
	}
	return reg, nil
}

func (r *EventRegistry) register(desc EventDescriptor) {
	if desc.PayloadFactory == nil {
		return
	}
	r.entries[desc.EventType] = desc
}

// Resolve validates the row and decodes its typed payload.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if !desc.allows(event.AggregateType) {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: %s cannot emit %s", event.AggregateType, event.EventType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if payload == nil {
		return nil, NewNonRetryableError(fmt.Errorf("payload factory not configured for %s", event.EventType))
	}
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{
		Descriptor: desc,
		Envelope:   envelope,
		Payload:    payload,
	}, nil
}

// NewNonRetryableError wraps an error to signal no retries.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}
