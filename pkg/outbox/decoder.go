package outbox

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/posledger/pkg/enums"
)

// ErrNoDecoder marks events a subscriber has not registered interest in.
var ErrNoDecoder = errors.New("no decoder registered")

type decoderFunc func(payload json.RawMessage) (any, error)

type decoderKey struct {
	eventType enums.OutboxEventType
	version   int
}

// Delivery is one ledger event as received by a subscriber.
type Delivery struct {
	EventID   uuid.UUID
	EventType enums.OutboxEventType
	Envelope  PayloadEnvelope
	Payload   any
}

// DecoderRegistry maps event type and schema version to a typed decoder.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	decoders map[decoderKey]decoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{decoders: make(map[decoderKey]decoderFunc)}
}

// RegisterJSON decodes version v of eventType into a *T.
func RegisterJSON[T any](r *DecoderRegistry, eventType enums.OutboxEventType, version int) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.decoders[decoderKey{eventType: eventType, version: version}] = func(payload json.RawMessage) (any, error) {
		out := new(T)
		if err := json.Unmarshal(payload, out); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// Decode parses the envelope and typed payload of a published message body.
// Unregistered event types return ErrNoDecoder with the envelope still set.
func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, body []byte) (*Delivery, error) {
	var envelope PayloadEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", envelope.EventID, err)
	}
	delivery := &Delivery{EventID: eventID, EventType: eventType, Envelope: envelope}

	r.mtx.RLock()
	decoder, ok := r.decoders[decoderKey{eventType: eventType, version: envelope.Version}]
	r.mtx.RUnlock()
	if !ok {
		return delivery, fmt.Errorf("%w for %s@v%d", ErrNoDecoder, eventType, envelope.Version)
	}

	trimmed := bytes.TrimSpace(envelope.Data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return delivery, fmt.Errorf("payload missing for %s", eventType)
	}
	payload, err := decoder(envelope.Data)
	if err != nil {
		return delivery, fmt.Errorf("decode %s payload: %w", eventType, err)
	}
	delivery.Payload = payload
	return delivery, nil
}
