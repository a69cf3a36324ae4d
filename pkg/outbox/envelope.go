package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/posledger/pkg/enums"
)

// ActorRef identifies the staff member or job that produced the event.
type ActorRef struct {
	UserID uuid.UUID `json:"userId"`
	Role   string    `json:"role,omitempty"`
}

// StaffActor builds the actor for a staff-initiated mutation.
func StaffActor(userID uuid.UUID, role enums.UserRole) *ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &ActorRef{UserID: userID, Role: string(role)}
}

// SystemActor marks events raised by scheduled jobs.
func SystemActor(job string) *ActorRef {
	return &ActorRef{Role: "system:" + job}
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
