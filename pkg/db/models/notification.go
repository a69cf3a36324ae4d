package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/posledger/pkg/enums"
)

// Notification is a staff alert derived from a ledger event. EventID is
// unique so a redelivered event never produces a second alert.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	EventID   *uuid.UUID             `gorm:"column:event_id;type:uuid" json:"event_id,omitempty"`
	Type      enums.NotificationType `gorm:"column:type;type:notification_type;not null" json:"type"`
	Title     string                 `gorm:"column:title;not null" json:"title"`
	Message   string                 `gorm:"column:message;not null" json:"message"`
	Link      *string                `gorm:"column:link" json:"link,omitempty"`
	ReadAt    *time.Time             `gorm:"column:read_at" json:"read_at,omitempty"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
