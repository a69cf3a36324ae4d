package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/posledger/pkg/enums"
)

// LoyaltyTransaction is one append-only signed points movement.
type LoyaltyTransaction struct {
	ID          uuid.UUID                    `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID  uuid.UUID                    `gorm:"column:customer_id;type:uuid;not null" json:"customer_id"`
	Type        enums.LoyaltyTransactionType `gorm:"column:type;type:loyalty_transaction_type;not null" json:"type"`
	Points      int64                        `gorm:"column:points;not null" json:"points"`
	OrderID     *uuid.UUID                   `gorm:"column:order_id;type:uuid" json:"order_id,omitempty"`
	Description string                       `gorm:"column:description;not null;default:''" json:"description"`
	CreatedAt   time.Time                    `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
