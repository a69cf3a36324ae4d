package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem snapshots the catalog name and price at the time it was added.
type OrderItem struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderID    uuid.UUID       `gorm:"column:order_id;type:uuid;not null" json:"order_id"`
	MenuItemID uuid.UUID       `gorm:"column:menu_item_id;type:uuid;not null" json:"menu_item_id"`
	ItemName   string          `gorm:"column:item_name;not null" json:"item_name"`
	ItemPrice  decimal.Decimal `gorm:"column:item_price;type:numeric(12,2);not null" json:"item_price"`
	Quantity   int             `gorm:"column:quantity;not null" json:"quantity"`
	Subtotal   decimal.Decimal `gorm:"column:subtotal;type:numeric(12,2);not null" json:"subtotal"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
