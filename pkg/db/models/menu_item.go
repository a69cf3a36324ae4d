package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posledger/pkg/enums"
)

// MenuItem is a sellable catalog entry with its stock counter.
type MenuItem struct {
	ID                uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Category          string             `gorm:"column:category;not null;default:''" json:"category"`
	Name              string             `gorm:"column:name;not null" json:"name"`
	Price             decimal.Decimal    `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	PurchasePrice     decimal.Decimal    `gorm:"column:purchase_price;type:numeric(12,2);not null;default:0" json:"purchase_price"`
	StockQuantity     int                `gorm:"column:stock_quantity;not null;default:0" json:"stock_quantity"`
	LowStockThreshold int                `gorm:"column:low_stock_threshold;not null;default:10" json:"low_stock_threshold"`
	Availability      enums.Availability `gorm:"column:availability;type:menu_item_availability;not null;default:'available'" json:"availability"`
	IsActive          bool               `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt         time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// IsLowStock reports whether the item sits at or below its threshold.
func (m MenuItem) IsLowStock() bool {
	return m.StockQuantity <= m.LowStockThreshold
}
