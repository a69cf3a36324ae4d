package inventory

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
)

// SetStockInput is a manager's correction of one menu item. Every optional
// field is validated before anything is written.
type SetStockInput struct {
	ItemID            uuid.UUID
	Action            enums.StockAction
	Quantity          int
	LowStockThreshold *int
	Availability      *enums.Availability
	Price             *decimal.Decimal
	PurchasePrice     *decimal.Decimal
	StaffID           uuid.UUID
	StaffRole         enums.UserRole
}

// MenuItemDTO is the API shape of a stocked item.
type MenuItemDTO struct {
	ID                uuid.UUID          `json:"id"`
	Name              string             `json:"name"`
	Category          string             `json:"category"`
	Price             decimal.Decimal    `json:"price"`
	PurchasePrice     decimal.Decimal    `json:"purchase_price"`
	Margin            decimal.Decimal    `json:"margin"`
	StockQuantity     int                `json:"stock_quantity"`
	LowStockThreshold int                `json:"low_stock_threshold"`
	Availability      enums.Availability `json:"availability"`
	IsLowStock        bool               `json:"is_low_stock"`
}

// FromModel maps a menu item row to its DTO.
func FromModel(m models.MenuItem) MenuItemDTO {
	return MenuItemDTO{
		ID:                m.ID,
		Name:              m.Name,
		Category:          m.Category,
		Price:             m.Price,
		PurchasePrice:     m.PurchasePrice,
		Margin:            m.Price.Sub(m.PurchasePrice),
		StockQuantity:     m.StockQuantity,
		LowStockThreshold: m.LowStockThreshold,
		Availability:      m.Availability,
		IsLowStock:        m.IsLowStock(),
	}
}
