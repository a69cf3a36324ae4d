package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posledger/internal/credit"
	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
)

// ItemInput is one requested line.
type ItemInput struct {
	MenuItemID uuid.UUID
	Quantity   int
}

// Actor identifies the staff member driving a mutation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

// CreateOrderInput opens a new ticket.
type CreateOrderInput struct {
	CustomerID *uuid.UUID
	OrderType  enums.OrderType
	Discount   decimal.Decimal
	Notes      *string
	Items      []ItemInput
	Actor      Actor
}

// StockWarning records a line whose stock could not be reduced at creation.
type StockWarning struct {
	MenuItemID uuid.UUID `json:"menu_item_id"`
	Quantity   int       `json:"quantity"`
	Message    string    `json:"message"`
}

// CreateOrderResult is the created order plus any stock shortfalls that were
// tolerated while creating it.
type CreateOrderResult struct {
	Order         *models.Order  `json:"order"`
	StockWarnings []StockWarning `json:"stock_warnings,omitempty"`
}

// AddItemInput adds quantity of a menu item to an open order.
type AddItemInput struct {
	OrderID    uuid.UUID
	MenuItemID uuid.UUID
	Quantity   int
	Actor      Actor
}

// RemoveItemInput removes a line, or part of it when Quantity is set.
type RemoveItemInput struct {
	OrderID  uuid.UUID
	ItemID   uuid.UUID
	Quantity *int
	Actor    Actor
}

// CompletePaymentInput settles an order.
type CompletePaymentInput struct {
	OrderID uuid.UUID
	Method  enums.PaymentMethod
	Actor   Actor
}

// CompletePaymentResult reports the side effects of a settlement.
type CompletePaymentResult struct {
	Order             *models.Order             `json:"order"`
	RegisterID        uuid.UUID                 `json:"register_id"`
	PointsEarned      int64                     `json:"points_earned"`
	CreditTransaction *models.CreditTransaction `json:"credit_transaction,omitempty"`
}

// ListFilter narrows the order list.
type ListFilter struct {
	Status     *enums.OrderStatus
	CustomerID *uuid.UUID
	From       *time.Time
	To         *time.Time
	Limit      int
}

// creditEntryFor builds the ledger entry for an order settled on credit.
func creditEntryFor(order *models.Order, staffID uuid.UUID) credit.Entry {
	entry := credit.Entry{
		Account: credit.Customer(*order.CustomerID),
		Amount:  order.Total,
		Action:  enums.CreditActionAdded,
		OrderID: &order.ID,
		Note:    "Order #" + order.OrderNumber + " completed on credit",
	}
	if staffID != uuid.Nil {
		staff := staffID
		entry.StaffID = &staff
	}
	return entry
}
