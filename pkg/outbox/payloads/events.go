package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posledger/pkg/enums"
)

// OrderCreatedEvent announces a new pending ticket.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  *uuid.UUID      `json:"customer_id,omitempty"`
	StaffID     uuid.UUID       `json:"staff_id"`
	OrderType   enums.OrderType `json:"order_type"`
	Total       decimal.Decimal `json:"total"`
	ItemCount   int             `json:"item_count"`
	StockIssues []string        `json:"stock_issues,omitempty"`
}

// OrderCompletedEvent is emitted once per order when payment settles.
type OrderCompletedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderNumber   string              `json:"order_number"`
	CustomerID    *uuid.UUID          `json:"customer_id,omitempty"`
	RegisterID    uuid.UUID           `json:"register_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	PaidAmount    decimal.Decimal     `json:"paid_amount"`
	PointsEarned  int64               `json:"points_earned"`
	CompletedAt   time.Time           `json:"completed_at"`
}

// OrderClosedEvent covers cancellation and deletion of an unpaid order.
type OrderClosedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	Status      enums.OrderStatus `json:"status"`
	ClosedAt    time.Time         `json:"closed_at"`
}

// RegisterEvent reports an opened or closed cash drawer session.
type RegisterEvent struct {
	RegisterID     uuid.UUID        `json:"register_id"`
	OpenedBy       uuid.UUID        `json:"opened_by"`
	OpeningBalance decimal.Decimal  `json:"opening_balance"`
	ClosedBy       *uuid.UUID       `json:"closed_by,omitempty"`
	CashTotal      decimal.Decimal  `json:"cash_total"`
	CreditTotal    decimal.Decimal  `json:"credit_total"`
	QRTotal        decimal.Decimal  `json:"qr_total"`
	ClosingBalance *decimal.Decimal `json:"closing_balance,omitempty"`
}

// StockAdjustedEvent reports a manual inventory correction.
type StockAdjustedEvent struct {
	MenuItemID    uuid.UUID          `json:"menu_item_id"`
	Action        enums.StockAction  `json:"action"`
	PreviousStock int                `json:"previous_stock"`
	NewStock      int                `json:"new_stock"`
	Availability  enums.Availability `json:"availability"`
	AdjustedBy    uuid.UUID          `json:"adjusted_by"`
}

// CreditPostedEvent mirrors one credit ledger row.
type CreditPostedEvent struct {
	TransactionID uuid.UUID             `json:"transaction_id"`
	OwnerKind     enums.CreditOwnerKind `json:"owner_kind"`
	OwnerID       uuid.UUID             `json:"owner_id"`
	Action        enums.CreditAction    `json:"action"`
	Amount        decimal.Decimal       `json:"amount"`
	BalanceAfter  decimal.Decimal       `json:"balance_after"`
	OrderID       *uuid.UUID            `json:"order_id,omitempty"`
	PayableID     *uuid.UUID            `json:"payable_id,omitempty"`
}

// LoyaltyPostedEvent mirrors one loyalty ledger row.
type LoyaltyPostedEvent struct {
	TransactionID uuid.UUID                    `json:"transaction_id"`
	CustomerID    uuid.UUID                    `json:"customer_id"`
	Type          enums.LoyaltyTransactionType `json:"type"`
	Points        int64                        `json:"points"`
	Balance       int64                        `json:"balance"`
	OrderID       *uuid.UUID                   `json:"order_id,omitempty"`
}

// PayableRecordedEvent reports a new amount owed to a seller.
type PayableRecordedEvent struct {
	PayableID uuid.UUID       `json:"payable_id"`
	SellerID  uuid.UUID       `json:"seller_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// PayableSettledEvent summarizes one seller payment run.
type PayableSettledEvent struct {
	SellerID   uuid.UUID         `json:"seller_id"`
	Amount     decimal.Decimal   `json:"amount"`
	Mode       enums.PaymentMode `json:"mode"`
	PayableIDs []uuid.UUID       `json:"payable_ids"`
	SettledIDs []uuid.UUID       `json:"settled_ids,omitempty"`
}
