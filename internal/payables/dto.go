package payables

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
)

// CreateInput records a new amount owed to a seller.
type CreateInput struct {
	SellerID    uuid.UUID
	Amount      decimal.Decimal
	Description string
	StaffID     uuid.UUID
	StaffRole   enums.UserRole
}

// PayInput is one payment handed to a seller. PayableID targets a single
// payable; without it the amount is applied oldest first.
type PayInput struct {
	SellerID  uuid.UUID
	Amount    decimal.Decimal
	Mode      enums.PaymentMode
	PayableID *uuid.UUID
	Remark    string
	StaffID   uuid.UUID
	StaffRole enums.UserRole
}

// Application is the share of a payment applied to one payable.
type Application struct {
	PayableID uuid.UUID       `json:"payable_id"`
	Applied   decimal.Decimal `json:"applied"`
	Remaining decimal.Decimal `json:"remaining_amount"`
	Settled   bool            `json:"settled"`
}

// PayResult reports what a seller payment did. RegisterUpdated is false when
// no open register could be refreshed; the payment itself still stands.
type PayResult struct {
	SellerID        uuid.UUID         `json:"seller_id"`
	Mode            enums.PaymentMode `json:"payment_mode"`
	Applied         decimal.Decimal   `json:"applied"`
	Applications    []Application     `json:"applications"`
	TotalPayable    decimal.Decimal   `json:"total_payable"`
	RegisterUpdated bool              `json:"register_updated"`
	RegisterID      *uuid.UUID        `json:"register_id,omitempty"`
}

// Summary is the seller's account view.
type Summary struct {
	Seller         *models.Seller          `json:"seller"`
	TotalPayable   decimal.Decimal         `json:"total_payable"`
	TotalPaid      decimal.Decimal         `json:"total_paid"`
	Pending        []models.Payable        `json:"pending"`
	Payables       []models.Payable        `json:"payables"`
	RecentPayments []models.PayablePayment `json:"recent_payments"`
}

// SellerInput registers a supplier. Only Name is required.
type SellerInput struct {
	Name    string
	Contact string
	Email   string
	Notes   string
}

// SellerFilter narrows the seller list. Search matches part of the name.
type SellerFilter struct {
	Search string
	Limit  int
}

// SellerOverview is one row of the seller list.
type SellerOverview struct {
	Seller       models.Seller   `json:"seller"`
	TotalPayable decimal.Decimal `json:"total_payable"`
	PendingCount int             `json:"pending_count"`
}
