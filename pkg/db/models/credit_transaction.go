package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posledger/pkg/enums"
)

// CreditTransaction is one append-only movement on a customer or seller
// balance. Amount is the signed delta; BalanceAfter is the owner's balance
// once it was applied.
type CreditTransaction struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerKind    enums.CreditOwnerKind `gorm:"column:owner_kind;type:credit_owner_kind;not null" json:"owner_kind"`
	OwnerID      uuid.UUID             `gorm:"column:owner_id;type:uuid;not null" json:"owner_id"`
	OrderID      *uuid.UUID            `gorm:"column:order_id;type:uuid" json:"order_id,omitempty"`
	PayableID    *uuid.UUID            `gorm:"column:payable_id;type:uuid" json:"payable_id,omitempty"`
	Amount       decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Action       enums.CreditAction    `gorm:"column:action;type:credit_action;not null" json:"action"`
	BalanceAfter decimal.Decimal       `gorm:"column:balance_after;type:numeric(12,2);not null" json:"balance_after"`
	Note         *string               `gorm:"column:note" json:"note,omitempty"`
	StaffID      *uuid.UUID            `gorm:"column:staff_id;type:uuid" json:"staff_id,omitempty"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
