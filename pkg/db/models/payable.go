package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posledger/pkg/enums"
)

// Payable is an amount owed to a seller, paid down over time.
type Payable struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SellerID        uuid.UUID           `gorm:"column:seller_id;type:uuid;not null" json:"seller_id"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	RemainingAmount decimal.Decimal     `gorm:"column:remaining_amount;type:numeric(12,2);not null" json:"remaining_amount"`
	Status          enums.PayableStatus `gorm:"column:status;type:payable_status;not null;default:'pending'" json:"status"`
	Description     *string             `gorm:"column:description" json:"description,omitempty"`
	PaidAt          *time.Time          `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// PayablePayment records one application of a seller payment to a payable.
type PayablePayment struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SellerID    uuid.UUID         `gorm:"column:seller_id;type:uuid;not null" json:"seller_id"`
	PayableID   uuid.UUID         `gorm:"column:payable_id;type:uuid;not null" json:"payable_id"`
	Amount      decimal.Decimal   `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	PaymentMode enums.PaymentMode `gorm:"column:payment_mode;type:payment_mode;not null" json:"payment_mode"`
	Remark      *string           `gorm:"column:remark" json:"remark,omitempty"`
	StaffID     *uuid.UUID        `gorm:"column:staff_id;type:uuid" json:"staff_id,omitempty"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
