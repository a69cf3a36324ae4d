package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Register is one cash-drawer session.
type Register struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OpenedBy       uuid.UUID        `gorm:"column:opened_by;type:uuid;not null" json:"opened_by"`
	OpenedAt       time.Time        `gorm:"column:opened_at;not null" json:"opened_at"`
	OpeningBalance decimal.Decimal  `gorm:"column:opening_balance;type:numeric(12,2);not null;default:0" json:"opening_balance"`
	ClosedBy       *uuid.UUID       `gorm:"column:closed_by;type:uuid" json:"closed_by,omitempty"`
	ClosedAt       *time.Time       `gorm:"column:closed_at" json:"closed_at,omitempty"`
	ClosingBalance *decimal.Decimal `gorm:"column:closing_balance;type:numeric(12,2)" json:"closing_balance,omitempty"`
	CashTotal      decimal.Decimal  `gorm:"column:cash_total;type:numeric(12,2);not null;default:0" json:"cash_total"`
	CreditTotal    decimal.Decimal  `gorm:"column:credit_total;type:numeric(12,2);not null;default:0" json:"credit_total"`
	QRTotal        decimal.Decimal  `gorm:"column:qr_total;type:numeric(12,2);not null;default:0" json:"qr_total"`
	IsOpen         bool             `gorm:"column:is_open;not null;default:true" json:"is_open"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// ExpectedBalance is opening balance plus every per-method total.
func (r Register) ExpectedBalance() decimal.Decimal {
	return r.OpeningBalance.Add(r.CashTotal).Add(r.CreditTotal).Add(r.QRTotal).Round(2)
}
