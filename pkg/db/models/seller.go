package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Seller is a supplier the business buys from on account. CreditBalance is
// what the business currently owes them.
type Seller struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name          string          `gorm:"column:name;not null" json:"name"`
	Contact       *string         `gorm:"column:contact" json:"contact,omitempty"`
	Email         *string         `gorm:"column:email" json:"email,omitempty"`
	Notes         *string         `gorm:"column:notes" json:"notes,omitempty"`
	CreditBalance decimal.Decimal `gorm:"column:credit_balance;type:numeric(12,2);not null;default:0" json:"credit_balance"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
