package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posledger/pkg/enums"
)

// Order is a POS ticket with its derived money fields.
type Order struct {
	ID                  uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OrderNumber         string               `gorm:"column:order_number;not null;uniqueIndex" json:"order_number"`
	CustomerID          *uuid.UUID           `gorm:"column:customer_id;type:uuid" json:"customer_id,omitempty"`
	StaffID             uuid.UUID            `gorm:"column:staff_id;type:uuid;not null" json:"staff_id"`
	OrderType           enums.OrderType      `gorm:"column:order_type;type:order_type;not null;default:'dine_in'" json:"order_type"`
	Status              enums.OrderStatus    `gorm:"column:status;type:order_status;not null;default:'pending'" json:"status"`
	Subtotal            decimal.Decimal      `gorm:"column:subtotal;type:numeric(12,2);not null;default:0" json:"subtotal"`
	Discount            decimal.Decimal      `gorm:"column:discount;type:numeric(12,2);not null;default:0" json:"discount"`
	DeliveryFee         decimal.Decimal      `gorm:"column:delivery_fee;type:numeric(12,2);not null;default:0" json:"delivery_fee"`
	Total               decimal.Decimal      `gorm:"column:total;type:numeric(12,2);not null;default:0" json:"total"`
	PaymentMethod       *enums.PaymentMethod `gorm:"column:payment_method;type:payment_method" json:"payment_method,omitempty"`
	PaymentStatus       enums.PaymentStatus  `gorm:"column:payment_status;type:payment_status;not null;default:'pending'" json:"payment_status"`
	PaidAmount          decimal.Decimal      `gorm:"column:paid_amount;type:numeric(12,2);not null;default:0" json:"paid_amount"`
	LoyaltyPointsUsed   int64                `gorm:"column:loyalty_points_used;not null;default:0" json:"loyalty_points_used"`
	LoyaltyPointsEarned int64                `gorm:"column:loyalty_points_earned;not null;default:0" json:"loyalty_points_earned"`
	Notes               *string              `gorm:"column:notes" json:"notes,omitempty"`
	Items               []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt           time.Time            `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time            `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	CompletedAt         *time.Time           `gorm:"column:completed_at" json:"completed_at,omitempty"`
}
