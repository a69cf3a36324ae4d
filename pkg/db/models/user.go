package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posledger/pkg/enums"
)

// User is the identity row shared by customers and the staff hierarchy.
// Customers carry the denormalized credit and loyalty balances.
type User struct {
	ID                  uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Email               *string         `gorm:"column:email;type:text" json:"email,omitempty"`
	Name                string          `gorm:"column:name;not null" json:"name"`
	Phone               *string         `gorm:"column:phone" json:"phone,omitempty"`
	PasswordHash        *string         `gorm:"column:password_hash" json:"-"`
	Role                enums.UserRole  `gorm:"column:role;type:user_role;not null;default:'customer'" json:"role"`
	CreditBalance       decimal.Decimal `gorm:"column:credit_balance;type:numeric(12,2);not null;default:0" json:"credit_balance"`
	TotalSpent          decimal.Decimal `gorm:"column:total_spent;type:numeric(12,2);not null;default:0" json:"total_spent"`
	LoyaltyPoints       int64           `gorm:"column:loyalty_points;not null;default:0" json:"loyalty_points"`
	TotalPointsEarned   int64           `gorm:"column:total_points_earned;not null;default:0" json:"total_points_earned"`
	TotalPointsRedeemed int64           `gorm:"column:total_points_redeemed;not null;default:0" json:"total_points_redeemed"`
	IsActive            bool            `gorm:"column:is_active;not null;default:true" json:"is_active"`
	LastLoginAt         *time.Time      `gorm:"column:last_login_at" json:"last_login_at,omitempty"`
	CreatedAt           time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
