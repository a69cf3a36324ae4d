package enums

import "fmt"

// LoyaltyTransactionType maps to the loyalty_transaction_type enum in Postgres.
type LoyaltyTransactionType string

const (
	LoyaltyEarned   LoyaltyTransactionType = "earned"
	LoyaltyRedeemed LoyaltyTransactionType = "redeemed"
	LoyaltyExpired  LoyaltyTransactionType = "expired"
	LoyaltyAdjusted LoyaltyTransactionType = "adjusted"
)

var validLoyaltyTransactionTypes = []LoyaltyTransactionType{
	LoyaltyEarned,
	LoyaltyRedeemed,
	LoyaltyExpired,
	LoyaltyAdjusted,
}

// String implements fmt.Stringer.
func (t LoyaltyTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value matches the canonical enum.
func (t LoyaltyTransactionType) IsValid() bool {
	for _, candidate := range validLoyaltyTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLoyaltyTransactionType converts raw input into LoyaltyTransactionType.
func ParseLoyaltyTransactionType(value string) (LoyaltyTransactionType, error) {
	for _, candidate := range validLoyaltyTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid loyalty transaction type %q", value)
}
