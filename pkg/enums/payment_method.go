package enums

import "fmt"

// PaymentMethod describes how an order was settled.
type PaymentMethod string

const (
	PaymentMethodCash   PaymentMethod = "cash"
	PaymentMethodQR     PaymentMethod = "qr"
	PaymentMethodCredit PaymentMethod = "credit"
	PaymentMethodMixed  PaymentMethod = "mixed"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodCash,
	PaymentMethodQR,
	PaymentMethodCredit,
	PaymentMethodMixed,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// EarnsLoyalty reports whether paying with p accrues loyalty points.
func (p PaymentMethod) EarnsLoyalty() bool {
	return p == PaymentMethodCash || p == PaymentMethodQR
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
