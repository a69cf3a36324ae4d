package enums

import "fmt"

// PayableStatus tracks whether a seller payable still has a balance.
type PayableStatus string

const (
	PayableStatusPending PayableStatus = "pending"
	PayableStatusSettled PayableStatus = "settled"
)

var validPayableStatuses = []PayableStatus{
	PayableStatusPending,
	PayableStatusSettled,
}

// IsValid reports whether the value is a known PayableStatus.
func (s PayableStatus) IsValid() bool {
	for _, candidate := range validPayableStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// PaymentMode is how the business paid a seller.
type PaymentMode string

const (
	PaymentModeCash PaymentMode = "cash"
	PaymentModeQR   PaymentMode = "qr"
)

var validPaymentModes = []PaymentMode{
	PaymentModeCash,
	PaymentModeQR,
}

// String implements fmt.Stringer.
func (m PaymentMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known PaymentMode.
func (m PaymentMode) IsValid() bool {
	for _, candidate := range validPaymentModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// PaymentMethod maps the payable mode onto the register column it feeds.
func (m PaymentMode) PaymentMethod() PaymentMethod {
	if m == PaymentModeQR {
		return PaymentMethodQR
	}
	return PaymentMethodCash
}

// ParsePaymentMode converts raw input into PaymentMode.
func ParsePaymentMode(value string) (PaymentMode, error) {
	for _, candidate := range validPaymentModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment mode %q", value)
}
