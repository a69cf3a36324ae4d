package enums

import "fmt"

// CreditOwnerKind identifies which table owns a credit balance.
type CreditOwnerKind string

const (
	CreditOwnerCustomer CreditOwnerKind = "customer"
	CreditOwnerSeller   CreditOwnerKind = "seller"
)

var validCreditOwnerKinds = []CreditOwnerKind{
	CreditOwnerCustomer,
	CreditOwnerSeller,
}

// String implements fmt.Stringer.
func (k CreditOwnerKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known CreditOwnerKind.
func (k CreditOwnerKind) IsValid() bool {
	for _, candidate := range validCreditOwnerKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseCreditOwnerKind converts raw input into CreditOwnerKind.
func ParseCreditOwnerKind(value string) (CreditOwnerKind, error) {
	for _, candidate := range validCreditOwnerKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit owner kind %q", value)
}

// CreditAction is the direction recorded on a credit transaction.
type CreditAction string

const (
	CreditActionAdded   CreditAction = "credit_added"
	CreditActionDeduct  CreditAction = "deduct"
	CreditActionPayment CreditAction = "payment"
)

var validCreditActions = []CreditAction{
	CreditActionAdded,
	CreditActionDeduct,
	CreditActionPayment,
}

// String implements fmt.Stringer.
func (a CreditAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known CreditAction.
func (a CreditAction) IsValid() bool {
	for _, candidate := range validCreditActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// Increases reports whether the action raises the owner's balance.
func (a CreditAction) Increases() bool {
	return a == CreditActionAdded
}

// ParseCreditAction converts raw input into CreditAction.
func ParseCreditAction(value string) (CreditAction, error) {
	for _, candidate := range validCreditActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid credit action %q", value)
}
