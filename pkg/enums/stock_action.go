package enums

import "fmt"

// StockAction is the manual inventory correction requested by a manager.
type StockAction string

const (
	StockActionSet      StockAction = "set"
	StockActionAdd      StockAction = "add"
	StockActionDecrease StockAction = "decrease"
)

var validStockActions = []StockAction{
	StockActionSet,
	StockActionAdd,
	StockActionDecrease,
}

// IsValid reports whether the value is a known StockAction.
func (a StockAction) IsValid() bool {
	for _, candidate := range validStockActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseStockAction converts raw input into StockAction.
func ParseStockAction(value string) (StockAction, error) {
	for _, candidate := range validStockActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock action %q", value)
}
