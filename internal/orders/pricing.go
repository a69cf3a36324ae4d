package orders

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posledger/pkg/db/models"
	"github.com/angelmondragon/posledger/pkg/enums"
)

// CalculateTotals derives subtotal, delivery fee, total and the provisional
// loyalty figure from the line items. It is the only place order money is
// computed and is safe to call after every line mutation.
func CalculateTotals(order *models.Order, items []models.OrderItem, deliveryFee decimal.Decimal) {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Subtotal)
	}
	order.Subtotal = subtotal.Round(2)

	order.DeliveryFee = decimal.Zero
	if order.OrderType == enums.OrderTypeDelivery {
		order.DeliveryFee = deliveryFee.Round(2)
	}

	order.Total = order.Subtotal.Add(order.DeliveryFee).Sub(order.Discount).Round(2)

	order.LoyaltyPointsEarned = 0
	if order.CustomerID != nil && order.Total.IsPositive() {
		order.LoyaltyPointsEarned = order.Total.Floor().IntPart()
	}
}

// LineSubtotal is price times quantity rounded to cents.
func LineSubtotal(price decimal.Decimal, qty int) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(int64(qty))).Round(2)
}

// EarnedPoints is the completion reward: floor(total / divisor) for methods
// that earn loyalty, zero otherwise.
func EarnedPoints(method enums.PaymentMethod, total decimal.Decimal, divisor int64) int64 {
	if !method.EarnsLoyalty() || divisor <= 0 || !total.IsPositive() {
		return 0
	}
	return total.Div(decimal.NewFromInt(divisor)).Floor().IntPart()
}
