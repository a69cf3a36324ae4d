package registers

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/posledger/pkg/enums"
)

// Totals accumulates amounts per register column.
type Totals struct {
	Cash   decimal.Decimal
	Credit decimal.Decimal
	QR     decimal.Decimal
}

// Add books amount under the column for method. Mixed payments are counted
// as cash.
func (t *Totals) Add(method enums.PaymentMethod, amount decimal.Decimal) {
	switch method {
	case enums.PaymentMethodCredit:
		t.Credit = t.Credit.Add(amount)
	case enums.PaymentMethodQR:
		t.QR = t.QR.Add(amount)
	default:
		t.Cash = t.Cash.Add(amount)
	}
}

// ColumnFor names the registers column fed by method.
func ColumnFor(method enums.PaymentMethod) string {
	switch method {
	case enums.PaymentMethodCredit:
		return "credit_total"
	case enums.PaymentMethodQR:
		return "qr_total"
	default:
		return "cash_total"
	}
}
