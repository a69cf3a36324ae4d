package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics counts the money-moving events of the POS ledger.
type LedgerMetrics struct {
	ordersCompleted *prometheus.CounterVec
	stockRejected   *prometheus.CounterVec
	decayCustomers  prometheus.Counter
	decayPoints     prometheus.Counter
	payablesSettled *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger counters on reg. A nil registerer
// yields a recorder that drops every observation.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	m := &LedgerMetrics{
		ordersCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posledger_orders_completed_total",
			Help: "Orders settled, by payment method.",
		}, []string{"method"}),
		stockRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posledger_stock_rejections_total",
			Help: "Stock reductions refused for insufficient quantity.",
		}, []string{"menu_item"}),
		decayCustomers: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "posledger_loyalty_decay_customers_total",
			Help: "Customers whose points were reduced for inactivity.",
		}),
		decayPoints: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "posledger_loyalty_decay_points_total",
			Help: "Loyalty points removed for inactivity.",
		}),
		payablesSettled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "posledger_payable_payments_total",
			Help: "Seller payments recorded, by mode.",
		}, []string{"mode"}),
	}
	reg.MustRegister(m.ordersCompleted, m.stockRejected, m.decayCustomers, m.decayPoints, m.payablesSettled)
	return m
}

// OrderCompleted counts one settled order.
func (m *LedgerMetrics) OrderCompleted(method string) {
	if m == nil || m.ordersCompleted == nil {
		return
	}
	m.ordersCompleted.WithLabelValues(normalizeLabel(method)).Inc()
}

// StockRejected counts one refused stock reduction.
func (m *LedgerMetrics) StockRejected(itemID string) {
	if m == nil || m.stockRejected == nil {
		return
	}
	m.stockRejected.WithLabelValues(normalizeLabel(itemID)).Inc()
}

// DecayApplied records the outcome of one inactivity sweep.
func (m *LedgerMetrics) DecayApplied(customers int, points int64) {
	if m == nil || m.decayCustomers == nil {
		return
	}
	m.decayCustomers.Add(float64(customers))
	m.decayPoints.Add(float64(points))
}

// PayableSettled counts one seller payment run.
func (m *LedgerMetrics) PayableSettled(mode string) {
	if m == nil || m.payablesSettled == nil {
		return
	}
	m.payablesSettled.WithLabelValues(normalizeLabel(mode)).Inc()
}
