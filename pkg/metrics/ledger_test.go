package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestLedgerMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewLedgerMetrics(reg)

	m.OrderCompleted("cash")
	m.OrderCompleted("cash")
	m.OrderCompleted("credit")
	m.StockRejected("")
	m.DecayApplied(2, 11)
	m.PayableSettled("qr")

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	if got, err := fetchCounterValue(mfs, "posledger_orders_completed_total", "method", "cash"); err != nil || got != 2 {
		t.Fatalf("expected cash=2, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "posledger_stock_rejections_total", "menu_item", "unknown"); err != nil || got != 1 {
		t.Fatalf("expected unknown rejection=1, got %f (%v)", got, err)
	}
	if got, err := fetchCounterValue(mfs, "posledger_payable_payments_total", "mode", "qr"); err != nil || got != 1 {
		t.Fatalf("expected qr payment=1, got %f (%v)", got, err)
	}
	points := findMetricFamily(mfs, "posledger_loyalty_decay_points_total")
	if points == nil || points.GetMetric()[0].GetCounter().GetValue() != 11 {
		t.Fatalf("expected 11 decayed points, got %v", points)
	}
}

func TestLedgerMetricsNilSafe(t *testing.T) {
	var m *LedgerMetrics
	m.OrderCompleted("cash")
	m.DecayApplied(1, 1)

	empty := NewLedgerMetrics(nil)
	empty.StockRejected("x")
	empty.PayableSettled("cash")
}
