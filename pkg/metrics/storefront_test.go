package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestStorefrontMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewStorefrontMetrics(reg)

	m.IncCartOp("add_item", "success")
	m.IncCartOp("add_item", "success")
	m.IncRecommendation("behavioral")
	m.IncPersistFailure("cart")
	m.IncTrackedEvent("view")
	m.ObserveRecompute(25 * time.Millisecond)

	if got := testutil.ToFloat64(m.cartOps.WithLabelValues("add_item", "success")); got != 2 {
		t.Fatalf("expected 2 add_item successes, got %v", got)
	}
	if got := testutil.ToFloat64(m.recommendations.WithLabelValues("behavioral")); got != 1 {
		t.Fatalf("expected 1 behavioral serving, got %v", got)
	}
	if got := testutil.ToFloat64(m.persistFailures.WithLabelValues("cart")); got != 1 {
		t.Fatalf("expected 1 persist failure, got %v", got)
	}
}

func TestStorefrontMetricsNilSafe(t *testing.T) {
	var m *StorefrontMetrics
	m.IncCartOp("add_item", "success")
	m.ObserveRecompute(time.Second)

	empty := NewStorefrontMetrics(nil)
	empty.IncRecommendation("category")
	empty.IncTrackedEvent("search")
}
