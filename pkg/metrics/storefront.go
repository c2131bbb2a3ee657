package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StorefrontMetrics records cart and recommendation activity.
type StorefrontMetrics struct {
	cartOps         *prometheus.CounterVec
	cartRecompute   prometheus.Histogram
	recommendations *prometheus.CounterVec
	persistFailures *prometheus.CounterVec
	trackedEvents   *prometheus.CounterVec
}

// NewStorefrontMetrics registers the storefront metrics on the provided registerer.
func NewStorefrontMetrics(reg prometheus.Registerer) *StorefrontMetrics {
	if reg == nil {
		return &StorefrontMetrics{}
	}
	cartOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Cart mutations by operation and outcome.",
	}, []string{"operation", "outcome"})
	cartRecompute := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cart_recompute_duration_seconds",
		Help:    "Duration of cart total recomputation.",
		Buckets: prometheus.DefBuckets,
	})
	recommendations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recommendations_served_total",
		Help: "Recommendation lists served by tier.",
	}, []string{"tier"})
	persistFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "persist_failures_total",
		Help: "Failed storage writes by component.",
	}, []string{"component"})
	trackedEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tracked_events_total",
		Help: "Interaction events recorded by kind.",
	}, []string{"kind"})
	reg.MustRegister(cartOps, cartRecompute, recommendations, persistFailures, trackedEvents)
	return &StorefrontMetrics{
		cartOps:         cartOps,
		cartRecompute:   cartRecompute,
		recommendations: recommendations,
		persistFailures: persistFailures,
		trackedEvents:   trackedEvents,
	}
}

// IncCartOp increments the cart operation counter.
func (m *StorefrontMetrics) IncCartOp(operation, outcome string) {
	if m == nil || m.cartOps == nil {
		return
	}
	m.cartOps.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// ObserveRecompute records the duration of a cart recomputation.
func (m *StorefrontMetrics) ObserveRecompute(duration time.Duration) {
	if m == nil || m.cartRecompute == nil {
		return
	}
	m.cartRecompute.Observe(duration.Seconds())
}

// IncRecommendation increments the served counter for the given tier.
func (m *StorefrontMetrics) IncRecommendation(tier string) {
	if m == nil || m.recommendations == nil {
		return
	}
	m.recommendations.WithLabelValues(normalizeLabel(tier)).Inc()
}

// IncPersistFailure increments the failed-write counter for the component.
func (m *StorefrontMetrics) IncPersistFailure(component string) {
	if m == nil || m.persistFailures == nil {
		return
	}
	m.persistFailures.WithLabelValues(normalizeLabel(component)).Inc()
}

// IncTrackedEvent increments the interaction counter for the event kind.
func (m *StorefrontMetrics) IncTrackedEvent(kind string) {
	if m == nil || m.trackedEvents == nil {
		return
	}
	m.trackedEvents.WithLabelValues(normalizeLabel(kind)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
