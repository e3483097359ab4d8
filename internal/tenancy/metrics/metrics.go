package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for tenant resolution and context building.
type Metrics struct {
	Resolutions        *prometheus.CounterVec
	ResolutionFailures *prometheus.CounterVec
	ResolveDuration    prometheus.Histogram
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter
	MembershipFailures prometheus.Counter
}

// New creates a Metrics instance with all tenancy metrics registered.
func New() *Metrics {
	return &Metrics{
		Resolutions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfare_tenant_resolutions_total",
			Help: "Tenant resolutions by matched strategy",
		}, []string{"strategy"}),
		ResolutionFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfare_tenant_resolution_failures_total",
			Help: "Tenant resolution failures by reason (inactive, not_found)",
		}, []string{"reason"}),
		ResolveDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "wayfare_tenant_resolve_duration_seconds",
			Help:    "Duration of tenant resolution (request critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfare_tenant_cache_hits_total",
			Help: "Tenant directory cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfare_tenant_cache_misses_total",
			Help: "Tenant directory cache misses",
		}),
		MembershipFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfare_tenant_membership_failures_total",
			Help: "Context builds rejected because the user does not belong to the resolved tenant",
		}),
	}
}

// ObserveResolve records the duration of a resolution.
// Call with time.Now() captured at the start.
func (m *Metrics) ObserveResolve(start time.Time) {
	m.ResolveDuration.Observe(time.Since(start).Seconds())
}

// IncrementResolution records a successful resolution by strategy name.
func (m *Metrics) IncrementResolution(strategy string) {
	m.Resolutions.WithLabelValues(strategy).Inc()
}

// IncrementResolutionFailure records a failed resolution by reason.
func (m *Metrics) IncrementResolutionFailure(reason string) {
	m.ResolutionFailures.WithLabelValues(reason).Inc()
}
