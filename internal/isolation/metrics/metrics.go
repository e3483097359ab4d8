package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the data-access enforcement layer.
type Metrics struct {
	Operations *prometheus.CounterVec
	// MissingTenantContext counts fail-closed rejections. Any nonzero rate
	// indicates a caller bypassing the wrapped client; alert, don't just
	// graph.
	MissingTenantContext prometheus.Counter
	CrossTenantOwner     prometheus.Counter
}

// New creates a Metrics instance with all isolation metrics registered.
func New() *Metrics {
	return &Metrics{
		Operations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfare_isolation_operations_total",
			Help: "Storage operations through the isolation layer by entity, verb and scope",
		}, []string{"entity", "verb", "scope"}),
		MissingTenantContext: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfare_isolation_missing_tenant_context_total",
			Help: "Isolated-entity operations rejected because no tenant was bound",
		}),
		CrossTenantOwner: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfare_isolation_cross_tenant_owner_rejections_total",
			Help: "Creates rejected because the referenced owner belongs to another tenant",
		}),
	}
}
