package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit trail.
type Metrics struct {
	Entries *prometheus.CounterVec
	// WriteFailures counts swallowed audit writes. Each one is a gap in the
	// trail; a sustained rate must page.
	WriteFailures prometheus.Counter

	RelayPublished prometheus.Counter
	RelayFailures  prometheus.Counter
}

// New creates a Metrics instance with all audit metrics registered.
func New() *Metrics {
	return &Metrics{
		Entries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfare_audit_entries_total",
			Help: "Audit entries recorded by action",
		}, []string{"action"}),
		WriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfare_audit_write_failures_total",
			Help: "Audit writes that failed and were swallowed",
		}),
		RelayPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfare_audit_relay_published_total",
			Help: "Outbox entries published to the audit topic",
		}),
		RelayFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "wayfare_audit_relay_failures_total",
			Help: "Outbox relay iterations that failed",
		}),
	}
}
