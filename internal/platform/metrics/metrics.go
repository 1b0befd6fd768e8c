package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the audit core.
type Metrics struct {
	EntriesAppended  *prometheus.CounterVec
	ChangesRecorded  prometheus.Counter
	ValuesRedacted   prometheus.Counter
	ValuesTruncated  prometheus.Counter
	FlushesProcessed prometheus.Counter
}

// New creates and registers all metrics on the default registerer.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on a specific registerer. Tests use a fresh
// registry per test to avoid duplicate-registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EntriesAppended: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "entitylog_audit_entries_total",
			Help: "Audit entries appended, by entry type.",
		}, []string{"type"}),
		ChangesRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "entitylog_changes_recorded_total",
			Help: "Attribute changes accepted by the change accumulator.",
		}),
		ValuesRedacted: factory.NewCounter(prometheus.CounterOpts{
			Name: "entitylog_values_redacted_total",
			Help: "Hidden-attribute changes recorded with redacted content.",
		}),
		ValuesTruncated: factory.NewCounter(prometheus.CounterOpts{
			Name: "entitylog_values_truncated_total",
			Help: "Change values replaced by the large-value marker.",
		}),
		FlushesProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "entitylog_flushes_processed_total",
			Help: "Transaction flushes drained by the audit service.",
		}),
	}
}
