package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application. A nil *Metrics is
// valid and counts nothing, so tests can pass nil.
type Metrics struct {
	RegistrationsCreated *prometheus.CounterVec
	BulkRowsCommitted    prometheus.Counter
	BulkImportsFailed    prometheus.Counter
	ScoresEntered        prometheus.Counter
	FilesServed          prometheus.Counter
	FilesDenied          prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		RegistrationsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "olympreg_registrations_created_total",
			Help: "Total country and person records created, by entity.",
		}, []string{"entity"}),
		BulkRowsCommitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "olympreg_bulk_rows_committed_total",
			Help: "Total bulk import rows committed.",
		}),
		BulkImportsFailed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "olympreg_bulk_imports_failed_total",
			Help: "Total bulk imports rejected during validation or commit.",
		}),
		ScoresEntered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "olympreg_scores_entered_total",
			Help: "Total score cells written.",
		}),
		FilesServed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "olympreg_files_served_total",
			Help: "Total file downloads permitted by the visibility resolver.",
		}),
		FilesDenied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "olympreg_files_denied_total",
			Help: "Total file downloads denied by the visibility resolver.",
		}),
	}
}

// CountRegistration increments the created counter for an entity kind.
func (m *Metrics) CountRegistration(entity string) {
	if m == nil {
		return
	}
	m.RegistrationsCreated.WithLabelValues(entity).Inc()
}

// CountBulkRows adds committed bulk rows.
func (m *Metrics) CountBulkRows(n int) {
	if m == nil {
		return
	}
	m.BulkRowsCommitted.Add(float64(n))
}

// CountBulkFailure increments the failed-imports counter.
func (m *Metrics) CountBulkFailure() {
	if m == nil {
		return
	}
	m.BulkImportsFailed.Inc()
}

// CountScore increments the score-cells counter.
func (m *Metrics) CountScore() {
	if m == nil {
		return
	}
	m.ScoresEntered.Inc()
}

// CountFileServed increments the served counter.
func (m *Metrics) CountFileServed() {
	if m == nil {
		return
	}
	m.FilesServed.Inc()
}

// CountFileDenied increments the denied counter.
func (m *Metrics) CountFileDenied() {
	if m == nil {
		return
	}
	m.FilesDenied.Inc()
}
