package services

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aqlhr/import-engine/modules/importer/domain/aggregates/importjob"
	"github.com/aqlhr/import-engine/modules/importer/domain/aggregates/importrow"
	"github.com/aqlhr/import-engine/pkg/eventbus"
)

// MetricsRecorder feeds Prometheus counters from import events.
type MetricsRecorder struct {
	rowsRetried *prometheus.CounterVec
	reconciled  prometheus.Counter
}

func NewMetricsRecorder(reg prometheus.Registerer) *MetricsRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &MetricsRecorder{
		rowsRetried: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "import_rows_retried_total",
			Help: "Import rows processed by the retry path, by outcome.",
		}, []string{"outcome"}),
		reconciled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "import_jobs_reconciled_total",
			Help: "Import jobs whose counters were recounted from row state.",
		}),
	}
	reg.MustRegister(m.rowsRetried, m.reconciled)
	return m
}

// Register subscribes the recorder to import events.
func (m *MetricsRecorder) Register(bus eventbus.EventBus) {
	bus.Subscribe(m.onRowRetried)
	bus.Subscribe(m.onJobReconciled)
}

func (m *MetricsRecorder) onRowRetried(ev *importrow.RetriedEvent) {
	if ev.Success {
		m.rowsRetried.WithLabelValues("success").Inc()
		return
	}
	m.rowsRetried.WithLabelValues("failed").Inc()
}

func (m *MetricsRecorder) onJobReconciled(ev *importjob.ReconciledEvent) {
	m.reconciled.Inc()
}
