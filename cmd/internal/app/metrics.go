package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"finapp/cmd/internal/auth/session"
)

type reaperMetrics struct {
	runs    prometheus.Counter
	deleted *prometheus.CounterVec
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func newReaperMetrics(reg prometheus.Registerer) *reaperMetrics {
	m := &reaperMetrics{
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "finapp",
			Subsystem: "reaper",
			Name:      "runs_total",
			Help:      "Completed reaper runs.",
		}),
		deleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finapp",
			Subsystem: "reaper",
			Name:      "deleted_total",
			Help:      "Rows or entries removed by the reaper, by sweep.",
		}, []string{"sweep"}),
	}
	reg.MustRegister(m.runs, m.deleted)
	return m
}

// observe matches session.WithObserver.
func (m *reaperMetrics) observe(r session.SweepReport) {
	m.runs.Inc()
	m.deleted.WithLabelValues("sessions").Add(float64(r.Sessions))
	for name, n := range r.Extra {
		m.deleted.WithLabelValues(name).Add(float64(n))
	}
}
