package authapi

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the auth endpoint counters.
type Metrics struct {
	logins      *prometheus.CounterVec
	refreshes   *prometheus.CounterVec
	rateLimited prometheus.Counter
}

// NewMetrics registers the auth counters on reg. A nil reg yields
// unregistered collectors, which tests use.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		logins: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finapp",
			Subsystem: "auth",
			Name:      "logins_total",
			Help:      "Login attempts by outcome code.",
		}, []string{"outcome"}),
		refreshes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "finapp",
			Subsystem: "auth",
			Name:      "refreshes_total",
			Help:      "Token refreshes by outcome code.",
		}, []string{"outcome"}),
		rateLimited: f.NewCounter(prometheus.CounterOpts{
			Namespace: "finapp",
			Subsystem: "auth",
			Name:      "rate_limited_total",
			Help:      "Authenticated requests rejected by the per-principal rate limiter.",
		}),
	}
}

func (m *Metrics) observeLogin(outcome string) {
	if m != nil {
		m.logins.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) observeRefresh(outcome string) {
	if m != nil {
		m.refreshes.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) observeRateLimited() {
	if m != nil {
		m.rateLimited.Inc()
	}
}
