package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks succession engine activity.
type Metrics struct {
	TransitionsTotal   *prometheus.CounterVec
	TransitionDuration *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "sangha_succession_transitions_total",
			Help: "Succession operations by type and outcome",
		}, []string{"operation", "outcome"}),
		TransitionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sangha_succession_transition_duration_seconds",
			Help:    "Succession operation latency by type",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}
