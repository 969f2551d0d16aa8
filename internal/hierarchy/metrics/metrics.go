package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks hierarchy chart serving.
type Metrics struct {
	ChartCacheHits   prometheus.Counter
	ChartCacheMisses prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		ChartCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sangha_hierarchy_chart_cache_hits_total",
			Help: "Chart requests served from the Redis cache",
		}),
		ChartCacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sangha_hierarchy_chart_cache_misses_total",
			Help: "Chart requests rebuilt from the store",
		}),
	}
}
