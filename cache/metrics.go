package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for one or more caches. Caches
// sharing a Metrics report aggregate counts.
type Metrics struct {
	hits      prometheus.Counter
	misses    prometheus.Counter
	evictions prometheus.Counter
	entries   prometheus.Gauge
}

// NewMetrics creates the cache collectors and registers them with reg
// under namespace.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		hits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "row_cache",
			Name:      "hits_total",
			Help:      "Total number of cache lookups that found an entry",
		}),
		misses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "row_cache",
			Name:      "misses_total",
			Help:      "Total number of cache lookups that found nothing",
		}),
		evictions: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "row_cache",
			Name:      "evictions_total",
			Help:      "Total number of entries evicted to make room",
		}),
		entries: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "row_cache",
			Name:      "entries",
			Help:      "Number of entries currently cached",
		}),
	}
}

func (m *Metrics) lookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.hits.Inc()
	} else {
		m.misses.Inc()
	}
}

func (m *Metrics) evicted() {
	if m != nil {
		m.evictions.Inc()
	}
}

func (m *Metrics) added(n int) {
	if m != nil && n != 0 {
		m.entries.Add(float64(n))
	}
}
