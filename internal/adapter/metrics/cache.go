package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	resultHit  = "hit"
	resultMiss = "miss"
)

// CacheMetrics tracks lookups against the settings and markers caches.
type CacheMetrics struct {
	Lookups       *prometheus.CounterVec
	Invalidations prometheus.Counter
}

func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Cache lookups by cache, layer and result (hit or miss).",
		}, []string{"cache", "layer", "result"}),
		Invalidations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "local_invalidations_total",
			Help:      "In-memory settings entries dropped after a write or a pub/sub notice.",
		}),
	}

	reg.MustRegister(m.Lookups, m.Invalidations)
	return m
}

func (m *CacheMetrics) Hit(cache, layer string) {
	m.Lookups.WithLabelValues(cache, layer, resultHit).Inc()
}

func (m *CacheMetrics) Miss(cache, layer string) {
	m.Lookups.WithLabelValues(cache, layer, resultMiss).Inc()
}

func (m *CacheMetrics) Invalidated() { m.Invalidations.Inc() }
