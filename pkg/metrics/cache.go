package metrics

import "github.com/prometheus/client_golang/prometheus"

// Cache layers reported by CacheMetrics.
const (
	LayerMemory     = "memory"
	LayerPersistent = "persistent"
)

// CacheMetrics counts cache lookups per layer.
type CacheMetrics struct {
	hits      *prometheus.CounterVec
	misses    *prometheus.CounterVec
	evictions *prometheus.CounterVec
	errors    *prometheus.CounterVec
}

// NewCacheMetrics registers the cache metrics on the provided registerer.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	if reg == nil {
		return &CacheMetrics{}
	}
	hits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gemline_cache_hits_total",
		Help: "Cache hits by layer.",
	}, []string{"layer"})
	misses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gemline_cache_misses_total",
		Help: "Cache misses by layer.",
	}, []string{"layer"})
	evictions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gemline_cache_evictions_total",
		Help: "Expired or unreadable entries evicted on access, by layer.",
	}, []string{"layer"})
	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gemline_cache_storage_errors_total",
		Help: "Persistent storage failures swallowed by the cache.",
	}, []string{"op"})
	reg.MustRegister(hits, misses, evictions, errs)
	return &CacheMetrics{hits: hits, misses: misses, evictions: evictions, errors: errs}
}

func (c *CacheMetrics) IncHit(layer string) {
	if c == nil || c.hits == nil {
		return
	}
	c.hits.WithLabelValues(normalizeLabel(layer)).Inc()
}

func (c *CacheMetrics) IncMiss(layer string) {
	if c == nil || c.misses == nil {
		return
	}
	c.misses.WithLabelValues(normalizeLabel(layer)).Inc()
}

func (c *CacheMetrics) IncEviction(layer string) {
	if c == nil || c.evictions == nil {
		return
	}
	c.evictions.WithLabelValues(normalizeLabel(layer)).Inc()
}

func (c *CacheMetrics) IncStorageError(op string) {
	if c == nil || c.errors == nil {
		return
	}
	c.errors.WithLabelValues(normalizeLabel(op)).Inc()
}
