package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CacheMetrics содержит метрики cache-aside репозитория каталога.
type CacheMetrics struct {
	// Счётчики обращений к кэшу
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	// Счётчик инвалидаций по причинам (update/delete/add)
	cacheEvictions *prometheus.CounterVec
	// Гистограмма времени чтения через репозиторий
	lookupDuration *prometheus.HistogramVec
	// Счётчик чтений, дошедших до backing store
	storeReads prometheus.Counter
}

// NewCacheMetrics создаёт новый экземпляр метрик кэша.
func NewCacheMetrics() *CacheMetrics {
	return newCacheMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCacheMetricsWithRegisterer(registerer prometheus.Registerer) *CacheMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CacheMetrics{
		cacheHits: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shopcore_product_cache_hits_total",
			Help: "Total number of product reads served from cache",
		}),
		cacheMisses: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shopcore_product_cache_misses_total",
			Help: "Total number of product reads that fell through to the store",
		}),
		cacheEvictions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "shopcore_product_cache_evictions_total",
			Help: "Total number of cache invalidations grouped by write operation",
		}, []string{"operation"}),
		lookupDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "shopcore_product_lookup_duration_seconds",
			Help:    "Duration of repository read operations in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"operation"}),
		storeReads: registerCounter(registerer, prometheus.CounterOpts{
			Name: "shopcore_product_store_reads_total",
			Help: "Total number of reads that reached the backing store",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordCacheHit увеличивает счётчик попаданий в кэш.
func (m *CacheMetrics) RecordCacheHit() {
	m.cacheHits.Inc()
}

// RecordCacheMiss увеличивает счётчик промахов.
func (m *CacheMetrics) RecordCacheMiss() {
	m.cacheMisses.Inc()
}

// RecordEviction фиксирует инвалидацию кэша по операции записи.
func (m *CacheMetrics) RecordEviction(operation string) {
	m.cacheEvictions.WithLabelValues(operation).Inc()
}

// RecordStoreRead увеличивает счётчик чтений backing store.
func (m *CacheMetrics) RecordStoreRead() {
	m.storeReads.Inc()
}

// RecordLookupDuration записывает длительность операции чтения.
func (m *CacheMetrics) RecordLookupDuration(operation string, duration time.Duration) {
	m.lookupDuration.WithLabelValues(operation).Observe(duration.Seconds())
}
