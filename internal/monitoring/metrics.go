package monitoring

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds application metrics. Counters are mirrored into a
// Prometheus registry for scraping and kept as atomics for the
// /health stats payload.
type Metrics struct {
	RequestCount        int64
	ErrorCount          int64
	CacheHits           int64
	CacheMisses         int64
	ModelRefreshes      int64
	ModelRefreshFails   int64
	ModelTrainings      int64
	AverageResponseTime int64 // in nanoseconds
	StartTime           time.Time

	// Status code tracking
	RequestCountByStatus map[int]int64
	StatusMutex          sync.RWMutex

	// Rate limit metrics
	RateLimitIPBlocks       int64
	RateLimitRedisErrors    int64
	RateLimitFallbackCount  int64
	RateLimitEndpointBlocks map[string]int64
	RateLimitMutex          sync.RWMutex

	registry *prometheus.Registry

	promRequests      *prometheus.CounterVec
	promErrors        prometheus.Counter
	promCacheOps      *prometheus.CounterVec
	promRefreshes     *prometheus.CounterVec
	promTrainings     prometheus.Counter
	promRateLimited   *prometheus.CounterVec
	promLatency       prometheus.Histogram
	promDatasetSize   prometheus.Gauge
	promModelAgeHours prometheus.Gauge
}

// NewMetrics creates a new metrics instance with its own Prometheus
// registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		StartTime:               time.Now(),
		RequestCountByStatus:    make(map[int]int64),
		RateLimitEndpointBlocks: make(map[string]int64),
		registry:                registry,

		promRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitalis",
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by status class.",
		}, []string{"status"}),
		promErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vitalis",
			Name:      "http_errors_total",
			Help:      "HTTP requests that ended in an error response.",
		}),
		promCacheOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitalis",
			Name:      "response_cache_ops_total",
			Help:      "Response cache lookups, by outcome.",
		}, []string{"outcome"}),
		promRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitalis",
			Subsystem: "lab",
			Name:      "model_refreshes_total",
			Help:      "Model cache refresh attempts, by outcome.",
		}, []string{"outcome"}),
		promTrainings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vitalis",
			Subsystem: "lab",
			Name:      "model_trainings_total",
			Help:      "Successful model fits.",
		}),
		promRateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vitalis",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter, by scope.",
		}, []string{"scope"}),
		promLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vitalis",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		promDatasetSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vitalis",
			Subsystem: "lab",
			Name:      "dataset_size",
			Help:      "Check-in rows in the current feature snapshot.",
		}),
		promModelAgeHours: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vitalis",
			Subsystem: "lab",
			Name:      "model_age_hours",
			Help:      "Hours since the model was last trained.",
		}),
	}

	registry.MustRegister(
		m.promRequests,
		m.promErrors,
		m.promCacheOps,
		m.promRefreshes,
		m.promTrainings,
		m.promRateLimited,
		m.promLatency,
		m.promDatasetSize,
		m.promModelAgeHours,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Handler returns the scrape endpoint for this metrics registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncrementRequest increments the request count
func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

// IncrementError increments the error count
func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
	m.promErrors.Inc()
}

// IncrementCacheHit increments cache hit count
func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
	m.promCacheOps.WithLabelValues("hit").Inc()
}

// IncrementCacheMiss increments cache miss count
func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
	m.promCacheOps.WithLabelValues("miss").Inc()
}

// IncrementRefresh records a completed model cache refresh.
func (m *Metrics) IncrementRefresh() {
	atomic.AddInt64(&m.ModelRefreshes, 1)
	m.promRefreshes.WithLabelValues("ok").Inc()
}

// IncrementRefreshFailure records a refresh whose source fetch failed.
func (m *Metrics) IncrementRefreshFailure() {
	atomic.AddInt64(&m.ModelRefreshFails, 1)
	m.promRefreshes.WithLabelValues("fetch_failed").Inc()
}

// IncrementTraining records a successful model fit.
func (m *Metrics) IncrementTraining() {
	atomic.AddInt64(&m.ModelTrainings, 1)
	m.promTrainings.Inc()
}

// SetModelGauges publishes the current snapshot size and model age.
func (m *Metrics) SetModelGauges(datasetSize int, modelAge time.Duration) {
	m.promDatasetSize.Set(float64(datasetSize))
	m.promModelAgeHours.Set(modelAge.Hours())
}

// RecordResponseTime records response time for averaging and the
// latency histogram.
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	current := atomic.LoadInt64(&m.AverageResponseTime)
	newAverage := (current + duration.Nanoseconds()) / 2
	atomic.StoreInt64(&m.AverageResponseTime, newAverage)

	m.promLatency.Observe(duration.Seconds())
}

// RecordRequestByStatus records request count by HTTP status code
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.StatusMutex.Lock()
	m.RequestCountByStatus[statusCode]++
	m.StatusMutex.Unlock()

	m.promRequests.WithLabelValues(statusClass(statusCode)).Inc()
}

func statusClass(statusCode int) string {
	switch {
	case statusCode >= 500:
		return "5xx"
	case statusCode >= 400:
		return "4xx"
	case statusCode >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// GetStatusCodeDistribution returns request count by status code
func (m *Metrics) GetStatusCodeDistribution() map[int]int64 {
	m.StatusMutex.RLock()
	defer m.StatusMutex.RUnlock()

	distribution := make(map[int]int64)
	for code, count := range m.RequestCountByStatus {
		distribution[code] = count
	}
	return distribution
}

// GetStats returns current metrics statistics
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.RequestCount)
	errors := atomic.LoadInt64(&m.ErrorCount)
	cacheHits := atomic.LoadInt64(&m.CacheHits)
	cacheMisses := atomic.LoadInt64(&m.CacheMisses)
	refreshes := atomic.LoadInt64(&m.ModelRefreshes)
	refreshFails := atomic.LoadInt64(&m.ModelRefreshFails)
	trainings := atomic.LoadInt64(&m.ModelTrainings)
	avgResponseTime := atomic.LoadInt64(&m.AverageResponseTime)

	errorRate := float64(0)
	if requests > 0 {
		errorRate = float64(errors) / float64(requests) * 100
	}

	cacheHitRate := float64(0)
	totalCacheRequests := cacheHits + cacheMisses
	if totalCacheRequests > 0 {
		cacheHitRate = float64(cacheHits) / float64(totalCacheRequests) * 100
	}

	uptime := time.Since(m.StartTime)

	return map[string]interface{}{
		"uptime_seconds":           uptime.Seconds(),
		"total_requests":           requests,
		"error_count":              errors,
		"error_rate_percent":       errorRate,
		"cache_hits":               cacheHits,
		"cache_misses":             cacheMisses,
		"cache_hit_rate_percent":   cacheHitRate,
		"model_refreshes":          refreshes,
		"model_refresh_failures":   refreshFails,
		"model_trainings":          trainings,
		"avg_response_time_ms":     float64(avgResponseTime) / 1000000,
		"start_time":               m.StartTime.Format(time.RFC3339),
		"status_code_distribution": m.GetStatusCodeDistribution(),
		"rate_limit":               m.GetRateLimitStats(),
	}
}

// Reset resets all metrics (useful for testing)
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.RequestCount, 0)
	atomic.StoreInt64(&m.ErrorCount, 0)
	atomic.StoreInt64(&m.CacheHits, 0)
	atomic.StoreInt64(&m.CacheMisses, 0)
	atomic.StoreInt64(&m.ModelRefreshes, 0)
	atomic.StoreInt64(&m.ModelRefreshFails, 0)
	atomic.StoreInt64(&m.ModelTrainings, 0)
	atomic.StoreInt64(&m.AverageResponseTime, 0)
	atomic.StoreInt64(&m.RateLimitIPBlocks, 0)
	atomic.StoreInt64(&m.RateLimitRedisErrors, 0)
	atomic.StoreInt64(&m.RateLimitFallbackCount, 0)

	m.StatusMutex.Lock()
	m.RequestCountByStatus = make(map[int]int64)
	m.StatusMutex.Unlock()

	m.RateLimitMutex.Lock()
	m.RateLimitEndpointBlocks = make(map[string]int64)
	m.RateLimitMutex.Unlock()

	m.StartTime = time.Now()
}

// IncrementRateLimitIPBlock increments IP-based rate limit blocks
func (m *Metrics) IncrementRateLimitIPBlock() {
	atomic.AddInt64(&m.RateLimitIPBlocks, 1)
	m.promRateLimited.WithLabelValues("ip").Inc()
}

// IncrementRateLimitRedisError increments Redis error count for rate limiting
func (m *Metrics) IncrementRateLimitRedisError() {
	atomic.AddInt64(&m.RateLimitRedisErrors, 1)
}

// IncrementRateLimitFallback increments fallback rate limiter usage count
func (m *Metrics) IncrementRateLimitFallback() {
	atomic.AddInt64(&m.RateLimitFallbackCount, 1)
}

// IncrementRateLimitEndpoint increments rate limit blocks for a specific endpoint
func (m *Metrics) IncrementRateLimitEndpoint(endpoint string) {
	m.RateLimitMutex.Lock()
	m.RateLimitEndpointBlocks[endpoint]++
	m.RateLimitMutex.Unlock()

	m.promRateLimited.WithLabelValues("endpoint").Inc()
}

// GetRateLimitStats returns rate limiting statistics
func (m *Metrics) GetRateLimitStats() map[string]interface{} {
	m.RateLimitMutex.RLock()
	endpointBlocksCopy := make(map[string]int64, len(m.RateLimitEndpointBlocks))
	for k, v := range m.RateLimitEndpointBlocks {
		endpointBlocksCopy[k] = v
	}
	m.RateLimitMutex.RUnlock()

	return map[string]interface{}{
		"ip_blocks":       atomic.LoadInt64(&m.RateLimitIPBlocks),
		"redis_errors":    atomic.LoadInt64(&m.RateLimitRedisErrors),
		"fallback_count":  atomic.LoadInt64(&m.RateLimitFallbackCount),
		"endpoint_blocks": endpointBlocksCopy,
	}
}
