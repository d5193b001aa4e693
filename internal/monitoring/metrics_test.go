package monitoring

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusClass(t *testing.T) {
	tests := []struct {
		code     int
		expected string
	}{
		{200, "2xx"},
		{201, "2xx"},
		{301, "3xx"},
		{404, "4xx"},
		{429, "4xx"},
		{500, "5xx"},
		{502, "5xx"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, statusClass(tt.code), "status %d", tt.code)
	}
}

func TestMetricsCountersAndStats(t *testing.T) {
	m := NewMetrics()

	m.IncrementRequest()
	m.IncrementRequest()
	m.IncrementError()
	m.IncrementCacheHit()
	m.IncrementCacheHit()
	m.IncrementCacheMiss()
	m.IncrementRefresh()
	m.IncrementTraining()
	m.RecordRequestByStatus(200)
	m.RecordRequestByStatus(200)
	m.RecordRequestByStatus(500)

	stats := m.GetStats()
	assert.Equal(t, int64(2), stats["total_requests"])
	assert.Equal(t, int64(1), stats["error_count"])
	assert.InDelta(t, 50.0, stats["error_rate_percent"], 1e-9)
	assert.InDelta(t, 100.0*2/3, stats["cache_hit_rate_percent"], 1e-9)
	assert.Equal(t, int64(1), stats["model_refreshes"])
	assert.Equal(t, int64(1), stats["model_trainings"])

	distribution := m.GetStatusCodeDistribution()
	assert.Equal(t, int64(2), distribution[200])
	assert.Equal(t, int64(1), distribution[500])
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()

	m.IncrementRequest()
	m.IncrementError()
	m.RecordRequestByStatus(500)
	m.IncrementRateLimitEndpoint("lab")

	m.Reset()

	stats := m.GetStats()
	assert.Equal(t, int64(0), stats["total_requests"])
	assert.Equal(t, int64(0), stats["error_count"])
	assert.Empty(t, m.GetStatusCodeDistribution())

	rateStats := m.GetRateLimitStats()
	assert.Empty(t, rateStats["endpoint_blocks"])
}

func TestMetricsHandlerExposesPrometheusText(t *testing.T) {
	m := NewMetrics()
	m.IncrementError()
	m.RecordResponseTime(50 * time.Millisecond)
	m.SetModelGauges(120, 2*time.Hour)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(w, req)

	require.Equal(t, 200, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "vitalis_http_errors_total 1"))
	assert.True(t, strings.Contains(body, "vitalis_lab_dataset_size 120"))
	assert.True(t, strings.Contains(body, "vitalis_lab_model_age_hours 2"))
}
