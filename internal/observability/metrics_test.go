package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsHandler(t *testing.T) {
	t.Parallel()

	m := NewMetrics("socialbot")
	m.MessagesProcessed.WithLabelValues("farcaster", "replied").Inc()
	m.CacheHits.Inc()
	m.ObservePublishLatency("farcaster", 120*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `socialbot_messages_processed_total{outcome="replied",platform="farcaster"} 1`)
	assert.Contains(t, string(body), "socialbot_response_cache_hits_total 1")
	assert.Contains(t, string(body), "socialbot_publish_latency_ms_bucket")
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetricsAreIsolated(t *testing.T) {
	t.Parallel()

	a := NewMetrics("x")
	b := NewMetrics("x")
	a.CacheHits.Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.CacheHits))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.CacheHits))
}
