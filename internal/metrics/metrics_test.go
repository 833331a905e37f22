package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveSyncPass(time.Millisecond, 1, 1)
	m.IncSyncFailure()
	m.ObserveGeocode("ok")
	m.IncGeocodeCacheHit("memory")
	m.GeocodeInflight(1)
	m.ObserveCapture("ok", time.Second)
	m.IncLayerSkipped("routes")
	assert.Nil(t, m.Registry())
}

func TestCounters(t *testing.T) {
	m := New()
	m.ObserveSyncPass(2*time.Millisecond, 3, 2)
	m.ObserveGeocode("timeout")
	m.ObserveGeocode("timeout")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.syncPasses))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.markers))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.geocodeRequests.WithLabelValues("timeout")))
}

func TestHandlerServesRegistry(t *testing.T) {
	m := New()
	m.IncLayerSkipped("markers")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `warroom_capture_layers_skipped_total{layer="markers"} 1`))
}
