package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.ObserveSave("msgpack", 1024)
	m.ObserveSave("msgpack", 2048)
	m.IncLoad("json")
	m.IncLoadFailure("unknown_type")
	m.IncDelete()
	m.IncConversion("yaml")
	m.AddPruned(3)
	m.ObserveDuration("save", time.Now())

	assert.Equal(t, 2.0, testutil.ToFloat64(m.saves.WithLabelValues("msgpack")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loads.WithLabelValues("json")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loadFailures.WithLabelValues("unknown_type")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deletes))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.conversions.WithLabelValues("yaml")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.prunedNodes))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.IncLoad("msgpack")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `portgraph_model_loads_total{codec="msgpack"} 1`)
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
