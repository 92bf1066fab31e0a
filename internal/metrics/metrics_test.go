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

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.CacheLookup("chain", "hit")
	m.CacheLookup("chain", "hit")
	m.CacheLookup("chain", "miss")
	m.FetchAttempt("chain", "RATE_LIMIT")
	m.Row("Success", 120*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("chain", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("chain", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FetchAttempts.WithLabelValues("chain", "RATE_LIMIT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RowStatus.WithLabelValues("Success")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CacheLookup("chain", "hit")
		m.FetchAttempt("chain", "OK")
		m.FetchOutcome("chain", "OK")
		m.Row("Success", time.Second)
		m.GateWait(time.Second)
		m.Run(time.Second)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.Row("Low_Liquidity", time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `optacq_acquisition_rows_total{status="Low_Liquidity"} 1`))
}
