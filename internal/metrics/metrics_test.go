package metrics

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

func TestObservers(t *testing.T) {
	m := New()

	m.ObserveAgentCall("run", "ok", 2*time.Second)
	m.ObserveAgentCall("run", "ok", time.Second)
	m.ObserveSessionCreateAttempt(false)
	m.ObserveSessionCreateAttempt(true)
	m.ObserveSummaryRun("no_articles")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.AgentCalls.WithLabelValues("run", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionCreateAttempt.WithLabelValues("failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SummaryRuns.WithLabelValues("no_articles")))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveSummaryRun("ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `lsm_summary_runs_total{outcome="ok"} 1`)
}
