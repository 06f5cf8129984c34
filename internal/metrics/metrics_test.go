package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveRunAccumulates(t *testing.T) {
	m := New()
	now := time.Date(2023, 7, 15, 3, 0, 0, 0, time.UTC)

	m.ObserveRun("success", 3, 2, 1, 1, now)
	m.ObserveRun("failure", 5, 4, 2, 0, now.Add(time.Hour))

	require.Equal(t, 8.0, testutil.ToFloat64(m.listed))
	require.Equal(t, 6.0, testutil.ToFloat64(m.candidates))
	require.Equal(t, 3.0, testutil.ToFloat64(m.expired))
	require.Equal(t, 1.0, testutil.ToFloat64(m.deleted))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("failure")))
	require.Equal(t, float64(now.Add(time.Hour).Unix()), testutil.ToFloat64(m.lastRun))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRun("success", 1, 1, 1, 1, time.Now())
}

func TestHandlerExposesCounters(t *testing.T) {
	m := New()
	m.ObserveRun("success", 1, 1, 1, 1, time.Now())

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "s3cleanup_objects_deleted_total 1")
	require.Contains(t, string(body), `s3cleanup_runs_total{status="success"} 1`)
}
