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

func TestMetrics_Observe(t *testing.T) {
	m := New()

	m.ObserveQuestion("answered")
	m.ObserveQuestion("answered")
	m.ObserveQuestion("no_matches")
	m.ObserveStage(StageRetrieve, 20*time.Millisecond)
	m.ObserveMatches(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.questions.WithLabelValues("answered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.questions.WithLabelValues("no_matches")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.stageDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveQuestion("answered")
		m.ObserveStage(StageGenerate, time.Second)
		m.ObserveMatches(1)
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveQuestion("answered")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `policysage_questions_total{outcome="answered"} 1`)
}
