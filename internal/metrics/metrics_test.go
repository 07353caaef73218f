package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airsial/opshub/internal/records"
)

func TestObserveRequestCounts(t *testing.T) {
	m := New()
	m.ObserveRequest("GET", "/api/v1/records/{collection}", 200, 0.05)
	m.ObserveRequest("GET", "/api/v1/records/{collection}", 200, 0.10)
	m.ObserveRequest("POST", "/api/v1/records/{collection}", 403, 0.01)

	ok := m.httpRequests.WithLabelValues("GET", "/api/v1/records/{collection}", "200")
	assert.Equal(t, 2.0, testutil.ToFloat64(ok))
	denied := m.httpRequests.WithLabelValues("POST", "/api/v1/records/{collection}", "403")
	assert.Equal(t, 1.0, testutil.ToFloat64(denied))
}

func TestRecordGaugesAndImports(t *testing.T) {
	m := New()
	m.SetRecordCounts(map[records.Collection]int{
		records.Maintenance: 4,
		records.Safety:      2,
	})
	assert.Equal(t, 4.0, testutil.ToFloat64(m.recordsTotal.WithLabelValues("maintenance")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.recordsTotal.WithLabelValues("safety")))

	m.ObserveImport("ok", 25)
	m.ObserveImport("rejected", 0)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.importsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.importsTotal.WithLabelValues("rejected")))
	assert.Equal(t, 25.0, testutil.ToFloat64(m.importedRows))
}

func TestHandlerServesScrape(t *testing.T) {
	m := New()
	m.ObserveAnswer("fallback")
	m.SetActiveSessions(3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `opshub_assistant_answers_total{source="fallback"} 1`)
	assert.Contains(t, body, "opshub_active_sessions 3")
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("GET", "/", 200, 0.01)
		m.SetRecordCounts(map[records.Collection]int{records.Flight: 1})
		m.ObserveImport("ok", 10)
		m.ObserveAnswer("llm")
		m.SetActiveSessions(2)
	})
}
