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

func TestRecordIngestion(t *testing.T) {
	before := testutil.ToFloat64(ingestionsTotal.WithLabelValues("pdf", OutcomeSuccess))
	RecordIngestion("pdf", OutcomeSuccess)
	after := testutil.ToFloat64(ingestionsTotal.WithLabelValues("pdf", OutcomeSuccess))
	assert.Equal(t, before+1, after)
}

func TestRecordQuestion(t *testing.T) {
	before := testutil.ToFloat64(questionsTotal.WithLabelValues(OutcomeNoContent))
	RecordQuestion(OutcomeNoContent)
	assert.Equal(t, before+1, testutil.ToFloat64(questionsTotal.WithLabelValues(OutcomeNoContent)))
}

func TestHandler_ExposesCollectors(t *testing.T) {
	ObserveDependency(DependencyEmbedder, time.Now().Add(-time.Second))
	RecordHTTPRequest("/api/chat", "200")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "skimzy_dependency_latency_seconds")
	assert.Contains(t, body, `skimzy_http_requests_total{path="/api/chat",status="200"}`)
}
