package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEvaluation(t *testing.T) {
	before := testutil.ToFloat64(evaluationsTotal.WithLabelValues("complete"))
	RecordEvaluation("complete")
	assert.Equal(t, before+1, testutil.ToFloat64(evaluationsTotal.WithLabelValues("complete")))
}

func TestObserveExternalCall(t *testing.T) {
	ObserveExternalCall("transcription", time.Now(), nil)
	ObserveExternalCall("transcription", time.Now(), errors.New("boom"))
	assert.Equal(t, 2, testutil.CollectAndCount(externalCallDuration))
}

func TestHandlerExposesPipelineMetrics(t *testing.T) {
	RecordPartialParse()
	SetQueueDepth(3)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "fluency_pipeline_partial_parses_total"))
	assert.True(t, strings.Contains(body, "fluency_worker_queue_depth 3"))
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/ping/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping/1", nil))

	assert.Equal(t, 1.0, testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/ping/:id", "204")))
}
