package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Webhook("acknowledged")
	m.Event("handled")
	m.Event("handled")
	m.Reply("sent")
	m.Answer(SourceKeyword)
	m.Failure(FailurePayload)
	m.ObserveRag(150 * time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Webhooks.WithLabelValues("acknowledged")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Events.WithLabelValues("handled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Replies.WithLabelValues("sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Answers.WithLabelValues(SourceKeyword)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues(FailurePayload)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RagDuration))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.Webhook("x")
		m.Event("x")
		m.Reply("x")
		m.Answer("x")
		m.Failure("x")
		m.ObserveRag(time.Second)
	})
}

func TestMiddleware_RecordsRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := NewRegistry()
	m := New(reg)

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/metrics", gin.WrapH(Handler(reg)))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "linebot_http_request_duration_seconds")
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration), "/metrics is not recorded")
}
