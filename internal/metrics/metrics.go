package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "linebot"

// 指标标签取值
const (
	SourceKeyword  = "keyword"
	SourceRag      = "rag"
	SourceRagError = "rag_error"
	SourceDefault  = "default"

	FailureSignature = "signature"
	FailurePayload   = "payload_malformed"
	FailureReply     = "reply"
	FailureDedup     = "dedup"
	FailurePanic     = "unexpected"
)

// Metrics 汇总 webhook 处理链路的指标。nil 接收者上的方法都是空操作。
type Metrics struct {
	Webhooks        *prometheus.CounterVec
	Events          *prometheus.CounterVec
	Replies         *prometheus.CounterVec
	Answers         *prometheus.CounterVec
	Failures        *prometheus.CounterVec
	RagDuration     prometheus.Histogram
	RequestDuration *prometheus.HistogramVec
}

// NewRegistry 创建带 Go 运行时与进程指标的 registry
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler 返回暴露 registry 的 HTTP handler
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// New 创建并注册指标
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "requests_total",
			Help:      "Webhook deliveries by outcome.",
		}, []string{"status"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Webhook events by handling result.",
		}, []string{"result"}),
		Replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reply",
			Name:      "calls_total",
			Help:      "Outbound reply calls by result.",
		}, []string{"result"}),
		Answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "answer",
			Name:      "resolved_total",
			Help:      "Resolved answers by source.",
		}, []string{"source"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "swallowed_failures_total",
			Help:      "Failures handled without failing the webhook delivery, plus signature rejections.",
		}, []string{"kind"}),
		RagDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "request_duration_seconds",
			Help:      "Duration of RAG delegation calls in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status_code"}),
	}

	reg.MustRegister(m.Webhooks, m.Events, m.Replies, m.Answers, m.Failures, m.RagDuration, m.RequestDuration)
	return m
}

func (m *Metrics) Webhook(status string) {
	if m == nil {
		return
	}
	m.Webhooks.WithLabelValues(status).Inc()
}

func (m *Metrics) Event(result string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(result).Inc()
}

func (m *Metrics) Reply(result string) {
	if m == nil {
		return
	}
	m.Replies.WithLabelValues(result).Inc()
}

func (m *Metrics) Answer(source string) {
	if m == nil {
		return
	}
	m.Answers.WithLabelValues(source).Inc()
}

func (m *Metrics) Failure(kind string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObserveRag(d time.Duration) {
	if m == nil {
		return
	}
	m.RagDuration.Observe(d.Seconds())
}

// Middleware 记录 HTTP 请求耗时，跳过 /metrics
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil || c.FullPath() == "/metrics" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.RequestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}
