package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/johnqing-424/LINE-RAG/internal/config"
	"github.com/johnqing-424/LINE-RAG/internal/dispatch"
	"github.com/johnqing-424/LINE-RAG/internal/logging"
	"github.com/johnqing-424/LINE-RAG/internal/metrics"
)

const (
	LivenessText  = "LINE Bot relay is running!"
	ReadinessText = "Webhook endpoint is ready. Use POST for LINE webhook."

	requestIDHeader = "X-Request-ID"
)

// WebhookHandler 处理一次原始 webhook 投递
type WebhookHandler interface {
	HandleWebhook(ctx context.Context, body []byte, signature string) dispatch.Outcome
}

// Options 是路由依赖
type Options struct {
	Server          config.ServerConfig
	SignatureHeader string
	Webhook         WebhookHandler
	Registry        *prometheus.Registry
	Metrics         *metrics.Metrics
}

// NewRouter 注册健康检查、webhook 和指标路由
func NewRouter(opts Options) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(), opts.Metrics.Middleware())

	// 健康检查
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, LivenessText)
	})

	// webhook 就绪检查（GET 请求）
	r.GET(opts.Server.WebhookPath, func(c *gin.Context) {
		c.String(http.StatusOK, ReadinessText)
	})

	// 接收 LINE 推送（POST 请求）
	r.POST(opts.Server.WebhookPath, webhook(opts))

	if opts.Registry != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler(opts.Registry)))
	}
	return r
}

func webhook(opts Options) gin.HandlerFunc {
	maxBody := opts.Server.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)
		body, err := c.GetRawData()
		if err != nil {
			slog.WarnContext(c.Request.Context(), "Failed to read webhook body", "error", err)
			c.String(http.StatusBadRequest, "Bad Request")
			return
		}

		// 平台断开连接后仍要完成回复
		ctx := context.WithoutCancel(c.Request.Context())
		out := opts.Webhook.HandleWebhook(ctx, body, c.GetHeader(opts.SignatureHeader))
		if out.Status == dispatch.StatusRejected {
			c.String(http.StatusBadRequest, "Bad Request")
			return
		}
		c.String(http.StatusOK, "OK")
	}
}

// requestID 为每个请求设置关联 ID，优先沿用上游传入的 X-Request-ID
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = logging.NewID()
		}
		c.Request = c.Request.WithContext(logging.WithID(c.Request.Context(), id))
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.InfoContext(c.Request.Context(), "HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// Server 包装 http.Server，支持随 context 优雅退出
type Server struct {
	http *http.Server
}

func New(addr string, handler http.Handler) *Server {
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
	}
}

// Run 启动服务，ctx 结束后在 10 秒内优雅关闭
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("HTTP server starting", "addr", s.http.Addr)

	select {
	case <-ctx.Done():
		slog.Info("HTTP server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return err
	}
}
