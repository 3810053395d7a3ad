package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/johnqing-424/LINE-RAG/internal/config"
)

var (
	ErrMissingAPIKey = errors.New("rag api key is not configured")
	ErrNotConfigured = errors.New("rag backend is not configured")
	ErrEmptyAnswer   = errors.New("rag backend returned an empty answer")
)

// Backend 是检索增强问答后端，单次提问单次回答
type Backend interface {
	Name() string
	Ask(ctx context.Context, question string) (string, error)
}

// StatusError 是后端返回的非 2xx 响应
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// Retryable 报告该状态码是否值得重试（5xx 与 429）
func (e *StatusError) Retryable() bool {
	return e.StatusCode >= http.StatusInternalServerError || e.StatusCode == http.StatusTooManyRequests
}

// New 按 rag.provider 构造后端；未配置时返回 nil，由调用方使用默认回复
func New(cfg config.RagConfig) Backend {
	var b Backend
	switch cfg.Provider {
	case config.ProviderPinecone:
		b = NewPinecone(cfg.Pinecone, cfg)
	case config.ProviderRagFlow:
		b = NewRagFlow(cfg.RagFlow, cfg)
	default:
		return nil
	}

	if cfg.Breaker.FailureThreshold > 0 {
		open := time.Duration(cfg.Breaker.OpenSeconds) * time.Second
		b = WithBreaker(b, cfg.Breaker.FailureThreshold, open)
	}
	return b
}

// jsonClient 发送带重试的 JSON POST 请求
type jsonClient struct {
	client   *http.Client
	maxTries uint
	interval time.Duration
}

func newJSONClient(cfg config.RagConfig) jsonClient {
	return jsonClient{
		client:   &http.Client{Timeout: cfg.Timeout()},
		maxTries: uint(cfg.MaxRetries) + 1,
		interval: cfg.Interval(),
	}
}

// postJSON 在网络错误、5xx 和 429 时按固定间隔重试，其余 4xx 直接返回
func (c jsonClient) postJSON(ctx context.Context, url string, header http.Header, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	op := func() (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		for k, v := range header {
			req.Header[k] = v
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return struct{}{}, backoff.Permanent(err)
			}
			return struct{}{}, err
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return struct{}{}, fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(respBody)}
			if statusErr.Retryable() {
				return struct{}{}, statusErr
			}
			return struct{}{}, backoff.Permanent(statusErr)
		}

		if err := json.Unmarshal(respBody, out); err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return struct{}{}, nil
	}

	_, err = backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(c.interval)),
		backoff.WithMaxTries(c.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			slog.WarnContext(ctx, "RAG request failed, will retry", "url", url, "error", err, "backoff", next)
		}),
	)
	return err
}
