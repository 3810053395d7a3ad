package answer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/johnqing-424/LINE-RAG/internal/keyword"
	"github.com/johnqing-424/LINE-RAG/internal/metrics"
	"github.com/johnqing-424/LINE-RAG/internal/rag"
)

// Resolver 为一条用户消息决定回复文本：先查关键字表，再交给 RAG 后端，
// 未配置后端时使用默认回复。Resolve 总能返回可回复的文本。
type Resolver struct {
	table        *keyword.Table
	backend      rag.Backend
	defaultReply string
	metrics      *metrics.Metrics
}

// New 构造 Resolver。backend 为 nil 时未命中关键字的消息回复 defaultReply。
func New(table *keyword.Table, backend rag.Backend, defaultReply string, m *metrics.Metrics) *Resolver {
	return &Resolver{
		table:        table,
		backend:      backend,
		defaultReply: defaultReply,
		metrics:      m,
	}
}

func (r *Resolver) Resolve(ctx context.Context, text string) string {
	if reply, ok := r.table.Match(text); ok {
		r.metrics.Answer(metrics.SourceKeyword)
		return reply
	}

	if r.backend == nil {
		r.metrics.Answer(metrics.SourceDefault)
		return r.defaultReply
	}

	start := time.Now()
	answer, err := r.backend.Ask(ctx, text)
	r.metrics.ObserveRag(time.Since(start))
	if err != nil {
		slog.ErrorContext(ctx, "RAG delegation failed", "backend", r.backend.Name(), "error", err)
		r.metrics.Answer(metrics.SourceRagError)
		return fmt.Sprintf("%s RAG Error: %v", r.backend.Name(), err)
	}

	r.metrics.Answer(metrics.SourceRag)
	return answer
}

// HasBackend 报告是否配置了 RAG 后端
func (r *Resolver) HasBackend() bool {
	return r.backend != nil
}
