package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/johnqing-424/LINE-RAG/internal/dedup"
	"github.com/johnqing-424/LINE-RAG/internal/line"
	"github.com/johnqing-424/LINE-RAG/internal/metrics"
	"github.com/johnqing-424/LINE-RAG/internal/models"
)

// Status 是一次 webhook 投递的处理结果
type Status int

const (
	// StatusAcknowledged 表示已确认收到（签名通过后无论单个事件成败）
	StatusAcknowledged Status = iota
	// StatusRejected 表示签名校验失败，未处理任何事件
	StatusRejected
)

func (s Status) String() string {
	switch s {
	case StatusAcknowledged:
		return "acknowledged"
	case StatusRejected:
		return "rejected"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Outcome 汇总一次投递的处理计数
type Outcome struct {
	Status  Status
	Events  int // 请求中的事件总数
	Handled int // 通过过滤并决定了回复的事件数
	Replied int
	Failed  int
	Skipped int // 非文本消息或重投事件
}

// Answerer 为消息文本决定回复，必须总是返回可发送的文本
type Answerer interface {
	Resolve(ctx context.Context, text string) string
}

// Replier 发送一条回复
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// Dispatcher 校验 webhook 签名，并为每条文本消息发送一次回复
type Dispatcher struct {
	secret  []byte
	answers Answerer
	replier Replier
	guard   dedup.Guard
	metrics *metrics.Metrics
}

type Option func(*Dispatcher)

// WithGuard 启用重投去重
func WithGuard(g dedup.Guard) Option {
	return func(d *Dispatcher) { d.guard = g }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// New 构造 Dispatcher。secret 为空时不校验签名。
func New(secret string, answers Answerer, replier Replier, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		secret:  []byte(secret),
		answers: answers,
		replier: replier,
		guard:   dedup.Noop{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandleWebhook 处理一次 webhook 投递。
// 签名失败时返回 StatusRejected 且不解析请求体；签名通过后总是返回
// StatusAcknowledged，解析失败、回复失败和 panic 都只记录日志和指标。
func (d *Dispatcher) HandleWebhook(ctx context.Context, body []byte, signature string) (out Outcome) {
	if !line.VerifySignature(d.secret, body, signature) {
		slog.WarnContext(ctx, "Invalid webhook signature", "body_len", len(body))
		d.metrics.Failure(metrics.FailureSignature)
		d.metrics.Webhook(StatusRejected.String())
		return Outcome{Status: StatusRejected}
	}

	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Webhook dispatch panicked", "panic", r, "stack", string(debug.Stack()))
			d.metrics.Failure(metrics.FailurePanic)
		}
		out.Status = StatusAcknowledged
		d.metrics.Webhook(StatusAcknowledged.String())
	}()

	var payload models.WebhookRequest
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.WarnContext(ctx, "Malformed webhook payload, acknowledging", "error", err)
		d.metrics.Failure(metrics.FailurePayload)
		return out
	}

	out.Events = len(payload.Events)
	for _, event := range payload.Events {
		d.handleEvent(ctx, event, &out)
	}

	slog.InfoContext(ctx, "Webhook dispatched",
		"events", out.Events,
		"handled", out.Handled,
		"replied", out.Replied,
		"failed", out.Failed,
		"skipped", out.Skipped,
	)
	return out
}

func (d *Dispatcher) handleEvent(ctx context.Context, event models.Event, out *Outcome) {
	if !event.IsTextMessage() {
		out.Skipped++
		d.metrics.Event("skipped")
		return
	}

	first, err := d.guard.FirstDelivery(ctx, event.WebhookEventID)
	if err != nil {
		// 去重存储不可用时照常处理
		slog.WarnContext(ctx, "Redelivery check failed, processing event", "event_id", event.WebhookEventID, "error", err)
		d.metrics.Failure(metrics.FailureDedup)
		first = true
	}
	if !first {
		slog.InfoContext(ctx, "Skipping already handled event", "event_id", event.WebhookEventID, "redelivery", event.IsRedelivery())
		out.Skipped++
		d.metrics.Event("duplicate")
		return
	}

	out.Handled++
	d.metrics.Event("handled")

	text := event.Message.Text
	reply := d.answers.Resolve(ctx, text)

	if err := d.replier.Reply(ctx, event.ReplyToken, reply); err != nil {
		slog.ErrorContext(ctx, "Reply failed", "event_id", event.WebhookEventID, "error", err)
		out.Failed++
		d.metrics.Reply("failed")
		d.metrics.Failure(metrics.FailureReply)
		return
	}

	slog.DebugContext(ctx, "Replied to message", "event_id", event.WebhookEventID, "text_len", len(text), "reply_len", len(reply))
	out.Replied++
	d.metrics.Reply("sent")
}
