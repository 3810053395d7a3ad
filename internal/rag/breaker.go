package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

type breakerBackend struct {
	next Backend
	cb   *gobreaker.CircuitBreaker
}

// WithBreaker 在连续失败 threshold 次后熔断 openFor 时长，熔断期间直接返回错误
func WithBreaker(next Backend, threshold int, openFor time.Duration) Backend {
	settings := gobreaker.Settings{
		Name:    next.Name(),
		Timeout: openFor,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		IsSuccessful: func(err error) bool {
			// 调用方取消不计入失败
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("RAG circuit breaker state changed", "backend", name, "from", from.String(), "to", to.String())
		},
	}
	return &breakerBackend{next: next, cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *breakerBackend) Name() string { return b.next.Name() }

func (b *breakerBackend) Ask(ctx context.Context, question string) (string, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.next.Ask(ctx, question)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return "", fmt.Errorf("%s unavailable: %w", b.next.Name(), err)
		}
		return "", err
	}
	return out.(string), nil
}

// State 返回熔断器当前状态
func (b *breakerBackend) State() gobreaker.State {
	return b.cb.State()
}
