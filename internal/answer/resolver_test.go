package answer

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnqing-424/LINE-RAG/internal/keyword"
	"github.com/johnqing-424/LINE-RAG/internal/metrics"
	"github.com/johnqing-424/LINE-RAG/internal/rag"
)

const defaultReply = "感謝您的訊息，我們會盡快回覆。"

type fakeBackend struct {
	answer    string
	err       error
	questions []string
}

func (f *fakeBackend) Name() string { return "Fake" }

func (f *fakeBackend) Ask(_ context.Context, question string) (string, error) {
	f.questions = append(f.questions, question)
	return f.answer, f.err
}

func newTable(t *testing.T) *keyword.Table {
	t.Helper()
	table, err := keyword.New(keyword.DefaultRules())
	require.NoError(t, err)
	return table
}

func TestResolve_KeywordWinsOverBackend(t *testing.T) {
	backend := &fakeBackend{answer: "from rag"}
	r := New(newTable(t), backend, defaultReply, nil)

	got := r.Resolve(context.Background(), "請問營業時間?")

	want, _ := newTable(t).Match("營業時間")
	assert.Equal(t, want, got)
	assert.Empty(t, backend.questions, "keyword hit must not delegate")
}

func TestResolve_DefaultWithoutBackend(t *testing.T) {
	r := New(newTable(t), nil, defaultReply, nil)

	assert.Equal(t, defaultReply, r.Resolve(context.Background(), "我要退款"))
	assert.False(t, r.HasBackend())
}

func TestResolve_DelegatesUnmatched(t *testing.T) {
	backend := &fakeBackend{answer: "退款需 7 個工作天"}
	r := New(newTable(t), backend, defaultReply, nil)

	assert.Equal(t, "退款需 7 個工作天", r.Resolve(context.Background(), "我要退款"))
	assert.Equal(t, []string{"我要退款"}, backend.questions)
}

func TestResolve_DelegationFailureBecomesText(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"network", errors.New("dial tcp: connection refused"), "Fake RAG Error: dial tcp: connection refused"},
		{"missing key", rag.ErrMissingAPIKey, "Fake RAG Error: rag api key is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(newTable(t), &fakeBackend{err: tt.err}, defaultReply, nil)
			assert.Equal(t, tt.want, r.Resolve(context.Background(), "我要退款"))
		})
	}
}

func TestResolve_RecordsAnswerSource(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	backend := &fakeBackend{answer: "ok"}
	r := New(newTable(t), backend, defaultReply, m)

	r.Resolve(context.Background(), "help")
	r.Resolve(context.Background(), "其他問題")
	backend.err = errors.New("boom")
	r.Resolve(context.Background(), "其他問題")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Answers.WithLabelValues(metrics.SourceKeyword)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Answers.WithLabelValues(metrics.SourceRag)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Answers.WithLabelValues(metrics.SourceRagError)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RagDuration))
}
