package line

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/johnqing-424/LINE-RAG/internal/config"
	"github.com/johnqing-424/LINE-RAG/internal/models"
)

// MaxTextLength 是单条文本消息的字符上限
const MaxTextLength = 5000

var (
	ErrMissingCredentials = errors.New("line channel access token is not configured")
	ErrEmptyReplyToken    = errors.New("reply token is empty")
)

// APIError 是回复接口返回的非 2xx 响应
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("line API %d: %s", e.StatusCode, e.Message)
}

// Client 调用 LINE Messaging API 回复消息，不做重试
type Client struct {
	apiBase string
	http    *http.Client
}

// NewClient 构造回复客户端。ts 为 nil 时 Reply 返回 ErrMissingCredentials。
func NewClient(cfg config.LineConfig, ts oauth2.TokenSource) *Client {
	c := &Client{apiBase: strings.TrimRight(cfg.APIBase, "/")}
	if ts != nil {
		c.http = &http.Client{
			Timeout:   cfg.Timeout(),
			Transport: &oauth2.Transport{Source: ts, Base: http.DefaultTransport},
		}
	}
	return c
}

// Reply 用 replyToken 回复一条文本消息，超长文本按字符截断
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	if replyToken == "" {
		return ErrEmptyReplyToken
	}
	if c.http == nil {
		return ErrMissingCredentials
	}

	body, err := json.Marshal(models.NewTextReply(replyToken, Truncate(text, MaxTextLength)))
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/v2/bot/message/reply", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var er models.ErrorResponse
		if json.Unmarshal(respBody, &er) == nil && er.Message != "" {
			apiErr.Message = er.Message
		}
		return apiErr
	}
	return nil
}

// Truncate 按 rune 截断文本
func Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	n := 0
	for i := range text {
		if n == limit {
			return text[:i]
		}
		n++
	}
	return text
}
