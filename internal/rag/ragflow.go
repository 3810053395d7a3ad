package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/johnqing-424/LINE-RAG/internal/config"
)

type RagFlowRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"session_id,omitempty"`
	Stream    bool   `json:"stream"`
}

// RagFlowResponse 的 data 在出错时可能不是对象，成功后再解析
type RagFlowResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type RagFlowAnswer struct {
	Answer    string `json:"answer"`
	Reference struct {
		Chunks []struct {
			DocumentName string `json:"document_name"`
		} `json:"chunks"`
	} `json:"reference"`
	SessionID string `json:"session_id"`
}

// RagFlow 调用 RAGFlow 对话接口获取答案
type RagFlow struct {
	baseURL string
	apiKey  string
	chatID  string
	http    jsonClient
}

func NewRagFlow(cfg config.RagFlowConfig, rc config.RagConfig) *RagFlow {
	return &RagFlow{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.ApiKey,
		chatID:  cfg.ChatID,
		http:    newJSONClient(rc),
	}
}

func (r *RagFlow) Name() string { return "RAGFlow" }

// Ask 调用 RAGFlow 获取答案，每次提问使用新会话
func (r *RagFlow) Ask(ctx context.Context, question string) (string, error) {
	if r.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if r.baseURL == "" || r.chatID == "" {
		return "", ErrNotConfigured
	}

	url := fmt.Sprintf("%s/api/v1/chats/%s/completions", r.baseURL, r.chatID)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+r.apiKey)

	var result RagFlowResponse
	if err := r.http.postJSON(ctx, url, header, RagFlowRequest{Question: question}, &result); err != nil {
		return "", fmt.Errorf("ragflow completion: %w", err)
	}

	if result.Code != 0 {
		return "", fmt.Errorf("ragflow returned code %d: %s", result.Code, result.Message)
	}

	var data RagFlowAnswer
	if err := json.Unmarshal(result.Data, &data); err != nil {
		return "", fmt.Errorf("ragflow decode answer: %w", err)
	}

	answer := CleanAnswer(data.Answer)
	if answer == "" {
		return "", ErrEmptyAnswer
	}
	return answer, nil
}
