package rag

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/johnqing-424/LINE-RAG/internal/config"
)

type pineconeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type pineconeChatRequest struct {
	Messages []pineconeMessage `json:"messages"`
	Stream   bool              `json:"stream"`
}

type pineconeChatResponse struct {
	ID           string          `json:"id"`
	Message      pineconeMessage `json:"message"`
	FinishReason string          `json:"finish_reason"`
	Model        string          `json:"model"`
}

// Pinecone 调用 Pinecone Assistant 的 chat 接口
type Pinecone struct {
	apiKey     string
	assistant  string
	host       string
	apiVersion string
	http       jsonClient
}

func NewPinecone(cfg config.PineconeConfig, rc config.RagConfig) *Pinecone {
	return &Pinecone{
		apiKey:     cfg.APIKey,
		assistant:  cfg.Assistant,
		host:       strings.TrimRight(cfg.Host, "/"),
		apiVersion: cfg.APIVersion,
		http:       newJSONClient(rc),
	}
}

func (p *Pinecone) Name() string { return "Pinecone" }

func (p *Pinecone) Ask(ctx context.Context, question string) (string, error) {
	if p.apiKey == "" {
		return "", ErrMissingAPIKey
	}
	if p.host == "" || p.assistant == "" {
		return "", ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/assistant/chat/%s", p.host, url.PathEscape(p.assistant))
	header := http.Header{}
	header.Set("Api-Key", p.apiKey)
	if p.apiVersion != "" {
		header.Set("X-Pinecone-API-Version", p.apiVersion)
	}

	req := pineconeChatRequest{
		Messages: []pineconeMessage{{Role: "user", Content: question}},
	}

	var resp pineconeChatResponse
	if err := p.http.postJSON(ctx, endpoint, header, req, &resp); err != nil {
		return "", fmt.Errorf("pinecone assistant chat: %w", err)
	}

	answer := CleanAnswer(resp.Message.Content)
	if answer == "" {
		return "", ErrEmptyAnswer
	}
	return answer, nil
}
