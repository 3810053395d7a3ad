package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnqing-424/LINE-RAG/internal/keyword"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	for _, name := range []string{
		"LINE_CHANNEL_ID", "LINE_CHANNEL_SECRET", "LINE_CHANNEL_ACCESS_TOKEN", "LINE_API_BASE",
		"RAG_PROVIDER", "PINECONE_API_KEY", "PINECONE_ASSISTANT", "PINECONE_HOST",
		"RAGFLOW_BASE_URL", "RAGFLOW_API_KEY", "RAGFLOW_CHAT_ID",
		"PORT", "WEBHOOK_PATH", "REDIS_URL", "LOG_LEVEL", "LOG_FORMAT", "DEFAULT_REPLY",
	} {
		t.Setenv(name, "")
	}
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, Validate(cfg))
	assert.Equal(t, "/webhook", cfg.Server.WebhookPath)
	assert.Equal(t, "X-Line-Signature", cfg.Line.SignatureHeader)
	assert.Equal(t, "autoreply", cfg.Rag.Pinecone.Assistant)
	assert.Equal(t, keyword.DefaultRules(), cfg.Keywords)
	assert.Empty(t, cfg.Rag.Provider)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
line:
  channel_secret: file-secret
rag:
  provider: ragflow
  ragflow:
    base_url: http://ragflow.local
    chat_id: chat-1
server:
  port: 8080
keywords:
  - keyword: 退款
    response: 退款請洽客服
  - keyword: 退
    response: generic
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file-secret", cfg.Line.ChannelSecret)
	assert.Equal(t, "https://api.line.me", cfg.Line.APIBase, "unset fields keep defaults")
	assert.Equal(t, ProviderRagFlow, cfg.Rag.Provider)
	assert.Equal(t, "http://ragflow.local", cfg.Rag.RagFlow.BaseURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	require.Len(t, cfg.Keywords, 2)
	assert.Equal(t, "退款", cfg.Keywords[0].Keyword)
	assert.Equal(t, "退", cfg.Keywords[1].Keyword)
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	path := writeConfig(t, `
line:
  channel_secret: file-secret
server:
  port: 8080
`)
	t.Setenv("LINE_CHANNEL_SECRET", "env-secret")
	t.Setenv("PORT", "9000")
	t.Setenv("PINECONE_API_KEY", "pc-key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.Line.ChannelSecret)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "pc-key", cfg.Rag.Pinecone.APIKey)
	assert.Equal(t, ProviderPinecone, cfg.Rag.Provider, "api key alone selects pinecone")
}

func TestLoad_InvalidPortEnv(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8080\n")
	t.Setenv("PORT", "not-a-port")

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)
}

func TestLoad_EmptyKeywordsFallBackToDefaults(t *testing.T) {
	path := writeConfig(t, "keywords: []\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, keyword.DefaultRules(), cfg.Keywords)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.Rag.Provider = "openai" }},
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"relative webhook path", func(c *Config) { c.Server.WebhookPath = "webhook" }},
		{"webhook on root", func(c *Config) { c.Server.WebhookPath = "/" }},
		{"negative retries", func(c *Config) { c.Rag.MaxRetries = -1 }},
		{"empty keyword", func(c *Config) { c.Keywords = []keyword.Rule{{Response: "x"}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			assert.Error(t, Validate(cfg))
		})
	}
}

func TestDurations(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, 30*time.Second, cfg.Rag.Timeout())
	assert.Equal(t, time.Second, cfg.Rag.Interval())
	assert.Equal(t, 24*time.Hour, cfg.Redis.TTL())

	cfg.Line.RequestTimeout = 0
	assert.Equal(t, 10*time.Second, cfg.Line.Timeout())
	assert.Equal(t, ":5000", cfg.Server.Addr())
}
