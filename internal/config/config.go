package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
	"gopkg.in/yaml.v3"

	"github.com/johnqing-424/LINE-RAG/internal/keyword"
)

const (
	ProviderNone     = "none"
	ProviderPinecone = "pinecone"
	ProviderRagFlow  = "ragflow"
)

// Config 是配置的根结构体
type Config struct {
	Line         LineConfig     `yaml:"line"`
	Rag          RagConfig      `yaml:"rag"`
	Server       ServerConfig   `yaml:"server"`
	Redis        RedisConfig    `yaml:"redis"`
	Log          LogConfig      `yaml:"log"`
	DefaultReply string         `yaml:"default_reply"`
	Keywords     []keyword.Rule `yaml:"keywords"`
}

// LineConfig 包含 LINE Messaging API 相关配置
type LineConfig struct {
	ChannelID          string `yaml:"channel_id"`
	ChannelSecret      string `yaml:"channel_secret"`
	ChannelAccessToken string `yaml:"channel_access_token"`
	APIBase            string `yaml:"api_base"`
	SignatureHeader    string `yaml:"signature_header"`
	RequestTimeout     int    `yaml:"request_timeout"`
}

// RagConfig 包含 RAG 后端相关配置。Provider 为空或 none 时使用默认回复。
type RagConfig struct {
	Provider       string         `yaml:"provider"`
	Pinecone       PineconeConfig `yaml:"pinecone"`
	RagFlow        RagFlowConfig  `yaml:"ragflow"`
	MaxRetries     int            `yaml:"max_retries"`
	RetryInterval  int            `yaml:"retry_interval"`
	RequestTimeout int            `yaml:"request_timeout"`
	Breaker        BreakerConfig  `yaml:"breaker"`
}

// PineconeConfig 包含 Pinecone Assistant 配置
type PineconeConfig struct {
	APIKey     string `yaml:"api_key"`
	Assistant  string `yaml:"assistant"`
	Host       string `yaml:"host"`
	APIVersion string `yaml:"api_version"`
}

// RagFlowConfig 包含RAGFlow服务相关配置
type RagFlowConfig struct {
	BaseURL string `yaml:"base_url"`
	ApiKey  string `yaml:"api_key"`
	ChatID  string `yaml:"chat_id"`
}

// BreakerConfig 控制 RAG 调用的熔断。FailureThreshold 为 0 时关闭熔断。
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold"`
	OpenSeconds      int `yaml:"open_seconds"`
}

// ServerConfig 包含服务器相关配置
type ServerConfig struct {
	Port         int    `yaml:"port"`
	WebhookPath  string `yaml:"webhook_path"`
	MaxBodyBytes int64  `yaml:"max_body_bytes"`
}

// RedisConfig 配置重投去重。URL 为空时不去重。
type RedisConfig struct {
	URL      string `yaml:"url"`
	DedupTTL int    `yaml:"dedup_ttl"`
}

// LogConfig 配置日志级别与格式
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// envOverrides 是可由环境变量覆盖的配置项，未设置的变量保持为空
type envOverrides struct {
	ChannelID          string `env:"LINE_CHANNEL_ID"`
	ChannelSecret      string `env:"LINE_CHANNEL_SECRET"`
	ChannelAccessToken string `env:"LINE_CHANNEL_ACCESS_TOKEN"`
	LineAPIBase        string `env:"LINE_API_BASE"`

	RagProvider       string `env:"RAG_PROVIDER"`
	PineconeAPIKey    string `env:"PINECONE_API_KEY"`
	PineconeAssistant string `env:"PINECONE_ASSISTANT"`
	PineconeHost      string `env:"PINECONE_HOST"`
	RagFlowBaseURL    string `env:"RAGFLOW_BASE_URL"`
	RagFlowAPIKey     string `env:"RAGFLOW_API_KEY"`
	RagFlowChatID     string `env:"RAGFLOW_CHAT_ID"`

	Port         string `env:"PORT"`
	WebhookPath  string `env:"WEBHOOK_PATH"`
	RedisURL     string `env:"REDIS_URL"`
	LogLevel     string `env:"LOG_LEVEL"`
	LogFormat    string `env:"LOG_FORMAT"`
	DefaultReply string `env:"DEFAULT_REPLY"`
}

// Defaults 返回默认配置
func Defaults() *Config {
	return &Config{
		Line: LineConfig{
			APIBase:         "https://api.line.me",
			SignatureHeader: "X-Line-Signature",
			RequestTimeout:  10,
		},
		Rag: RagConfig{
			Pinecone: PineconeConfig{
				Assistant:  "autoreply",
				Host:       "https://prod-1-data.ke.pinecone.io",
				APIVersion: "2025-04",
			},
			MaxRetries:     2,
			RetryInterval:  1,
			RequestTimeout: 30,
			Breaker: BreakerConfig{
				FailureThreshold: 5,
				OpenSeconds:      30,
			},
		},
		Server: ServerConfig{
			Port:         5000,
			WebhookPath:  "/webhook",
			MaxBodyBytes: 1 << 20,
		},
		Redis: RedisConfig{
			DedupTTL: 86400,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		DefaultReply: "感謝您的訊息！客服人員將盡快回覆您，如需協助請輸入「幫助」。",
		Keywords:     keyword.DefaultRules(),
	}
}

// Load 依次应用默认值、配置文件和环境变量。
// path 为空时按 config.yml、../config.yml、$HOME/config.yml 顺序查找，都不存在时只用默认值。
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, src, err := readConfigFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", src, err)
		}
		slog.Info("Loaded config file", "path", src)
	case path != "":
		return nil, err
	default:
		slog.Info("No config file found, using defaults")
	}

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}

	if len(cfg.Keywords) == 0 {
		cfg.Keywords = keyword.DefaultRules()
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func readConfigFile(path string) ([]byte, string, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, path, fmt.Errorf("read config %s: %w", path, err)
		}
		return data, path, nil
	}

	configPaths := []string{
		"config.yml",
		"../config.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		configPaths = append(configPaths, filepath.Join(home, "config.yml"))
	}

	for _, p := range configPaths {
		data, err := os.ReadFile(p)
		if err == nil {
			return data, p, nil
		}
	}
	return nil, "", errors.New("no config file found")
}

func applyEnv(cfg *Config) error {
	var o envOverrides
	if err := env.Load(&o, nil); err != nil {
		return fmt.Errorf("load environment variables: %w", err)
	}

	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&cfg.Line.ChannelID, o.ChannelID)
	set(&cfg.Line.ChannelSecret, o.ChannelSecret)
	set(&cfg.Line.ChannelAccessToken, o.ChannelAccessToken)
	set(&cfg.Line.APIBase, o.LineAPIBase)
	set(&cfg.Rag.Provider, o.RagProvider)
	set(&cfg.Rag.Pinecone.APIKey, o.PineconeAPIKey)
	set(&cfg.Rag.Pinecone.Assistant, o.PineconeAssistant)
	set(&cfg.Rag.Pinecone.Host, o.PineconeHost)
	set(&cfg.Rag.RagFlow.BaseURL, o.RagFlowBaseURL)
	set(&cfg.Rag.RagFlow.ApiKey, o.RagFlowAPIKey)
	set(&cfg.Rag.RagFlow.ChatID, o.RagFlowChatID)
	set(&cfg.Server.WebhookPath, o.WebhookPath)
	set(&cfg.Redis.URL, o.RedisURL)
	set(&cfg.Log.Level, o.LogLevel)
	set(&cfg.Log.Format, o.LogFormat)
	set(&cfg.DefaultReply, o.DefaultReply)

	if o.Port != "" {
		port, err := strconv.Atoi(o.Port)
		if err != nil {
			return fmt.Errorf("PORT must be a number: %w", err)
		}
		cfg.Server.Port = port
	}

	// 只设置了 API key 时沿用原有行为：默认走 Pinecone
	if cfg.Rag.Provider == "" && cfg.Rag.Pinecone.APIKey != "" {
		cfg.Rag.Provider = ProviderPinecone
	}
	return nil
}

// Validate 校验配置取值范围
func Validate(cfg *Config) error {
	switch cfg.Rag.Provider {
	case "", ProviderNone, ProviderPinecone, ProviderRagFlow:
	default:
		return fmt.Errorf("rag.provider %q is not supported", cfg.Rag.Provider)
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", cfg.Server.Port)
	}
	if cfg.Server.WebhookPath == "" || cfg.Server.WebhookPath[0] != '/' {
		return fmt.Errorf("server.webhook_path %q must start with /", cfg.Server.WebhookPath)
	}
	if cfg.Server.WebhookPath == "/" || cfg.Server.WebhookPath == "/metrics" {
		return fmt.Errorf("server.webhook_path %q collides with a built-in route", cfg.Server.WebhookPath)
	}
	if cfg.Rag.MaxRetries < 0 {
		return errors.New("rag.max_retries must not be negative")
	}
	for i, r := range cfg.Keywords {
		if r.Keyword == "" {
			return fmt.Errorf("keywords[%d]: %w", i, keyword.ErrEmptyKeyword)
		}
	}
	return nil
}

// Addr 返回监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.Port)
}

// Timeout 返回 LINE API 请求超时
func (l LineConfig) Timeout() time.Duration {
	return seconds(l.RequestTimeout, 10*time.Second)
}

// Timeout 返回单次 RAG 请求超时
func (r RagConfig) Timeout() time.Duration {
	return seconds(r.RequestTimeout, 30*time.Second)
}

// Interval 返回 RAG 重试间隔
func (r RagConfig) Interval() time.Duration {
	return seconds(r.RetryInterval, time.Second)
}

// TTL 返回去重记录保留时间
func (r RedisConfig) TTL() time.Duration {
	return seconds(r.DedupTTL, 24*time.Hour)
}

func seconds(n int, fallback time.Duration) time.Duration {
	if n <= 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
