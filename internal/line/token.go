package line

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/johnqing-424/LINE-RAG/internal/config"
)

// NewTokenSource 返回回复接口使用的 access token 来源：
// 配置了长期 token 时直接使用；只配置了 channel ID 和 secret 时用 client credentials
// 换取短期 token 并缓存到过期；都没有时返回 nil。
func NewTokenSource(ctx context.Context, cfg config.LineConfig) oauth2.TokenSource {
	if cfg.ChannelAccessToken != "" {
		return oauth2.StaticTokenSource(&oauth2.Token{
			AccessToken: cfg.ChannelAccessToken,
			TokenType:   "Bearer",
		})
	}

	if cfg.ChannelID == "" || cfg.ChannelSecret == "" {
		return nil
	}

	cc := clientcredentials.Config{
		ClientID:     cfg.ChannelID,
		ClientSecret: cfg.ChannelSecret,
		TokenURL:     strings.TrimRight(cfg.APIBase, "/") + "/v2/oauth/accessToken",
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Timeout: cfg.Timeout()})
	return cc.TokenSource(ctx)
}
