package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/johnqing-424/LINE-RAG/internal/answer"
	"github.com/johnqing-424/LINE-RAG/internal/config"
	"github.com/johnqing-424/LINE-RAG/internal/dedup"
	"github.com/johnqing-424/LINE-RAG/internal/dispatch"
	"github.com/johnqing-424/LINE-RAG/internal/keyword"
	"github.com/johnqing-424/LINE-RAG/internal/line"
	"github.com/johnqing-424/LINE-RAG/internal/logging"
	"github.com/johnqing-424/LINE-RAG/internal/metrics"
	"github.com/johnqing-424/LINE-RAG/internal/rag"
	"github.com/johnqing-424/LINE-RAG/internal/server"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:          "linebot",
		Short:        "LINE webhook relay with keyword replies and RAG answers",
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_FILE"), "path to config.yml (default: search config.yml, ../config.yml, ~/config.yml)")

	root.AddCommand(serveCmd())
	root.AddCommand(askCmd())
	root.AddCommand(signCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the webhook HTTP server",
		RunE:  runServe,
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <text>",
		Short: "Print the reply the bot would send for a message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			resolver, err := buildResolver(cfg, nil)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resolver.Resolve(cmd.Context(), strings.Join(args, " ")))
			return nil
		},
	}
}

func signCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sign [file]",
		Short: "Print the X-Line-Signature for a request body (stdin when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Line.ChannelSecret == "" {
				return fmt.Errorf("channel secret is not configured")
			}

			var body []byte
			if len(args) == 1 {
				body, err = os.ReadFile(args[0])
			} else {
				body, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return fmt.Errorf("read body: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), line.Sign([]byte(cfg.Line.ChannelSecret), body))
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logging.Init(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

func buildResolver(cfg *config.Config, m *metrics.Metrics) (*answer.Resolver, error) {
	table, err := keyword.New(cfg.Keywords)
	if err != nil {
		return nil, fmt.Errorf("keyword table: %w", err)
	}
	return answer.New(table, rag.New(cfg.Rag), cfg.DefaultReply, m), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	resolver, err := buildResolver(cfg, m)
	if err != nil {
		return err
	}

	ts := line.NewTokenSource(context.Background(), cfg.Line)
	replier := line.NewClient(cfg.Line, ts)

	if cfg.Line.ChannelSecret == "" {
		slog.Warn("LINE_CHANNEL_SECRET is not set, webhook signatures are NOT verified")
	}
	if ts == nil {
		slog.Warn("No LINE channel access token configured, replies will fail")
	}
	if !resolver.HasBackend() {
		slog.Info("No RAG backend configured, unmatched messages get the default reply")
	}

	opts := []dispatch.Option{dispatch.WithMetrics(m)}
	if cfg.Redis.URL != "" {
		rdb, err := dedup.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			slog.Error("Redis unavailable, redelivery check disabled", "error", err)
		} else {
			defer rdb.Close()
			opts = append(opts, dispatch.WithGuard(dedup.NewRedis(rdb, cfg.Redis.TTL())))
		}
	}

	d := dispatch.New(cfg.Line.ChannelSecret, resolver, replier, opts...)

	router := server.NewRouter(server.Options{
		Server:          cfg.Server,
		SignatureHeader: cfg.Line.SignatureHeader,
		Webhook:         d,
		Registry:        reg,
		Metrics:         m,
	})

	slog.Info("Starting LINE relay",
		"addr", cfg.Server.Addr(),
		"webhook_path", cfg.Server.WebhookPath,
		"keywords", len(cfg.Keywords),
		"rag_provider", cfg.Rag.Provider,
	)
	return server.New(cfg.Server.Addr(), router).Run(ctx)
}
