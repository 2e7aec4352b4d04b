package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/Veraticus/spicebot/internal/api"
	"github.com/Veraticus/spicebot/internal/auth"
	"github.com/Veraticus/spicebot/internal/cache"
	"github.com/Veraticus/spicebot/internal/chatbot"
	"github.com/Veraticus/spicebot/internal/cli"
	"github.com/Veraticus/spicebot/internal/common"
	"github.com/Veraticus/spicebot/internal/config"
	"github.com/Veraticus/spicebot/internal/llm"
	"github.com/Veraticus/spicebot/internal/metrics"
	"github.com/Veraticus/spicebot/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API server.

The database is migrated on startup. Redis caching and the language model
are optional: without them summaries are computed on every request and the
chatbot answers advice questions with canned replies.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger := slog.Default()
	ctx := cmd.Context()

	store, err := openStorage(ctx, config.ExpandPath(cfg.Database.Path))
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var data service.Storage = store
	if cfg.Redis.Addr != "" {
		client, cacheErr := connectRedis(ctx, cfg.Redis)
		if cacheErr != nil {
			common.LogError(logger, cacheErr, "Redis unavailable, summaries will not be cached", common.Fields{
				"addr": cfg.Redis.Addr,
			})
		} else {
			defer func() { _ = client.Close() }()
			data = cache.Wrap(store, client, cfg.Redis.TTL, logger)
			logger.Info("Summary cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
		}
	}

	responder := newResponder(cfg.LLM, logger)

	m := metrics.New()
	dispatcher := chatbot.NewDispatcherWithConfig(chatbot.NewStorageCreator(data), data, responder,
		chatbot.DispatcherConfig{Logger: logger, Recorder: m})
	chat := chatbot.NewService(data, dispatcher, chatbot.ServiceConfig{Logger: logger, Recorder: m})

	tokens, err := auth.NewTokenManager(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	apiCfg := api.DefaultConfig()
	if len(cfg.Server.AllowedOrigins) > 0 {
		apiCfg.AllowedOrigins = cfg.Server.AllowedOrigins
	}
	srv := api.NewWithConfig(api.Deps{
		Store:     data,
		Chat:      chat,
		Accounts:  auth.NewService(store, tokens, logger),
		Tokens:    tokens,
		Responder: responder,
		Metrics:   m,
		Logger:    logger,
	}, apiCfg)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	interrupts := cli.NewInterruptHandler(os.Stderr)
	ctx, stop := interrupts.HandleInterrupts(ctx, "server")
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Server.Addr, "ai_enabled", responder != nil)
		if serveErr := httpServer.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			errCh <- serveErr
		}
		close(errCh)
	}()

	select {
	case serveErr := <-errCh:
		if serveErr != nil {
			return fmt.Errorf("server failed: %w", serveErr)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("HTTP server stopped", "interrupted", interrupts.WasInterrupted())
	return nil
}

func connectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts := startupRetry
	opts.Label = "redis"
	var client *redis.Client
	err := common.WithRetry(ctx, func() error {
		c, err := cache.NewClient(ctx, cfg.Addr, cfg.Password, cfg.DB)
		if err != nil {
			return err
		}
		client = c
		return nil
	}, opts)
	return client, err
}

// newResponder returns nil when no provider is configured, which leaves the
// chatbot on its canned replies.
func newResponder(cfg config.LLMConfig, logger *slog.Logger) chatbot.Responder {
	if cfg.APIKey == "" {
		logger.Warn("No LLM API key configured, advice questions will use canned replies")
		return nil
	}

	client, err := llm.NewClient(llm.Config{
		Provider:    cfg.Provider,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: llm.Float(cfg.Temperature),
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
		RateLimit:   cfg.RateLimit,
	})
	if err != nil {
		common.LogError(logger, err, "LLM client unavailable", common.Fields{"provider": cfg.Provider})
		return nil
	}
	logger.Info("LLM responder enabled", "provider", cfg.Provider, "model", cfg.Model)
	return client
}
