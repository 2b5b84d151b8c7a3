// ClawCoach coaching chat service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/clawcoach/clawcoach/internal/chat"
	"github.com/clawcoach/clawcoach/internal/config"
	"github.com/clawcoach/clawcoach/internal/extract"
	"github.com/clawcoach/clawcoach/internal/models"
	"github.com/clawcoach/clawcoach/internal/payment"
	"github.com/clawcoach/clawcoach/internal/prompt"
	"github.com/clawcoach/clawcoach/internal/quota"
	"github.com/clawcoach/clawcoach/internal/repository"
	"github.com/clawcoach/clawcoach/internal/server"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := repository.NewStore(ctx, cfg.DatabaseURL, cfg.MemoryNoteCap)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Database connected")

	quotaStore, err := quota.NewRedisStore(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to configure quota store", "error", err)
		os.Exit(1)
	}
	if quotaStore == nil {
		slog.Warn("REDIS_URL not set — rate limiting and free-tier metering disabled")
	}
	limiter := quota.NewRateLimiter(quotaStore, cfg.RateLimitHourly, cfg.RateLimitDaily, cfg.QuotaFailClosed)
	meter := quota.NewFreeMeter(quotaStore, cfg.FreeMessages, time.Duration(cfg.FreeWindowDays)*24*time.Hour, cfg.QuotaFailClosed)

	chatModel, err := models.NewChatModel(cfg.OpenAIAPIKey, cfg.ChatModel)
	if err != nil {
		slog.Error("Failed to create chat model", "error", err)
		os.Exit(1)
	}
	extractor, err := extract.NewGeminiExtractor(ctx, cfg.GeminiAPIKey, cfg.ExtractModel)
	if err != nil {
		slog.Error("Failed to create extraction agents", "error", err)
		os.Exit(1)
	}

	profiles := chat.NewStoreProfiles(store)
	resolver := prompt.NewResolver(profiles)
	svc := chat.NewService(chatModel, limiter, meter, resolver, extractor, profiles, profiles)

	validator := payment.NewFacilitatorClient(cfg.X402FacilitatorURL, cfg.X402PayTo, cfg.X402Network, cfg.X402ChatPrice)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.New(svc, store, validator).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			cancel()
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		slog.Info("Shutting down", "signal", sig.String())
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
	svc.Drain()
}
