// cmd/api/main.go
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

	"studio-settlement/internal/auth"
	"studio-settlement/internal/bot"
	"studio-settlement/internal/cache"
	"studio-settlement/internal/calculator"
	"studio-settlement/internal/config"
	"studio-settlement/internal/domain"
	"studio-settlement/internal/events"
	"studio-settlement/internal/handler"
	"studio-settlement/internal/middleware"
	"studio-settlement/internal/settlement"
	"studio-settlement/internal/storage"
	"studio-settlement/internal/storage/memory"
	"studio-settlement/internal/storage/postgres"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rates, err := config.LoadRateTable(cfg.RatesFile)
	if err != nil {
		slog.Error("could not load rates", "file", cfg.RatesFile, "error", err)
		os.Exit(1)
	}
	latest := rates.Latest()
	slog.Info("rates loaded", "versions", len(rates.Versions()), "latest", latest.Version)

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("could not open storage", "backend", cfg.DataBackend, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if err := bootstrapAdmin(ctx, store, cfg); err != nil {
		slog.Error("admin bootstrap failed", "error", err)
		os.Exit(1)
	}

	publisher := openPublisher(cfg)
	defer publisher.Close()

	var summaries handler.SummaryCache
	if cfg.RedisURL != "" {
		c, err := cache.New(cfg.RedisURL, cfg.SummaryCacheTTL)
		if err != nil {
			slog.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		defer c.Close()
		if err := c.Ping(ctx); err != nil {
			slog.Warn("redis is not reachable, summaries will be read from storage until it is", "error", err)
		}
		summaries = c
	}

	tokenService := auth.NewTokenService(cfg)
	service := settlement.NewService(store, rates, publisher, cfg.SettlementWorkers)
	h := handler.NewHandler(store, service, tokenService, summaries)

	opts := handler.RouterOptions{CORSOrigins: cfg.CORSOrigins}
	if cfg.TelegramBotToken != "" && cfg.TelegramWebhookSecret == "" {
		slog.Warn("TELEGRAM_WEBHOOK_SECRET is not set, /telegram is disabled; use cmd/bot for long polling")
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramWebhookSecret != "" {
		webhook, err := telegramWebhook(cfg, store, rates)
		if err != nil {
			slog.Error("telegram setup failed", "error", err)
			os.Exit(1)
		}
		opts.Telegram = webhook
	}

	if cfg.LogLevel > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := handler.NewRouter(h, middleware.NewAuthMiddleware(tokenService), opts)

	srv := &http.Server{
		Addr:              cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server started", "addr", cfg.ServerPort, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped with error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
}

func openStore(ctx context.Context, cfg config.Config) (storage.Store, func(), error) {
	if cfg.DataBackend == config.BackendMemory {
		slog.Warn("using in-memory storage, data is lost on restart")
		return memory.NewStorage(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DBConn)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}
	slog.Info("connected to PostgreSQL")
	return postgres.NewStorage(pool), pool.Close, nil
}

func openPublisher(cfg config.Config) events.Publisher {
	if cfg.AMQPURL == "" {
		return events.NopPublisher{}
	}
	p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	if err != nil {
		slog.Warn("event broker unavailable, events are dropped", "error", err)
		return events.NopPublisher{}
	}
	slog.Info("publishing events", "exchange", cfg.AMQPExchange)
	return p
}

// bootstrapAdmin creates the first admin from ADMIN_EMAIL/ADMIN_PASSWORD when
// no member with that email exists yet.
func bootstrapAdmin(ctx context.Context, store storage.Store, cfg config.Config) error {
	if cfg.AdminEmail == "" {
		return nil
	}
	existing, err := store.FindMemberByEmail(ctx, cfg.AdminEmail)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}
	id, err := store.CreateMember(ctx, domain.Member{
		Name:         "Admin",
		Email:        cfg.AdminEmail,
		Role:         domain.RoleAdmin,
		Active:       true,
		PasswordHash: hash,
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	slog.Info("admin member created", "member_id", id, "email", cfg.AdminEmail)
	return nil
}

func telegramWebhook(cfg config.Config, store storage.Store, rates calculator.RateTable) (gin.HandlerFunc, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("init bot: %w", err)
	}

	if cfg.TelegramWebhookURL != "" {
		url := cfg.TelegramWebhookURL + "/telegram"
		params := tgbotapi.Params{"url": url, "secret_token": cfg.TelegramWebhookSecret}
		if _, err := api.MakeRequest("setWebhook", params); err != nil {
			return nil, fmt.Errorf("set webhook: %w", err)
		}
		slog.Info("telegram webhook set", "url", url, "bot", api.Self.UserName)
	} else {
		slog.Warn("TELEGRAM_WEBHOOK_URL is not set, register the webhook with the same secret_token manually", "bot", api.Self.UserName)
	}

	return handler.TelegramWebhook(bot.NewHandler(store, rates), api, cfg.TelegramWebhookSecret), nil
}
