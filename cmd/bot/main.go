// cmd/bot/main.go
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"studio-settlement/internal/bot"
	"studio-settlement/internal/config"
	"studio-settlement/internal/storage/postgres"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Long-polling alternative to the API's /telegram webhook. Run one or the
// other: Telegram refuses getUpdates while a webhook is registered.
func main() {
	cfg := config.MustLoad()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})))

	if cfg.TelegramBotToken == "" {
		slog.Error("TELEGRAM_BOT_TOKEN not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rates, err := config.LoadRateTable(cfg.RatesFile)
	if err != nil {
		slog.Error("could not load rates", "error", err)
		os.Exit(1)
	}

	db, err := pgxpool.New(ctx, cfg.DBConn)
	if err != nil {
		slog.Error("failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		slog.Error("failed to init bot", "error", err)
		os.Exit(1)
	}
	slog.Info("bot started", "username", api.Self.UserName)

	handler := bot.NewHandler(postgres.NewStorage(db), rates)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			api.StopReceivingUpdates()
			slog.Info("bot stopped")
			return
		case update := <-updates:
			handler.HandleUpdate(ctx, api, update)
		}
	}
}
