package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"telegram-gpt-relay/internal/adapter/memory"
	"telegram-gpt-relay/internal/adapter/openai"
	"telegram-gpt-relay/internal/adapter/telegram"
	"telegram-gpt-relay/internal/config"
	"telegram-gpt-relay/internal/logger"
	"telegram-gpt-relay/internal/usecase/chat"
)

func main() {
	log := logger.New(os.Stderr, os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load(".env", log)
	if err != nil {
		log.Fatal("failed to load config", "err", err)
	}
	log.SetLevel(logger.ParseLevel(cfg.LogLevel))

	api, err := telegram.NewAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatal("failed to init telegram bot", "err", err)
	}

	store := memory.NewStore(cfg.ContextLimit)
	openAIClient := openai.NewClient(cfg.OpenAIKey, cfg.BaseURL)
	chatSvc := chat.NewService(store, openAIClient, telegram.NewSender(api), cfg, log)
	bot := telegram.NewBot(api, chatSvc, log.WithPrefix("telegram"))

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	log.Info("starting relay", "bot", api.Self.UserName, "model", cfg.Model, "history", cfg.ContextLimit)
	if err := bot.Run(ctx); err != nil {
		if ctx.Err() != nil {
			log.Info("shutdown", "reason", err)
			return
		}
		log.Fatal("bot stopped with error", "err", err)
	}
}
