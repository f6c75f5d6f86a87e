package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/halver/imposterbot/internal/bot"
	"github.com/halver/imposterbot/internal/chat"
	"github.com/halver/imposterbot/internal/config"
	"github.com/halver/imposterbot/internal/database"
	"github.com/halver/imposterbot/internal/game"
	"github.com/halver/imposterbot/internal/history"
	"github.com/halver/imposterbot/internal/llm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config error")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Optional infrastructure: the bot runs fine without either.
	var recorder *history.Publisher
	if cfg.RedisURL != "" {
		recorder, err = history.New(cfg.RedisURL)
		if err != nil {
			logrus.WithError(err).Fatal("redis init error")
		}
		defer recorder.Close()
	}

	var archive *database.Store
	if cfg.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		archive, err = database.Connect(ctx, cfg.DatabaseURL)
		cancel()
		if err != nil {
			logrus.WithError(err).Fatal("postgres init error")
		}
		defer archive.Close()
	}

	generator := llm.New(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel)
	gateway := chat.New(cfg.GatewayWSURL, cfg.BotID, cfg.GatewayTokenSecret)
	presenter := bot.NewPresenter(gateway, archive)

	registry := game.NewRegistry(game.Options{
		Words:               generator,
		Moves:               generator,
		MeetingWindow:       cfg.MeetingWindow,
		BroadcastFn:         presenter.HandleEvent,
		BroadcastToPlayerFn: presenter.HandlePlayerEvent,
		RecordFn:            recorderFn(recorder),
	})

	router := bot.NewRouter(registry, gateway, cfg.BotPrefix)
	gateway.OnMessage(func(msg *chat.Message) {
		// Keep the read loop free; command handling may hit the game lock.
		go router.HandleMessage(msg)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := gateway.Connect(ctx); err != nil {
		cancel()
		logrus.WithError(err).Fatal("gateway connect error")
	}
	cancel()
	logrus.WithField("prefix", cfg.BotPrefix).Info("imposter bot ready")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	_ = gateway.Close()
}

// recorderFn adapts the optional history publisher to the game callback.
func recorderFn(p *history.Publisher) func(game.ActionRecord) {
	if p == nil {
		return nil
	}
	return p.Record
}
