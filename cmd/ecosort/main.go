package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/vbonduro/ecosort/internal/api"
	"github.com/vbonduro/ecosort/internal/config"
	"github.com/vbonduro/ecosort/internal/db"
	"github.com/vbonduro/ecosort/internal/domain"
	"github.com/vbonduro/ecosort/internal/live"
	"github.com/vbonduro/ecosort/internal/logging"
	"github.com/vbonduro/ecosort/internal/service"
	"github.com/vbonduro/ecosort/internal/store"
	"github.com/vbonduro/ecosort/internal/web"
	"github.com/vbonduro/ecosort/internal/web/templates"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		return
	}
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	sessionStore := store.NewSessionStore(database)
	feedStore := store.NewFeedStore(database)

	client := api.NewClient(cfg.APIBaseURL, cfg.APITimeout)
	authService := service.NewAuthService(client, sessionStore, cfg.JWTSecret, cfg.SessionTTL, logger)
	resourceService := service.NewResourceService(client, feedStore, cfg.PageSize, logger)

	hub := live.NewHub(feedStore, cfg.FeedSize, logger)
	subscriber := live.NewSubscriber(client.BaseURL(),
		func(rec domain.WasteRecord) { hub.Publish(ctx, rec) },
		logger,
		live.WithRetry(cfg.SSERetryAttempts, cfg.SSERetryDelay),
	)
	go func() {
		if err := subscriber.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("live waste feed stopped", "error", err)
		}
	}()

	go authService.RunJanitor(ctx, cfg.SessionSweep)

	server := web.NewServer(web.Options{
		Auth:         authService,
		Resources:    resourceService,
		Hub:          hub,
		Templates:    templates.FS,
		CookieSecure: cfg.CookieSecure,
		Logger:       logger,
	})

	if err := server.ListenAndServe(ctx, cfg.ListenAddr); err != nil {
		logger.Error("server error", "error", err)
	}
}
