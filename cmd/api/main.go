package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"roomStylerAi/internal/app"
	"roomStylerAi/internal/catalog"
	"roomStylerAi/internal/config"
	"roomStylerAi/internal/events"
	"roomStylerAi/internal/imagecodec"
	"roomStylerAi/internal/logger"
	"roomStylerAi/internal/redesign"
	"roomStylerAi/internal/server"
	"roomStylerAi/internal/session"
	"roomStylerAi/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Log.Errorf("failed to load config: %v", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel, "roomstyler-api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	styles, err := catalog.Load(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal("failed to load style catalog", err)
	}

	designer, err := app.NewDesigner(ctx, cfg)
	if err != nil {
		fatal("failed to init designer", err)
	}
	conversations, err := app.NewConversations(ctx, cfg)
	if err != nil {
		fatal("failed to init chat", err)
	}
	uploader, err := app.NewUploader(ctx, cfg)
	if err != nil {
		fatal("failed to init media uploader", err)
	}
	analyzer, err := app.NewAnalyzer(ctx, cfg)
	if err != nil {
		fatal("failed to init room analyzer", err)
	}

	eventBroker := events.NewBroker()
	store := session.NewStore(session.Dependencies{
		Designer:      designer,
		Conversations: conversations,
		Catalog:       styles,
		Publisher:     eventBroker,
		Upload:        imagecodec.Options{MaxBytes: cfg.Session.MaxUploadBytes},
	}, session.StoreOptions{
		TTL:         cfg.SessionTTL(),
		MaxSessions: cfg.Session.MaxSessions,
	})
	go store.Run(ctx, time.Minute)

	api := redesign.Handler{
		Sessions:       store,
		Catalog:        styles,
		Analyzer:       analyzer,
		Uploader:       uploader,
		Events:         eventBroker,
		MaxUploadBytes: cfg.Session.MaxUploadBytes,
	}
	screens, err := web.New(store, styles, cfg.Session.MaxUploadBytes)
	if err != nil {
		fatal("failed to init web screens", err)
	}

	srv := server.New(server.Options{
		Port:               cfg.Port,
		AllowedOrigins:     cfg.HTTP.AllowedOrigins,
		RateLimitPerMinute: cfg.HTTP.RateLimitPerMinute,
	}, api, screens)

	go func() {
		<-ctx.Done()
		logger.Log.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Errorf("server shutdown error: %v", err)
		}
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal("server failed", err)
	}
}

func fatal(msg string, err error) {
	logger.ErrorWithFields(msg, logger.Fields{"error": err.Error()})
	os.Exit(1)
}
