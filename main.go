package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"dragonfox-roomsync-server/config"
	"dragonfox-roomsync-server/game"
	"dragonfox-roomsync-server/hub"
	"dragonfox-roomsync-server/media"
	"dragonfox-roomsync-server/relay"
	"dragonfox-roomsync-server/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	setupLogger(cfg)
	if cfg.LogLevel > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rooms := hub.New()
	rel := relay.New(rooms, media.NewRegistry(), game.NewRegistry(nil), relay.Options{
		BotDelay:         cfg.BotDelay,
		AutoRestartDelay: cfg.AutoRestartDelay,
	})
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		rel.Run(ctx)
	}()

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: server.New(cfg, rooms, rel).Engine(),
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "staticDir", cfg.StaticDir, "origins", cfg.AllowedOrigins)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	<-relayDone
}

func setupLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
