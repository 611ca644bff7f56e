// @title           Task Store API
// @version         1.0
// @description     In-memory todo task store with create, read, replace, delete and complete.
// @host            localhost:8080
// @BasePath        /
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/tsukiblade/SimpleTaskManager/internal/app"
	"github.com/tsukiblade/SimpleTaskManager/internal/config"
	"github.com/tsukiblade/SimpleTaskManager/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer lg.Sync()

	lg.Infow("config loaded", "env", cfg.App.Env, "store", cfg.Store.Driver, "cache", cfg.Redis.Enabled())

	application, err := app.New(cfg, lg)
	if err != nil {
		lg.Fatalw("app init", "error", err)
	}
	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.HTTP.Port,
		Handler:      application.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout.Duration(),
		WriteTimeout: cfg.HTTP.WriteTimeout.Duration(),
		IdleTimeout:  cfg.HTTP.IdleTimeout.Duration(),
	}

	go func() {
		lg.Infow("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatalw("HTTP server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	lg.Infow("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout.Duration())
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		lg.Errorw("server shutdown", "error", err)
	}
	if err := application.Close(ctx); err != nil {
		lg.Errorw("app close", "error", err)
	}
	lg.Infow("server stopped")
}
