package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"workforce-monitor/internal/config"
	"workforce-monitor/internal/database"
	"workforce-monitor/internal/handlers"
	"workforce-monitor/internal/monitoring"
	"workforce-monitor/internal/retention"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg := config.LoadServer()
	gin.SetMode(cfg.GinMode)

	db, err := database.Open(cfg.DBName)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			logger.Warn("database close failed", "error", err)
		}
	}()

	svc := monitoring.NewService(db,
		monitoring.WithLogger(logger),
		monitoring.WithPolicyVersion(cfg.ConsentPolicyVersion),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	purger := retention.NewService(svc, cfg.ScreenshotRetention, cfg.RetentionInterval, logger)
	go purger.Run(ctx)

	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.GinMode != gin.ReleaseMode {
		r.Use(gin.Logger())
	}
	handlers.NewMonitorHandler(svc, cfg.ScreenshotRetention, logger).Routes(r)

	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Port, "db", cfg.DBName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
