package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"workforce-monitor/internal/agent"
	"workforce-monitor/internal/capture"
	"workforce-monitor/internal/client"
	"workforce-monitor/internal/config"
	"workforce-monitor/internal/models"
)

func main() {
	cfg := config.LoadAgent()

	flag.StringVar(&cfg.ServerURL, "server", cfg.ServerURL, "monitoring server base URL")
	flag.StringVar(&cfg.UserID, "user", cfg.UserID, "user id sent with every request")
	flag.StringVar(&cfg.AuthToken, "token", cfg.AuthToken, "bearer token for the server")
	flag.DurationVar(&cfg.Interval, "interval", cfg.Interval, "time between captures")
	flag.IntVar(&cfg.Display, "display", cfg.Display, "display index to capture")
	flag.StringSliceVar(&cfg.Keywords, "keywords", cfg.Keywords, "keywords to flag in hourly reports")
	accept := flag.Bool("accept-monitoring", false, "grant consent to screen capture, activity logging, hourly reports and data storage")
	verbose := flag.BoolP("verbose", "v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(cfg, *accept, logger); err != nil {
		logger.Error("agent exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.AgentConfig, accept bool, logger *slog.Logger) error {
	if cfg.UserID == "" {
		return errors.New("a user id is required (--user or MONITOR_USER_ID)")
	}
	if cfg.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", cfg.Interval)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := client.New(cfg.ServerURL, cfg.UserID, cfg.AuthToken)
	if err := api.Register(ctx, models.RegisterRequest{
		FullName:     cfg.FullName,
		Email:        cfg.Email,
		Organization: cfg.Organization,
	}); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	if err := ensureConsent(ctx, api, cfg.ConsentVersion, accept, logger); err != nil {
		return err
	}

	driver := capture.NewDriver(
		capture.ScreenProvider{Display: cfg.Display},
		capture.NewOCR(capture.TesseractFactory(cfg.OCRLanguages...)),
		capture.WithLogger(logger),
	)
	defer func() {
		if err := driver.Close(); err != nil {
			logger.Warn("capture driver close failed", "error", err)
		}
	}()

	logger.Info("monitoring started", "server", cfg.ServerURL, "interval", cfg.Interval, "display", cfg.Display)
	a := agent.New(agent.Config{Interval: cfg.Interval, Keywords: cfg.Keywords}, driver, api, logger)
	err := a.Run(ctx)
	if errors.Is(err, client.ErrSessionClosed) {
		logger.Info("session ended by the server")
		return nil
	}
	return err
}

// ensureConsent never grants consent on the user's behalf: without
// --accept-monitoring and no recorded consent the agent refuses to run.
func ensureConsent(ctx context.Context, api *client.Client, version string, accept bool, logger *slog.Logger) error {
	ok, err := api.HasValidConsent(ctx)
	if err != nil {
		return fmt.Errorf("check consent: %w", err)
	}
	if ok {
		return nil
	}
	if !accept {
		return errors.New("no valid consent on record; rerun with --accept-monitoring to agree to monitoring")
	}
	if err := api.SubmitConsent(ctx, models.ConsentRequest{
		ConsentVersion: version,
		ScreenCapture:  true,
		ActivityLog:    true,
		HourlyReports:  true,
		DataStorage:    true,
	}); err != nil {
		return fmt.Errorf("submit consent: %w", err)
	}
	logger.Info("consent recorded", "version", version)
	return nil
}
