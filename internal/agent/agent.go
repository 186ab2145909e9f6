// Package agent runs monitoring on the user's machine: it keeps a
// session open, captures on a fixed cadence, uploads each capture and
// reports every completed hour.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"workforce-monitor/internal/capture"
	"workforce-monitor/internal/classifier"
	"workforce-monitor/internal/client"
	"workforce-monitor/internal/models"
)

type Capturer interface {
	AcquireCapture() error
	ReleaseCapture()
	CaptureOnce(ctx context.Context) (*capture.Result, error)
}

type Server interface {
	StartSession(ctx context.Context) (*models.MonitoringSession, error)
	EndSession(ctx context.Context, sessionID string) error
	UploadScreenshot(ctx context.Context, req models.IngestRequest) (*models.IngestResponse, error)
	CreateHourlyReport(ctx context.Context, req models.HourlyReportRequest) (*models.HourlyReportResponse, error)
}

type Config struct {
	Interval time.Duration
	Keywords []string
}

type Agent struct {
	cfg      Config
	capturer Capturer
	server   Server
	logger   *slog.Logger

	now         func() time.Time
	windowTitle func() string
	pick        func(n int) int

	session *models.MonitoringSession
	window  *HourWindow
}

func New(cfg Config, capturer Capturer, server Server, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		cfg:         cfg,
		capturer:    capturer,
		server:      server,
		logger:      logger,
		now:         time.Now,
		windowTitle: ActiveWindowTitle,
		pick:        rand.IntN,
	}
}

// Run captures until ctx ends or the server closes the session. On exit
// it reports the partial hour and ends the session.
func (a *Agent) Run(ctx context.Context) error {
	session, err := a.server.StartSession(ctx)
	if err != nil {
		return fmt.Errorf("start monitoring session: %w", err)
	}
	a.session = session
	a.logger.Info("monitoring session open", "session_id", session.ID)
	defer a.shutdown()

	if err := a.capturer.AcquireCapture(); err != nil {
		return fmt.Errorf("acquire capture: %w", err)
	}

	// a slow capture makes the ticker drop ticks rather than queue them
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := a.step(ctx); err != nil {
				return err
			}
		}
	}
}

// step performs one tick: close the previous hour if it ended, then
// capture and upload.
func (a *Agent) step(ctx context.Context) error {
	now := a.now()
	if a.window != nil && !a.window.Contains(now) {
		a.flush(ctx)
	}
	if a.window == nil {
		a.window = NewHourWindow(now)
	}

	res, err := a.capturer.CaptureOnce(ctx)
	if errors.Is(err, capture.ErrCaptureUnavailable) {
		a.logger.Warn("capture unavailable, re-acquiring")
		if err := a.capturer.AcquireCapture(); err != nil {
			a.logger.Warn("capture re-acquire failed", "error", err)
		}
		return nil
	}
	if err != nil {
		a.logger.Warn("capture failed", "error", err)
		return nil
	}

	title := a.windowTitle()
	apps := classifier.AppNames(res.DetectedApps)
	level := res.ActivityLevel
	capturedAt := res.Timestamp
	out, err := a.server.UploadScreenshot(ctx, models.IngestRequest{
		SessionID:     a.session.ID,
		ImageData:     res.ImageData,
		ThumbnailData: res.ThumbnailData,
		OCRText:       res.OCRText,
		DetectedApps:  apps,
		ActivityLevel: &level,
		CapturedAt:    &capturedAt,
	})
	if errors.Is(err, client.ErrSessionClosed) {
		return err
	}
	if err != nil {
		a.logger.Error("screenshot upload failed", "error", err)
		return nil
	}
	a.window.Add(out.ScreenshotID, apps, level, title, res.OCRText)
	return nil
}

// flush reports the current window if it captured anything.
func (a *Agent) flush(ctx context.Context) {
	w := a.window
	a.window = nil
	if w == nil || w.Len() == 0 {
		return
	}
	req := w.Report(a.session.ID, a.cfg.Interval, a.cfg.Keywords, a.pick)
	if _, err := a.server.CreateHourlyReport(ctx, req); err != nil {
		a.logger.Error("hourly report failed", "hour_start", w.Start, "error", err)
		return
	}
	a.logger.Info("hourly report sent", "hour_start", w.Start, "screenshots", req.ScreenshotsTaken)
}

func (a *Agent) shutdown() {
	a.capturer.ReleaseCapture()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	a.flush(ctx)
	if err := a.server.EndSession(ctx, a.session.ID); err != nil {
		a.logger.Warn("end session failed", "session_id", a.session.ID, "error", err)
	}
}
