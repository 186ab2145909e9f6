package retention

import (
	"context"
	"log/slog"
	"time"

	"workforce-monitor/internal/models"
)

// Purger deletes screenshots older than the retention window.
type Purger interface {
	PurgeScreenshots(ctx context.Context, retention time.Duration) (*models.RetentionResult, error)
}

// Service runs the screenshot retention policy on a fixed interval.
type Service struct {
	purger    Purger
	retention time.Duration
	interval  time.Duration
	logger    *slog.Logger
}

func NewService(purger Purger, retention, interval time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{purger: purger, retention: retention, interval: interval, logger: logger}
}

func (s *Service) Enabled() bool {
	return s.retention > 0 && s.interval > 0
}

// Run purges once per interval until ctx ends. It returns immediately
// when retention is disabled.
func (s *Service) Run(ctx context.Context) {
	if !s.Enabled() {
		s.logger.Info("screenshot retention disabled")
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("screenshot retention started", "retention", s.retention, "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

func (s *Service) RunOnce(ctx context.Context) {
	result, err := s.purger.PurgeScreenshots(ctx, s.retention)
	if err != nil {
		s.logger.Error("screenshot retention pass failed", "error", err)
		return
	}
	if result.DeletedCount > 0 {
		s.logger.Info("expired screenshots deleted", "count", result.DeletedCount, "cutoff", result.Cutoff)
	}
}
