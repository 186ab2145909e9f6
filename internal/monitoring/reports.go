package monitoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"workforce-monitor/internal/models"
)

// CreateHourlyReport stores a report computed by the capturing client.
// The server does not recompute statistics from stored screenshots; the
// report surfaces a single sampled screenshot for the hour.
func (s *Service) CreateHourlyReport(ctx context.Context, userID string, req models.HourlyReportRequest) (*models.HourlyReport, error) {
	if err := s.checkReportRefs(ctx, userID, req); err != nil {
		return nil, err
	}
	apps := req.TopAppsDetected
	if apps == nil {
		apps = []string{}
	}
	report := models.HourlyReport{
		ID:                 uuid.NewString(),
		SessionID:          req.SessionID,
		UserID:             userID,
		HourStart:          req.HourStart,
		HourEnd:            req.HourEnd,
		RandomScreenshotID: req.RandomScreenshotID,
		ActivitySummary:    req.ActivitySummary,
		TopAppsDetected:    apps,
		ActiveMinutes:      req.ActiveMinutes,
		IdleMinutes:        req.IdleMinutes,
		ScreenshotsTaken:   req.ScreenshotsTaken,
		KeywordsDetected:   req.KeywordsDetected,
		CreatedAt:          s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&report).Error; err != nil {
		return nil, fmt.Errorf("store hourly report: %w", err)
	}
	s.logger.Info("hourly report created", "report_id", report.ID, "user_id", userID, "screenshots", req.ScreenshotsTaken)
	return &report, nil
}

// checkReportRefs verifies the referenced session and screenshot exist
// and belong to the caller.
func (s *Service) checkReportRefs(ctx context.Context, userID string, req models.HourlyReportRequest) error {
	db := s.db.WithContext(ctx)
	if req.SessionID != nil {
		session, err := s.findSession(db, *req.SessionID)
		if err != nil {
			return err
		}
		if session.UserID != userID {
			return ErrForbidden
		}
	}
	if req.RandomScreenshotID != nil {
		var shot models.Screenshot
		err := db.Select("id", "user_id", "session_id").Where("id = ?", *req.RandomScreenshotID).First(&shot).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load screenshot: %w", err)
		}
		if shot.UserID != userID {
			return ErrForbidden
		}
	}
	return nil
}
