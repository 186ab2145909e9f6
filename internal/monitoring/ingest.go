package monitoring

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"workforce-monitor/internal/models"
)

// IngestScreenshot stores one capture for the caller's active session.
// The hour bucket comes from the server clock; a client CapturedAt is
// kept for display only.
func (s *Service) IngestScreenshot(ctx context.Context, callerID string, req models.IngestRequest) (*models.Screenshot, error) {
	level := models.ActivityUnknown
	if req.ActivityLevel != nil {
		level = *req.ActivityLevel
	}
	if !level.Valid() {
		return nil, ErrInvalidActivityLevel
	}

	db := s.db.WithContext(ctx)
	session, err := s.findSession(db, req.SessionID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}
	if session.UserID != callerID {
		return nil, ErrForbidden
	}
	if session.Status != models.SessionActive {
		return nil, ErrSessionNotActive
	}

	now := s.now()
	capturedAt := now
	if req.CapturedAt != nil && !req.CapturedAt.IsZero() {
		capturedAt = *req.CapturedAt
	}
	apps := uniqueApps(req.DetectedApps)

	shot := models.Screenshot{
		ID:            uuid.NewString(),
		SessionID:     session.ID,
		UserID:        callerID,
		CapturedAt:    capturedAt,
		ReceivedAt:    now,
		ImageData:     req.ImageData,
		ThumbnailData: req.ThumbnailData,
		OCRText:       req.OCRText,
		DetectedApps:  apps,
		ActivityLevel: level,
		HourBucket:    HourBucket(now),
	}
	if err := db.Create(&shot).Error; err != nil {
		return nil, fmt.Errorf("store screenshot: %w", err)
	}
	return &shot, nil
}

// uniqueApps drops blank and repeated names, keeping first-seen order.
func uniqueApps(names []string) []string {
	out := make([]string, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
