package monitoring

import (
	"context"
	"fmt"
	"time"

	"workforce-monitor/internal/models"
)

// PurgeScreenshots deletes screenshots captured before now-retention.
// Screenshots an hourly report samples are kept so reports stay
// viewable.
func (s *Service) PurgeScreenshots(ctx context.Context, retention time.Duration) (*models.RetentionResult, error) {
	cutoff := s.now().Add(-retention)
	db := s.db.WithContext(ctx)
	sampled := db.Model(&models.HourlyReport{}).
		Select("random_screenshot_id").
		Where("random_screenshot_id IS NOT NULL")

	res := db.Where("captured_at < ?", cutoff).
		Where("id NOT IN (?)", sampled).
		Delete(&models.Screenshot{})
	if res.Error != nil {
		return nil, fmt.Errorf("purge screenshots: %w", res.Error)
	}
	s.logger.Info("screenshot retention pass", "cutoff", cutoff, "deleted", res.RowsAffected)
	return &models.RetentionResult{Cutoff: cutoff, DeletedCount: res.RowsAffected}, nil
}
