package monitoring

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"workforce-monitor/internal/models"
)

// ConsentContext records where a consent act came from.
type ConsentContext struct {
	IPAddress string
	UserAgent string
}

// SubmitConsent stores a new immutable consent record. Every
// acknowledgment must be true.
func (s *Service) SubmitConsent(ctx context.Context, userID string, req models.ConsentRequest, origin ConsentContext) (*models.ConsentRecord, error) {
	record := models.ConsentRecord{
		ID:                   uuid.NewString(),
		UserID:               userID,
		ConsentVersion:       req.ConsentVersion,
		ScreenCaptureConsent: req.ScreenCapture,
		ActivityLogConsent:   req.ActivityLog,
		HourlyReportConsent:  req.HourlyReports,
		DataStorageConsent:   req.DataStorage,
		IPAddress:            origin.IPAddress,
		UserAgent:            origin.UserAgent,
		CreatedAt:            s.now(),
	}
	if !record.Valid() {
		return nil, ErrInvalidConsent
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("store consent: %w", err)
	}
	s.logger.Info("consent recorded", "user_id", userID, "version", req.ConsentVersion)
	return &record, nil
}

// HasValidConsent reports whether the user has at least one fully
// acknowledged consent record, for the configured policy version if set.
func (s *Service) HasValidConsent(ctx context.Context, userID string) (bool, error) {
	q := s.db.WithContext(ctx).Model(&models.ConsentRecord{}).
		Where("user_id = ?", userID).
		Where("screen_capture_consent = ? AND activity_log_consent = ? AND hourly_report_consent = ? AND data_storage_consent = ?",
			true, true, true, true)
	if s.policyVersion != "" {
		q = q.Where("consent_version = ?", s.policyVersion)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("check consent: %w", err)
	}
	return count > 0, nil
}

// RegisterUser upserts the caller's public profile.
func (s *Service) RegisterUser(ctx context.Context, userID string, req models.RegisterRequest) (*models.User, error) {
	db := s.db.WithContext(ctx)
	var user models.User
	if err := db.Where(models.User{ID: userID}).FirstOrCreate(&user, models.User{ID: userID}).Error; err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	err := db.Model(&user).Updates(models.User{
		FullName:     req.FullName,
		Email:        req.Email,
		Organization: req.Organization,
		LastSeen:     s.now(),
	}).Error
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &user, nil
}
