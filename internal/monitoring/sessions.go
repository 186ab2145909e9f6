package monitoring

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"workforce-monitor/internal/models"
)

// StartSession opens a monitoring session for a consented user. If one is
// already active it returns an *AlreadyActiveError holding it.
func (s *Service) StartSession(ctx context.Context, userID string) (*models.MonitoringSession, error) {
	ok, err := s.HasValidConsent(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConsentRequired
	}

	session := models.MonitoringSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    models.SessionActive,
		StartedAt: s.now(),
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := activeSession(tx, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return &AlreadyActiveError{Session: *existing}
		}
		return tx.Create(&session).Error
	})
	if isDuplicate(err) {
		// a concurrent start won; report its session
		existing, lookupErr := activeSession(s.db.WithContext(ctx), userID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing != nil {
			return nil, &AlreadyActiveError{Session: *existing}
		}
	}
	if err != nil {
		if errors.Is(err, ErrSessionAlreadyActive) {
			return nil, err
		}
		return nil, fmt.Errorf("start session: %w", err)
	}
	s.logger.Info("monitoring session started", "session_id", session.ID, "user_id", userID)
	return &session, nil
}

// EndSession marks the caller's session ended. Ending an already ended
// session succeeds without changes.
func (s *Service) EndSession(ctx context.Context, sessionID, callerID string) (*models.MonitoringSession, error) {
	db := s.db.WithContext(ctx)
	session, err := s.findSession(db, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != callerID {
		return nil, ErrForbidden
	}
	if session.Status == models.SessionEnded {
		return session, nil
	}

	endedAt := s.now()
	res := db.Model(&models.MonitoringSession{}).
		Where("id = ? AND status = ?", sessionID, models.SessionActive).
		Updates(map[string]any{"status": models.SessionEnded, "ended_at": endedAt})
	if res.Error != nil {
		return nil, fmt.Errorf("end session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// ended concurrently
		return s.findSession(db, sessionID)
	}
	session.Status = models.SessionEnded
	session.EndedAt = &endedAt
	s.logger.Info("monitoring session ended", "session_id", sessionID, "user_id", callerID)
	return session, nil
}

// CurrentSession returns the user's active session or ErrNotFound.
func (s *Service) CurrentSession(ctx context.Context, userID string) (*models.MonitoringSession, error) {
	session, err := activeSession(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrNotFound
	}
	return session, nil
}

func (s *Service) findSession(db *gorm.DB, sessionID string) (*models.MonitoringSession, error) {
	var session models.MonitoringSession
	err := db.Where("id = ?", sessionID).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &session, nil
}

func activeSession(db *gorm.DB, userID string) (*models.MonitoringSession, error) {
	var sessions []models.MonitoringSession
	err := db.Where("user_id = ? AND status = ?", userID, models.SessionActive).Limit(1).Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("load active session: %w", err)
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return &sessions[0], nil
}

func isDuplicate(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
