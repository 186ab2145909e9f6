package monitoring

import (
	"errors"

	"workforce-monitor/internal/models"
)

var (
	ErrInvalidConsent       = errors.New("all consent acknowledgments are required")
	ErrConsentRequired      = errors.New("valid consent required")
	ErrSessionAlreadyActive = errors.New("session already active")
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidSession       = errors.New("invalid session")
	ErrSessionNotActive     = errors.New("session not active")
	ErrInvalidActivityLevel = errors.New("activity level must be active, idle or unknown")
)

// AlreadyActiveError carries the session the caller should reuse.
type AlreadyActiveError struct {
	Session models.MonitoringSession
}

func (e *AlreadyActiveError) Error() string {
	return "session " + e.Session.ID + " already active"
}

func (e *AlreadyActiveError) Is(target error) bool {
	return target == ErrSessionAlreadyActive
}
