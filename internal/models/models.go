package models

import (
	"time"
)

type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionEnded  SessionStatus = "ended"
)

type ActivityLevel string

const (
	ActivityActive  ActivityLevel = "active"
	ActivityIdle    ActivityLevel = "idle"
	ActivityUnknown ActivityLevel = "unknown"
)

func (l ActivityLevel) Valid() bool {
	switch l {
	case ActivityActive, ActivityIdle, ActivityUnknown:
		return true
	}
	return false
}

// User holds the public identity fields of a monitored person. Review
// reads never expose anything beyond these columns.
type User struct {
	ID           string    `gorm:"primaryKey;size:64" json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Organization string    `json:"organization"`
	LastSeen     time.Time `json:"last_seen"`
}

type ConsentRecord struct {
	ID                   string    `gorm:"primaryKey;size:36" json:"id"`
	UserID               string    `gorm:"size:64;index;not null" json:"user_id"`
	ConsentVersion       string    `gorm:"size:32" json:"consent_version"`
	ScreenCaptureConsent bool      `json:"screen_capture_consent"`
	ActivityLogConsent   bool      `json:"activity_logging_consent"`
	HourlyReportConsent  bool      `json:"hourly_reports_consent"`
	DataStorageConsent   bool      `json:"data_storage_consent"`
	IPAddress            string    `json:"ip_address"`
	UserAgent            string    `json:"user_agent"`
	CreatedAt            time.Time `json:"created_at"`
}

// Valid reports whether every acknowledgment was given.
func (c ConsentRecord) Valid() bool {
	return c.ScreenCaptureConsent && c.ActivityLogConsent && c.HourlyReportConsent && c.DataStorageConsent
}

type MonitoringSession struct {
	ID        string        `gorm:"primaryKey;size:36" json:"id"`
	UserID    string        `gorm:"size:64;index;not null" json:"user_id"`
	Status    SessionStatus `gorm:"size:16;index;not null" json:"status"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
}

type Screenshot struct {
	ID            string        `gorm:"primaryKey;size:36" json:"id"`
	SessionID     string        `gorm:"size:36;index;not null" json:"session_id"`
	UserID        string        `gorm:"size:64;index;not null" json:"user_id"`
	CapturedAt    time.Time     `gorm:"index" json:"captured_at"`
	ReceivedAt    time.Time     `json:"received_at"`
	ImageData     []byte        `json:"-"`
	ThumbnailData []byte        `json:"thumbnail_data,omitempty"`
	OCRText       *string       `json:"ocr_text,omitempty"`
	DetectedApps  []string      `gorm:"serializer:json" json:"detected_apps"`
	ActivityLevel ActivityLevel `gorm:"size:16" json:"activity_level"`
	HourBucket    string        `gorm:"size:13;index" json:"hour_bucket"`
}

type HourlyReport struct {
	ID                 string    `gorm:"primaryKey;size:36" json:"id"`
	SessionID          *string   `gorm:"size:36;index" json:"session_id,omitempty"`
	UserID             string    `gorm:"size:64;index;not null" json:"user_id"`
	HourStart          time.Time `json:"hour_start"`
	HourEnd            time.Time `json:"hour_end"`
	RandomScreenshotID *string   `gorm:"size:36;index" json:"random_screenshot_id,omitempty"`
	ActivitySummary    *string   `json:"activity_summary,omitempty"`
	TopAppsDetected    []string  `gorm:"serializer:json" json:"top_apps_detected"`
	ActiveMinutes      int       `json:"active_minutes"`
	IdleMinutes        int       `json:"idle_minutes"`
	ScreenshotsTaken   int       `json:"screenshots_taken"`
	KeywordsDetected   []string  `gorm:"serializer:json" json:"keywords_detected,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}
