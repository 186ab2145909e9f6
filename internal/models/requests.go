package models

import "time"

// Request and response bodies shared by the server handlers and the agent
// client.

type RegisterRequest struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	Organization string `json:"organization"`
}

type ConsentRequest struct {
	ConsentVersion string `json:"consent_version"`
	ScreenCapture  bool   `json:"screen_capture"`
	ActivityLog    bool   `json:"activity_logging"`
	HourlyReports  bool   `json:"hourly_reports"`
	DataStorage    bool   `json:"data_storage"`
}

type ConsentStatusResponse struct {
	HasValidConsent bool `json:"has_valid_consent"`
}

type SessionResponse struct {
	Session MonitoringSession `json:"session"`
}

// IngestRequest carries one capture result. Byte slices travel as
// base64 in JSON.
type IngestRequest struct {
	SessionID     string         `json:"session_id" binding:"required"`
	ImageData     []byte         `json:"image_data" binding:"required"`
	ThumbnailData []byte         `json:"thumbnail_data,omitempty"`
	OCRText       *string        `json:"ocr_text,omitempty"`
	DetectedApps  []string       `json:"detected_apps,omitempty"`
	ActivityLevel *ActivityLevel `json:"activity_level,omitempty" binding:"omitempty,oneof=active idle unknown"`
	CapturedAt    *time.Time     `json:"captured_at,omitempty"`
}

type IngestResponse struct {
	ScreenshotID string `json:"screenshot_id"`
	HourBucket   string `json:"hour_bucket"`
}

type HourlyReportRequest struct {
	SessionID          *string   `json:"session_id,omitempty"`
	HourStart          time.Time `json:"hour_start" binding:"required"`
	HourEnd            time.Time `json:"hour_end" binding:"required"`
	RandomScreenshotID *string   `json:"random_screenshot_id,omitempty"`
	ActivitySummary    *string   `json:"activity_summary,omitempty"`
	TopAppsDetected    []string  `json:"top_apps_detected,omitempty"`
	ActiveMinutes      int       `json:"active_minutes"`
	IdleMinutes        int       `json:"idle_minutes"`
	ScreenshotsTaken   int       `json:"screenshots_taken"`
	KeywordsDetected   []string  `json:"keywords_detected,omitempty"`
}

type HourlyReportResponse struct {
	ReportID string `json:"report_id"`
}

type ActiveSessionView struct {
	Session MonitoringSession `json:"session"`
	User    *User             `json:"user,omitempty"`
}

type ScreenshotSummary struct {
	ID            string        `json:"id"`
	SessionID     string        `json:"session_id"`
	UserID        string        `json:"user_id"`
	CapturedAt    time.Time     `json:"captured_at"`
	ThumbnailData []byte        `json:"thumbnail_data,omitempty"`
	OCRExcerpt    *string       `json:"ocr_excerpt,omitempty"`
	DetectedApps  []string      `json:"detected_apps"`
	ActivityLevel ActivityLevel `json:"activity_level"`
}

type AppUsageCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type AppUsageSummary struct {
	TotalActiveMinutes int             `json:"total_active_minutes"`
	TotalIdleMinutes   int             `json:"total_idle_minutes"`
	TopApps            []AppUsageCount `json:"top_apps"`
}

type DashboardStats struct {
	TotalUsers       int64 `json:"total_users"`
	ActiveSessions   int64 `json:"active_sessions"`
	TotalScreenshots int64 `json:"total_screenshots"`
	TotalReports     int64 `json:"total_reports"`
}

type RetentionResult struct {
	Cutoff       time.Time `json:"cutoff"`
	DeletedCount int64     `json:"deleted_count"`
}

type ErrorResponse struct {
	Error   string             `json:"error"`
	Session *MonitoringSession `json:"session,omitempty"`
}
