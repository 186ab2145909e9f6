package monitoring

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"workforce-monitor/internal/models"
)

const (
	OCRExcerptLength = 200
	FeedPerSession   = 5
	DefaultFeedLimit = 20
	AppUsageTopN     = 20
)

// Columns loaded for review reads. image_data is never selected.
var summaryColumns = []string{
	"id", "session_id", "user_id", "captured_at", "thumbnail_data",
	"ocr_text", "detected_apps", "activity_level",
}

// ActiveSessions lists every active session with the owner's public
// profile, newest first.
func (s *Service) ActiveSessions(ctx context.Context) ([]models.ActiveSessionView, error) {
	db := s.db.WithContext(ctx)
	var sessions []models.MonitoringSession
	if err := db.Where("status = ?", models.SessionActive).Order("started_at DESC").Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("load active sessions: %w", err)
	}

	users, err := publicUsers(db, sessions)
	if err != nil {
		return nil, err
	}
	views := make([]models.ActiveSessionView, 0, len(sessions))
	for _, session := range sessions {
		view := models.ActiveSessionView{Session: session}
		if u, ok := users[session.UserID]; ok {
			view.User = &u
		}
		views = append(views, view)
	}
	return views, nil
}

// SessionScreenshots summarizes every screenshot of a session in capture
// order. Full resolution data is left out.
func (s *Service) SessionScreenshots(ctx context.Context, sessionID string) ([]models.ScreenshotSummary, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.findSession(db, sessionID); err != nil {
		return nil, err
	}
	var shots []models.Screenshot
	err := db.Select(summaryColumns).Where("session_id = ?", sessionID).Order("captured_at ASC").Find(&shots).Error
	if err != nil {
		return nil, fmt.Errorf("load screenshots: %w", err)
	}
	return summarize(shots), nil
}

// ActivityFeed merges the latest screenshots of every active session,
// newest first. limit <= 0 means DefaultFeedLimit.
func (s *Service) ActivityFeed(ctx context.Context, limit int) ([]models.ScreenshotSummary, error) {
	if limit <= 0 {
		limit = DefaultFeedLimit
	}
	db := s.db.WithContext(ctx)
	var sessionIDs []string
	err := db.Model(&models.MonitoringSession{}).Where("status = ?", models.SessionActive).Pluck("id", &sessionIDs).Error
	if err != nil {
		return nil, fmt.Errorf("load active sessions: %w", err)
	}

	var feed []models.Screenshot
	for _, id := range sessionIDs {
		var recent []models.Screenshot
		err := db.Select(summaryColumns).Where("session_id = ?", id).
			Order("captured_at DESC").Limit(FeedPerSession).Find(&recent).Error
		if err != nil {
			return nil, fmt.Errorf("load recent screenshots for %s: %w", id, err)
		}
		feed = append(feed, recent...)
	}

	sort.SliceStable(feed, func(i, j int) bool {
		return feed[i].CapturedAt.After(feed[j].CapturedAt)
	})
	if len(feed) > limit {
		feed = feed[:limit]
	}
	return summarize(feed), nil
}

// AppUsage totals minutes over every hourly report and ranks apps by how
// many reports list them.
func (s *Service) AppUsage(ctx context.Context) (*models.AppUsageSummary, error) {
	var reports []models.HourlyReport
	err := s.db.WithContext(ctx).Select("active_minutes", "idle_minutes", "top_apps_detected").Find(&reports).Error
	if err != nil {
		return nil, fmt.Errorf("load hourly reports: %w", err)
	}

	summary := &models.AppUsageSummary{TopApps: []models.AppUsageCount{}}
	counts := map[string]int{}
	for _, r := range reports {
		summary.TotalActiveMinutes += r.ActiveMinutes
		summary.TotalIdleMinutes += r.IdleMinutes
		for _, app := range r.TopAppsDetected {
			counts[app]++
		}
	}
	for name, n := range counts {
		summary.TopApps = append(summary.TopApps, models.AppUsageCount{Name: name, Count: n})
	}
	sort.Slice(summary.TopApps, func(i, j int) bool {
		a, b := summary.TopApps[i], summary.TopApps[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Name < b.Name
	})
	if len(summary.TopApps) > AppUsageTopN {
		summary.TopApps = summary.TopApps[:AppUsageTopN]
	}
	return summary, nil
}

func (s *Service) Stats(ctx context.Context) (*models.DashboardStats, error) {
	db := s.db.WithContext(ctx)
	var stats models.DashboardStats
	steps := []struct {
		query *gorm.DB
		dest  *int64
	}{
		{db.Model(&models.User{}), &stats.TotalUsers},
		{db.Model(&models.MonitoringSession{}).Where("status = ?", models.SessionActive), &stats.ActiveSessions},
		{db.Model(&models.Screenshot{}), &stats.TotalScreenshots},
		{db.Model(&models.HourlyReport{}), &stats.TotalReports},
	}
	for _, step := range steps {
		if err := step.query.Count(step.dest).Error; err != nil {
			return nil, fmt.Errorf("dashboard stats: %w", err)
		}
	}
	return &stats, nil
}

func publicUsers(db *gorm.DB, sessions []models.MonitoringSession) (map[string]models.User, error) {
	ids := make([]string, 0, len(sessions))
	for _, s := range sessions {
		ids = append(ids, s.UserID)
	}
	users := map[string]models.User{}
	if len(ids) == 0 {
		return users, nil
	}
	var rows []models.User
	if err := db.Select("id", "full_name", "email", "organization").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	for _, u := range rows {
		users[u.ID] = u
	}
	return users, nil
}

func summarize(shots []models.Screenshot) []models.ScreenshotSummary {
	out := make([]models.ScreenshotSummary, 0, len(shots))
	for _, shot := range shots {
		apps := shot.DetectedApps
		if apps == nil {
			apps = []string{}
		}
		out = append(out, models.ScreenshotSummary{
			ID:            shot.ID,
			SessionID:     shot.SessionID,
			UserID:        shot.UserID,
			CapturedAt:    shot.CapturedAt,
			ThumbnailData: shot.ThumbnailData,
			OCRExcerpt:    excerpt(shot.OCRText, OCRExcerptLength),
			DetectedApps:  apps,
			ActivityLevel: shot.ActivityLevel,
		})
	}
	return out
}

func excerpt(text *string, n int) *string {
	if text == nil {
		return nil
	}
	runes := []rune(*text)
	if len(runes) <= n {
		out := *text
		return &out
	}
	out := string(runes[:n])
	return &out
}
