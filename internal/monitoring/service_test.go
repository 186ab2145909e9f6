package monitoring

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"workforce-monitor/internal/database"
	"workforce-monitor/internal/models"
)

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Set(t time.Time) { c.now = t }

func newTestService(t *testing.T, opts ...Option) (*Service, *gorm.DB, *testClock) {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "monitor.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	clock := &testClock{now: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	return NewService(db, opts...), db, clock
}

func fullConsent() models.ConsentRequest {
	return models.ConsentRequest{
		ConsentVersion: "v1",
		ScreenCapture:  true,
		ActivityLog:    true,
		HourlyReports:  true,
		DataStorage:    true,
	}
}

func consentedSession(t *testing.T, svc *Service, userID string) *models.MonitoringSession {
	t.Helper()
	ctx := context.Background()
	_, err := svc.SubmitConsent(ctx, userID, fullConsent(), ConsentContext{})
	require.NoError(t, err)
	session, err := svc.StartSession(ctx, userID)
	require.NoError(t, err)
	return session
}

func strPtr(s string) *string { return &s }

func TestSubmitConsent_RequiresAllAcknowledgments(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	partial := []func(*models.ConsentRequest){
		func(r *models.ConsentRequest) { r.ScreenCapture = false },
		func(r *models.ConsentRequest) { r.ActivityLog = false },
		func(r *models.ConsentRequest) { r.HourlyReports = false },
		func(r *models.ConsentRequest) { r.DataStorage = false },
	}
	for _, mutate := range partial {
		req := fullConsent()
		mutate(&req)
		_, err := svc.SubmitConsent(ctx, "alice", req, ConsentContext{})
		assert.ErrorIs(t, err, ErrInvalidConsent)
	}

	var count int64
	require.NoError(t, db.Model(&models.ConsentRecord{}).Count(&count).Error)
	assert.Zero(t, count)

	ok, err := svc.HasValidConsent(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSubmitConsent_StoresContext(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	record, err := svc.SubmitConsent(ctx, "alice", fullConsent(), ConsentContext{IPAddress: "10.0.0.7", UserAgent: "agent/1.0"})
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7", record.IPAddress)
	assert.Equal(t, "agent/1.0", record.UserAgent)
	assert.Equal(t, clock.now, record.CreatedAt)

	ok, err := svc.HasValidConsent(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasValidConsent(ctx, "bob")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasValidConsent_PolicyVersion(t *testing.T) {
	svc, _, _ := newTestService(t, WithPolicyVersion("v2"))
	ctx := context.Background()

	_, err := svc.SubmitConsent(ctx, "alice", fullConsent(), ConsentContext{})
	require.NoError(t, err)
	ok, err := svc.HasValidConsent(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok, "consent for an older policy must not count")

	req := fullConsent()
	req.ConsentVersion = "v2"
	_, err = svc.SubmitConsent(ctx, "alice", req, ConsentContext{})
	require.NoError(t, err)
	ok, err = svc.HasValidConsent(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStartSession_ConsentRequired(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.StartSession(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrConsentRequired)
}

func TestStartSession_AlreadyActive(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	first := consentedSession(t, svc, "alice")
	assert.Equal(t, models.SessionActive, first.Status)

	_, err := svc.StartSession(ctx, "alice")
	require.ErrorIs(t, err, ErrSessionAlreadyActive)
	var active *AlreadyActiveError
	require.ErrorAs(t, err, &active)
	assert.Equal(t, first.ID, active.Session.ID)

	var count int64
	require.NoError(t, db.Model(&models.MonitoringSession{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestStartSession_ConcurrentStartsOpenOne(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.SubmitConsent(ctx, "alice", fullConsent(), ConsentContext{})
	require.NoError(t, err)

	const callers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		started []string
		reused  []string
		other   []error
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session, err := svc.StartSession(ctx, "alice")
			mu.Lock()
			defer mu.Unlock()
			var active *AlreadyActiveError
			switch {
			case err == nil:
				started = append(started, session.ID)
			case errors.As(err, &active):
				reused = append(reused, active.Session.ID)
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	require.Empty(t, other)
	require.Len(t, started, 1)
	assert.Len(t, reused, callers-1)
	for _, id := range reused {
		assert.Equal(t, started[0], id)
	}

	var count int64
	require.NoError(t, db.Model(&models.MonitoringSession{}).Where("status = ?", models.SessionActive).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestActiveSessionIndexRejectsSecondActiveRow(t *testing.T) {
	_, db, _ := newTestService(t)
	now := time.Now()
	require.NoError(t, db.Create(&models.MonitoringSession{ID: "s1", UserID: "alice", Status: models.SessionActive, StartedAt: now}).Error)

	err := db.Create(&models.MonitoringSession{ID: "s2", UserID: "alice", Status: models.SessionActive, StartedAt: now}).Error
	require.Error(t, err)
	assert.True(t, isDuplicate(err))

	// ended sessions are outside the index
	require.NoError(t, db.Create(&models.MonitoringSession{ID: "s3", UserID: "alice", Status: models.SessionEnded, StartedAt: now}).Error)
	require.NoError(t, db.Create(&models.MonitoringSession{ID: "s4", UserID: "bob", Status: models.SessionActive, StartedAt: now}).Error)
}

func TestEndSession(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	session := consentedSession(t, svc, "alice")

	_, err := svc.EndSession(ctx, "missing", "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.EndSession(ctx, session.ID, "mallory")
	assert.ErrorIs(t, err, ErrForbidden)

	clock.Set(clock.now.Add(time.Hour))
	ended, err := svc.EndSession(ctx, session.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.SessionEnded, ended.Status)
	require.NotNil(t, ended.EndedAt)
	assert.True(t, ended.EndedAt.Equal(clock.now))

	// idempotent
	clock.Set(clock.now.Add(time.Hour))
	again, err := svc.EndSession(ctx, session.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.SessionEnded, again.Status)
	assert.True(t, again.EndedAt.Equal(*ended.EndedAt))

	_, err = svc.CurrentSession(ctx, "alice")
	assert.ErrorIs(t, err, ErrNotFound)

	// a new session may start after the old one ended
	next, err := svc.StartSession(ctx, "alice")
	require.NoError(t, err)
	assert.NotEqual(t, session.ID, next.ID)
	current, err := svc.CurrentSession(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, next.ID, current.ID)
}

func TestIngestScreenshot_Validation(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	session := consentedSession(t, svc, "alice")

	_, err := svc.IngestScreenshot(ctx, "alice", models.IngestRequest{SessionID: "missing", ImageData: []byte{1}})
	assert.ErrorIs(t, err, ErrInvalidSession)

	_, err = svc.IngestScreenshot(ctx, "mallory", models.IngestRequest{SessionID: session.ID, ImageData: []byte{1}})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.EndSession(ctx, session.ID, "alice")
	require.NoError(t, err)
	_, err = svc.IngestScreenshot(ctx, "alice", models.IngestRequest{SessionID: session.ID, ImageData: []byte{1}})
	assert.ErrorIs(t, err, ErrSessionNotActive)

	var count int64
	require.NoError(t, db.Model(&models.Screenshot{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestIngestScreenshot_ActivityLevelAndApps(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()
	session := consentedSession(t, svc, "alice")

	bogus := models.ActivityLevel("hacking")
	_, err := svc.IngestScreenshot(ctx, "alice", models.IngestRequest{SessionID: session.ID, ImageData: []byte{1}, ActivityLevel: &bogus})
	assert.ErrorIs(t, err, ErrInvalidActivityLevel)
	var count int64
	require.NoError(t, db.Model(&models.Screenshot{}).Count(&count).Error)
	assert.Zero(t, count)

	active := models.ActivityActive
	shot, err := svc.IngestScreenshot(ctx, "alice", models.IngestRequest{
		SessionID:     session.ID,
		ImageData:     []byte{1},
		DetectedApps:  []string{"Slack", "Google Chrome", "Slack", "", "Google Chrome"},
		ActivityLevel: &active,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Slack", "Google Chrome"}, shot.DetectedApps)

	var stored models.Screenshot
	require.NoError(t, db.First(&stored, "id = ?", shot.ID).Error)
	assert.Equal(t, []string{"Slack", "Google Chrome"}, stored.DetectedApps)
	assert.Equal(t, models.ActivityActive, stored.ActivityLevel)
}

func TestIngestScreenshot_HourBucketFromServerClock(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	session := consentedSession(t, svc, "alice")

	// the client claims both frames were taken at the same moment
	skewed := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	clock.Set(time.Date(2026, 3, 2, 10, 59, 59, 0, time.UTC))
	first, err := svc.IngestScreenshot(ctx, "alice", models.IngestRequest{SessionID: session.ID, ImageData: []byte{1}, CapturedAt: &skewed})
	require.NoError(t, err)

	clock.Set(time.Date(2026, 3, 2, 11, 0, 1, 0, time.UTC))
	second, err := svc.IngestScreenshot(ctx, "alice", models.IngestRequest{SessionID: session.ID, ImageData: []byte{1}, CapturedAt: &skewed})
	require.NoError(t, err)

	assert.Equal(t, "2026-03-02-10", first.HourBucket)
	assert.Equal(t, "2026-03-02-11", second.HourBucket)
	assert.Equal(t, models.ActivityUnknown, first.ActivityLevel)
}

func TestHourBucket_ZeroPadded(t *testing.T) {
	assert.Equal(t, "2026-01-05-03", HourBucket(time.Date(2026, 1, 5, 3, 4, 5, 0, time.UTC)))
	est := time.FixedZone("EST", -5*3600)
	assert.Equal(t, "2026-01-05-08", HourBucket(time.Date(2026, 1, 5, 3, 0, 0, 0, est)))
}

func TestCreateHourlyReport_References(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	alice := consentedSession(t, svc, "alice")
	bob := consentedSession(t, svc, "bob")
	bobShot, err := svc.IngestScreenshot(ctx, "bob", models.IngestRequest{SessionID: bob.ID, ImageData: []byte{1}})
	require.NoError(t, err)

	base := models.HourlyReportRequest{
		HourStart: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		HourEnd:   time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}

	req := base
	req.SessionID = &bob.ID
	_, err = svc.CreateHourlyReport(ctx, "alice", req)
	assert.ErrorIs(t, err, ErrForbidden)

	req = base
	req.SessionID = strPtr("missing")
	_, err = svc.CreateHourlyReport(ctx, "alice", req)
	assert.ErrorIs(t, err, ErrNotFound)

	req = base
	req.SessionID = &alice.ID
	req.RandomScreenshotID = &bobShot.ID
	_, err = svc.CreateHourlyReport(ctx, "alice", req)
	assert.ErrorIs(t, err, ErrForbidden)

	// no session linkage is allowed
	report, err := svc.CreateHourlyReport(ctx, "alice", base)
	require.NoError(t, err)
	assert.Nil(t, report.SessionID)
	assert.Equal(t, []string{}, report.TopAppsDetected)
}

func TestActiveSessions_PublicProfile(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	_, err := svc.RegisterUser(ctx, "alice", models.RegisterRequest{FullName: "Alice Liddell", Email: "alice@example.com", Organization: "Wonderland"})
	require.NoError(t, err)

	aliceSession := consentedSession(t, svc, "alice")
	clock.Set(clock.now.Add(time.Minute))
	bobSession := consentedSession(t, svc, "bob")
	carol := consentedSession(t, svc, "carol")
	_, err = svc.EndSession(ctx, carol.ID, "carol")
	require.NoError(t, err)

	views, err := svc.ActiveSessions(ctx)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, bobSession.ID, views[0].Session.ID)
	assert.Nil(t, views[0].User)
	assert.Equal(t, aliceSession.ID, views[1].Session.ID)
	require.NotNil(t, views[1].User)
	assert.Equal(t, "Alice Liddell", views[1].User.FullName)
	assert.True(t, views[1].User.LastSeen.IsZero(), "only public identity fields are loaded")
}

func TestSessionScreenshots_NoFullResolution(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	session := consentedSession(t, svc, "alice")

	long := strings.Repeat("é", 250)
	_, err := svc.IngestScreenshot(ctx, "alice", models.IngestRequest{
		SessionID: session.ID, ImageData: []byte("full-1"), ThumbnailData: []byte("thumb-1"),
		OCRText: &long, DetectedApps: []string{"Slack"},
	})
	require.NoError(t, err)
	clock.Set(clock.now.Add(time.Minute))
	_, err = svc.IngestScreenshot(ctx, "alice", models.IngestRequest{SessionID: session.ID, ImageData: []byte("full-2")})
	require.NoError(t, err)

	summaries, err := svc.SessionScreenshots(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, []byte("thumb-1"), summaries[0].ThumbnailData)
	require.NotNil(t, summaries[0].OCRExcerpt)
	assert.Equal(t, OCRExcerptLength, len([]rune(*summaries[0].OCRExcerpt)))
	assert.Equal(t, []string{"Slack"}, summaries[0].DetectedApps)
	assert.Nil(t, summaries[1].OCRExcerpt)
	assert.Equal(t, []string{}, summaries[1].DetectedApps)

	_, err = svc.SessionScreenshots(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestActivityFeed(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()
	alice := consentedSession(t, svc, "alice")
	bob := consentedSession(t, svc, "bob")
	carol := consentedSession(t, svc, "carol")

	start := clock.now
	for i := 0; i < 7; i++ {
		at := start.Add(time.Duration(i) * time.Minute)
		for _, s := range []*models.MonitoringSession{alice, bob, carol} {
			_, err := svc.IngestScreenshot(ctx, s.UserID, models.IngestRequest{SessionID: s.ID, ImageData: []byte{1}, CapturedAt: &at})
			require.NoError(t, err)
		}
	}
	_, err := svc.EndSession(ctx, carol.ID, "carol")
	require.NoError(t, err)

	feed, err := svc.ActivityFeed(ctx, 0)
	require.NoError(t, err)
	require.Len(t, feed, 2*FeedPerSession)
	for i := 1; i < len(feed); i++ {
		assert.False(t, feed[i].CapturedAt.After(feed[i-1].CapturedAt), "feed must be newest first")
	}
	perSession := map[string]int{}
	for _, item := range feed {
		perSession[item.SessionID]++
		assert.NotEqual(t, carol.ID, item.SessionID)
		assert.False(t, item.CapturedAt.Before(start.Add(2*time.Minute)), "only the latest five per session")
	}
	assert.Equal(t, FeedPerSession, perSession[alice.ID])
	assert.Equal(t, FeedPerSession, perSession[bob.ID])

	limited, err := svc.ActivityFeed(ctx, 3)
	require.NoError(t, err)
	require.Len(t, limited, 3)
	assert.True(t, limited[0].CapturedAt.Equal(start.Add(6*time.Minute)))
}

func TestAppUsage(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	hour := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	reports := []models.HourlyReportRequest{
		{HourStart: hour, HourEnd: hour.Add(time.Hour), ActiveMinutes: 40, IdleMinutes: 10, TopAppsDetected: []string{"Slack", "Google Chrome"}},
		{HourStart: hour, HourEnd: hour.Add(time.Hour), ActiveMinutes: 20, IdleMinutes: 30, TopAppsDetected: []string{"Slack"}},
		{HourStart: hour, HourEnd: hour.Add(time.Hour), ActiveMinutes: 5, IdleMinutes: 0},
	}
	var many []string
	for i := 0; i < 25; i++ {
		many = append(many, "app-"+string(rune('a'+i)))
	}
	reports = append(reports, models.HourlyReportRequest{HourStart: hour, HourEnd: hour.Add(time.Hour), TopAppsDetected: many})
	for _, r := range reports {
		_, err := svc.CreateHourlyReport(ctx, "alice", r)
		require.NoError(t, err)
	}

	usage, err := svc.AppUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, 65, usage.TotalActiveMinutes)
	assert.Equal(t, 40, usage.TotalIdleMinutes)
	require.Len(t, usage.TopApps, AppUsageTopN)
	assert.Equal(t, models.AppUsageCount{Name: "Slack", Count: 2}, usage.TopApps[0])
	assert.Equal(t, 1, usage.TopApps[1].Count)
}

func TestPurgeScreenshots_KeepsSampled(t *testing.T) {
	svc, db, clock := newTestService(t)
	ctx := context.Background()
	session := consentedSession(t, svc, "alice")

	old := clock.now.Add(-48 * time.Hour)
	sampled, err := svc.IngestScreenshot(ctx, "alice", models.IngestRequest{SessionID: session.ID, ImageData: []byte{1}, CapturedAt: &old})
	require.NoError(t, err)
	_, err = svc.IngestScreenshot(ctx, "alice", models.IngestRequest{SessionID: session.ID, ImageData: []byte{2}, CapturedAt: &old})
	require.NoError(t, err)
	fresh, err := svc.IngestScreenshot(ctx, "alice", models.IngestRequest{SessionID: session.ID, ImageData: []byte{3}})
	require.NoError(t, err)

	_, err = svc.CreateHourlyReport(ctx, "alice", models.HourlyReportRequest{
		SessionID: &session.ID, HourStart: old, HourEnd: old.Add(time.Hour), RandomScreenshotID: &sampled.ID,
	})
	require.NoError(t, err)

	result, err := svc.PurgeScreenshots(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, result.DeletedCount)

	var ids []string
	require.NoError(t, db.Model(&models.Screenshot{}).Order("id").Pluck("id", &ids).Error)
	assert.ElementsMatch(t, []string{sampled.ID, fresh.ID}, ids)
}

func TestStats(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	_, err := svc.RegisterUser(ctx, "alice", models.RegisterRequest{FullName: "Alice"})
	require.NoError(t, err)
	session := consentedSession(t, svc, "alice")
	_, err = svc.IngestScreenshot(ctx, "alice", models.IngestRequest{SessionID: session.ID, ImageData: []byte{1}})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DashboardStats{TotalUsers: 1, ActiveSessions: 1, TotalScreenshots: 1}, *stats)
}

func TestEndToEnd(t *testing.T) {
	svc, _, clock := newTestService(t)
	ctx := context.Background()

	_, err := svc.SubmitConsent(ctx, "alice", fullConsent(), ConsentContext{})
	require.NoError(t, err)
	ok, err := svc.HasValidConsent(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	session, err := svc.StartSession(ctx, "alice")
	require.NoError(t, err)

	clock.Set(time.Date(2026, 3, 2, 14, 5, 0, 0, time.UTC))
	first, err := svc.IngestScreenshot(ctx, "alice", models.IngestRequest{SessionID: session.ID, ImageData: []byte("full-a"), ThumbnailData: []byte("thumb-a")})
	require.NoError(t, err)
	clock.Set(time.Date(2026, 3, 2, 14, 35, 0, 0, time.UTC))
	second, err := svc.IngestScreenshot(ctx, "alice", models.IngestRequest{SessionID: session.ID, ImageData: []byte("full-b"), ThumbnailData: []byte("thumb-b")})
	require.NoError(t, err)
	require.Equal(t, first.HourBucket, second.HourBucket)

	hourStart := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)
	report, err := svc.CreateHourlyReport(ctx, "alice", models.HourlyReportRequest{
		SessionID:          &session.ID,
		HourStart:          hourStart,
		HourEnd:            hourStart.Add(time.Hour),
		RandomScreenshotID: &second.ID,
		ScreenshotsTaken:   2,
	})
	require.NoError(t, err)
	assert.Equal(t, second.ID, *report.RandomScreenshotID)

	summaries, err := svc.SessionScreenshots(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, first.ID, summaries[0].ID)
	assert.Equal(t, []byte("thumb-a"), summaries[0].ThumbnailData)
	assert.Equal(t, second.ID, summaries[1].ID)
	assert.Equal(t, []byte("thumb-b"), summaries[1].ThumbnailData)
}
