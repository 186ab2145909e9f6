package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"workforce-monitor/internal/models"
	"workforce-monitor/internal/monitoring"
)

type MonitorHandler struct {
	Service   *monitoring.Service
	Retention time.Duration
	Logger    *slog.Logger
}

func NewMonitorHandler(svc *monitoring.Service, retention time.Duration, logger *slog.Logger) *MonitorHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MonitorHandler{
		Service:   svc,
		Retention: retention,
		Logger:    logger,
	}
}

// Routes mounts the monitoring API on r.
func (h *MonitorHandler) Routes(r *gin.Engine) {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api", RequireIdentity())
	api.POST("/register", h.RegisterUser)
	api.POST("/consent", h.SubmitConsent)
	api.GET("/consent/status", h.ConsentStatus)
	api.POST("/sessions", h.StartSession)
	api.GET("/sessions/current", h.CurrentSession)
	api.POST("/sessions/:id/end", h.EndSession)
	api.POST("/screenshots", h.UploadScreenshot)
	api.POST("/reports", h.CreateHourlyReport)

	admin := api.Group("/admin", RequireRole(RoleAdmin))
	admin.GET("/sessions/active", h.GetActiveSessions)
	admin.GET("/sessions/:id/screenshots", h.GetSessionScreenshots)
	admin.GET("/activity-feed", h.GetActivityFeed)
	admin.GET("/app-usage", h.GetAppUsage)
	admin.GET("/stats", h.GetDashboardStats)
	admin.POST("/retention/run", h.RunRetention)
}

func (h *MonitorHandler) RegisterUser(c *gin.Context) {
	var input models.RegisterRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, err := h.Service.RegisterUser(c.Request.Context(), callerID(c), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *MonitorHandler) SubmitConsent(c *gin.Context) {
	var input models.ConsentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	record, err := h.Service.SubmitConsent(c.Request.Context(), callerID(c), input, monitoring.ConsentContext{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, record)
}

func (h *MonitorHandler) ConsentStatus(c *gin.Context) {
	ok, err := h.Service.HasValidConsent(c.Request.Context(), callerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.ConsentStatusResponse{HasValidConsent: ok})
}

func (h *MonitorHandler) StartSession(c *gin.Context) {
	session, err := h.Service.StartSession(c.Request.Context(), callerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.SessionResponse{Session: *session})
}

func (h *MonitorHandler) CurrentSession(c *gin.Context) {
	session, err := h.Service.CurrentSession(c.Request.Context(), callerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SessionResponse{Session: *session})
}

func (h *MonitorHandler) EndSession(c *gin.Context) {
	session, err := h.Service.EndSession(c.Request.Context(), c.Param("id"), callerID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.SessionResponse{Session: *session})
}

func (h *MonitorHandler) UploadScreenshot(c *gin.Context) {
	var input models.IngestRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	shot, err := h.Service.IngestScreenshot(c.Request.Context(), callerID(c), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.IngestResponse{ScreenshotID: shot.ID, HourBucket: shot.HourBucket})
}

func (h *MonitorHandler) CreateHourlyReport(c *gin.Context) {
	var input models.HourlyReportRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	report, err := h.Service.CreateHourlyReport(c.Request.Context(), callerID(c), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, models.HourlyReportResponse{ReportID: report.ID})
}

func (h *MonitorHandler) GetActiveSessions(c *gin.Context) {
	views, err := h.Service.ActiveSessions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (h *MonitorHandler) GetSessionScreenshots(c *gin.Context) {
	shots, err := h.Service.SessionScreenshots(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, shots)
}

func (h *MonitorHandler) GetActivityFeed(c *gin.Context) {
	limit := monitoring.DefaultFeedLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}
	feed, err := h.Service.ActivityFeed(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, feed)
}

func (h *MonitorHandler) GetAppUsage(c *gin.Context) {
	usage, err := h.Service.AppUsage(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, usage)
}

func (h *MonitorHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.Service.Stats(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *MonitorHandler) RunRetention(c *gin.Context) {
	if h.Retention <= 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "screenshot retention is disabled"})
		return
	}
	result, err := h.Service.PurgeScreenshots(c.Request.Context(), h.Retention)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// fail maps service errors onto HTTP statuses. Unknown errors are storage
// faults and are logged.
func (h *MonitorHandler) fail(c *gin.Context, err error) {
	var active *monitoring.AlreadyActiveError
	switch {
	case errors.As(err, &active):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error(), Session: &active.Session})
	case errors.Is(err, monitoring.ErrInvalidConsent), errors.Is(err, monitoring.ErrInvalidSession),
		errors.Is(err, monitoring.ErrInvalidActivityLevel):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, monitoring.ErrConsentRequired):
		c.JSON(http.StatusPreconditionFailed, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, monitoring.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, monitoring.ErrForbidden):
		c.JSON(http.StatusForbidden, models.ErrorResponse{Error: err.Error()})
	case errors.Is(err, monitoring.ErrSessionNotActive):
		c.JSON(http.StatusConflict, models.ErrorResponse{Error: err.Error()})
	default:
		h.Logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "internal error"})
	}
}
