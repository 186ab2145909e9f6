// Package client calls the monitoring server on behalf of the agent.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"workforce-monitor/internal/models"
)

var (
	ErrConsentRequired = errors.New("server requires consent")
	ErrSessionClosed   = errors.New("session no longer accepts uploads")
)

// APIError is a non-2xx reply.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

type Client struct {
	http *resty.Client
}

func New(serverURL, userID, authToken string) *Client {
	c := resty.New().
		SetBaseURL(serverURL).
		SetHeader("X-User-ID", userID).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second).
		AddRetryCondition(retryReads)
	if authToken != "" {
		c.SetAuthToken(authToken)
	}
	return &Client{http: c}
}

// retryReads retries only GETs. A POST that failed in transit may still
// have been applied, and resending it would store a duplicate
// screenshot or report.
func retryReads(resp *resty.Response, err error) bool {
	if resp == nil || resp.Request == nil || resp.Request.Method != http.MethodGet {
		return false
	}
	return err != nil || resp.StatusCode() >= http.StatusInternalServerError
}

func (c *Client) Register(ctx context.Context, req models.RegisterRequest) error {
	_, err := c.post(ctx, "/api/register", req, nil)
	return err
}

func (c *Client) SubmitConsent(ctx context.Context, req models.ConsentRequest) error {
	_, err := c.post(ctx, "/api/consent", req, nil)
	return err
}

func (c *Client) HasValidConsent(ctx context.Context) (bool, error) {
	var out models.ConsentStatusResponse
	var apiErr models.ErrorResponse
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).SetError(&apiErr).Get("/api/consent/status")
	if err != nil {
		return false, fmt.Errorf("consent status: %w", err)
	}
	if resp.IsError() {
		return false, &APIError{Status: resp.StatusCode(), Message: apiErr.Error}
	}
	return out.HasValidConsent, nil
}

// StartSession opens a session, reusing the active one if the server
// reports it already exists.
func (c *Client) StartSession(ctx context.Context) (*models.MonitoringSession, error) {
	var out models.SessionResponse
	var apiErr models.ErrorResponse
	resp, err := c.http.R().SetContext(ctx).SetResult(&out).SetError(&apiErr).Post("/api/sessions")
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	switch {
	case resp.StatusCode() == http.StatusConflict && apiErr.Session != nil:
		return apiErr.Session, nil
	case resp.StatusCode() == http.StatusPreconditionFailed:
		return nil, ErrConsentRequired
	case resp.IsError():
		return nil, &APIError{Status: resp.StatusCode(), Message: apiErr.Error}
	}
	return &out.Session, nil
}

func (c *Client) EndSession(ctx context.Context, sessionID string) error {
	_, err := c.post(ctx, "/api/sessions/"+sessionID+"/end", nil, nil)
	return err
}

func (c *Client) UploadScreenshot(ctx context.Context, req models.IngestRequest) (*models.IngestResponse, error) {
	var out models.IngestResponse
	status, err := c.post(ctx, "/api/screenshots", req, &out)
	if status == http.StatusConflict || status == http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %w", ErrSessionClosed, err)
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateHourlyReport(ctx context.Context, req models.HourlyReportRequest) (*models.HourlyReportResponse, error) {
	var out models.HourlyReportResponse
	if _, err := c.post(ctx, "/api/reports", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body, result any) (int, error) {
	var apiErr models.ErrorResponse
	r := c.http.R().SetContext(ctx).SetError(&apiErr)
	if body != nil {
		r.SetBody(body)
	}
	if result != nil {
		r.SetResult(result)
	}
	resp, err := r.Post(path)
	if err != nil {
		return 0, fmt.Errorf("POST %s: %w", path, err)
	}
	if resp.IsError() {
		return resp.StatusCode(), &APIError{Status: resp.StatusCode(), Message: apiErr.Error}
	}
	return resp.StatusCode(), nil
}
