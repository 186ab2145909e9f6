package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workforce-monitor/internal/models"
)

func TestStartSession_ReusesActiveSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice", r.Header.Get("X-User-ID"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(models.ErrorResponse{
			Error:   "session already active",
			Session: &models.MonitoringSession{ID: "existing", UserID: "alice", Status: models.SessionActive},
		})
	}))
	defer srv.Close()

	session, err := New(srv.URL, "alice", "tok").StartSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "existing", session.ID)
}

func TestStartSession_ConsentRequired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPreconditionFailed)
		w.Write([]byte(`{"error":"valid consent required"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "alice", "").StartSession(context.Background())
	assert.ErrorIs(t, err, ErrConsentRequired)
}

func TestUploadScreenshot(t *testing.T) {
	var got models.IngestRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/screenshots", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.IngestResponse{ScreenshotID: "shot-1", HourBucket: "2026-03-02-10"})
	}))
	defer srv.Close()

	out, err := New(srv.URL, "alice", "").UploadScreenshot(context.Background(), models.IngestRequest{
		SessionID: "s1", ImageData: []byte{0xff, 0xd8},
	})
	require.NoError(t, err)
	assert.Equal(t, "shot-1", out.ScreenshotID)
	assert.Equal(t, []byte{0xff, 0xd8}, got.ImageData)
}

func TestUploadScreenshot_SessionClosed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"session not active"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "alice", "").UploadScreenshot(context.Background(), models.IngestRequest{SessionID: "s1", ImageData: []byte{1}})
	assert.ErrorIs(t, err, ErrSessionClosed)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "session not active", apiErr.Message)
}

func fastRetries(c *Client) *Client {
	c.http.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)
	return c
}

func TestUploadScreenshot_NotRetriedAfterTransportError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		conn, _, err := w.(http.Hijacker).Hijack()
		require.NoError(t, err)
		conn.Close()
	}))
	defer srv.Close()

	c := fastRetries(New(srv.URL, "alice", ""))
	_, err := c.UploadScreenshot(context.Background(), models.IngestRequest{SessionID: "s1", ImageData: []byte{1}})

	require.Error(t, err)
	assert.EqualValues(t, 1, hits.Load())
}

func TestCreateHourlyReport_NotRetriedOnServerError(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := fastRetries(New(srv.URL, "alice", ""))
	_, err := c.CreateHourlyReport(context.Background(), models.HourlyReportRequest{HourStart: time.Now(), HourEnd: time.Now()})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)
	assert.EqualValues(t, 1, hits.Load())
}

func TestHasValidConsent_RetriesReads(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.ConsentStatusResponse{HasValidConsent: true})
	}))
	defer srv.Close()

	ok, err := fastRetries(New(srv.URL, "alice", "")).HasValidConsent(context.Background())

	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 3, hits.Load())
}
