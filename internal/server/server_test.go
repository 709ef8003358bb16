package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ifuryst/affpress/internal/config"
	"github.com/ifuryst/affpress/internal/models"
	"github.com/ifuryst/affpress/internal/service"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	autoStart := false
	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: gin.TestMode},
		Database:  config.DatabaseConfig{Type: "sqlite", Path: filepath.Join(t.TempDir(), "server.db")},
		Auth:      config.AuthConfig{Username: "admin", Password: "s3cret"},
		Scheduler: config.SchedulerConfig{Interval: "1h", AutoStart: &autoStart},
	}

	srv, err := NewServer(cfg, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, srv.Control.Run(context.Background()))
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, srv *Server) string {
	t.Helper()
	w := do(srv, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "admin", "password": "s3cret"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)

	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, service.AuthCookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	return resp.Token
}

func TestHealthHasSecurityHeaders(t *testing.T) {
	srv := newTestServer(t)
	w := do(srv, http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("Referrer-Policy"))
	assert.NotEmpty(t, w.Header().Get("Content-Security-Policy"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w = httptest.NewRecorder()
	srv.Router.ServeHTTP(w, req)
	assert.NotEmpty(t, w.Header().Get("Strict-Transport-Security"))
}

func TestProtectedRoutesRequireLogin(t *testing.T) {
	srv := newTestServer(t)

	w := do(srv, http.MethodGet, "/api/v1/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(srv, http.MethodPost, "/api/v1/auth/login", "", gin.H{"username": "admin", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := login(t, srv)
	w = do(srv, http.MethodGet, "/api/v1/status", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(srv, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(srv, http.MethodGet, "/api/v1/status", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGenerateListAndGet(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	w := do(srv, http.MethodPost, "/api/v1/content/generate", token, gin.H{"topic": "Wireless earbuds"})
	require.Equal(t, http.StatusOK, w.Code)

	var result service.PipelineResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Published)
	assert.Equal(t, service.ReasonPublished, result.Reason)
	require.NotEmpty(t, result.ContentID)

	w = do(srv, http.MethodGet, "/api/v1/content/"+result.ContentID, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var item models.ContentItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &item))
	assert.Equal(t, models.StatusPublished, item.Status)

	w = do(srv, http.MethodGet, "/api/v1/content?status=published&limit=10", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), result.ContentID)

	w = do(srv, http.MethodGet, "/api/v1/content?status=archived", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(srv, http.MethodGet, "/api/v1/content/missing", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(srv, http.MethodGet, "/api/v1/earnings.csv", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/csv"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "timestamp,platform,amount,note"))
}

func TestSchedulerRoutes(t *testing.T) {
	srv := newTestServer(t)
	token := login(t, srv)

	w := do(srv, http.MethodPost, "/api/v1/scheduler/start", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(srv, http.MethodPost, "/api/v1/scheduler/start", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already running")

	w = do(srv, http.MethodGet, "/api/v1/status", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status service.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.True(t, status.SchedulerRunning)

	w = do(srv, http.MethodPost, "/api/v1/scheduler/stop", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(srv, http.MethodPost, "/api/v1/scheduler/stop", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
