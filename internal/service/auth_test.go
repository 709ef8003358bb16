package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ifuryst/affpress/internal/config"
)

func newTestAuth(secret string) *AuthService {
	return NewAuthService(&config.AuthConfig{
		Username:   "admin",
		Password:   "s3cret",
		TOTPSecret: secret,
		SessionTTL: "1h",
	}, zap.NewNop())
}

func TestLogin(t *testing.T) {
	auth := newTestAuth("")

	_, _, err := auth.Login("admin", "wrong", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = auth.Login("root", "s3cret", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	token, expires, err := auth.Login("admin", "s3cret", "")
	require.NoError(t, err)
	assert.True(t, auth.ValidateSession(token))
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, time.Minute)

	auth.Logout(token)
	assert.False(t, auth.ValidateSession(token))
}

func TestLoginWithoutConfiguredPassword(t *testing.T) {
	auth := NewAuthService(&config.AuthConfig{Username: "admin"}, zap.NewNop())
	_, _, err := auth.Login("admin", "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRequiresTOTPWhenConfigured(t *testing.T) {
	secret, url, err := GenerateSecret("admin")
	require.NoError(t, err)
	assert.Contains(t, url, "otpauth://")

	auth := newTestAuth(secret)
	_, _, err = auth.Login("admin", "s3cret", "000000x")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	token, _, err := auth.Login("admin", "s3cret", code)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestSessionExpires(t *testing.T) {
	auth := newTestAuth("")
	now := time.Now()
	auth.now = func() time.Time { return now }

	token, _ := auth.CreateSession()
	assert.True(t, auth.ValidateSession(token))

	now = now.Add(2 * time.Hour)
	assert.False(t, auth.ValidateSession(token))
	assert.False(t, auth.ValidateSession(""))
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := newTestAuth("")
	token, _ := auth.CreateSession()

	r := gin.New()
	r.GET("/private", auth.AuthMiddleware(), func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/private", nil)
	req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: token})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
