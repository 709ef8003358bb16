package service

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"

	"github.com/ifuryst/affpress/internal/config"
)

const (
	AuthCookieName    = "auth_token"
	defaultSessionTTL = 12 * time.Hour
	totpIssuer        = "Affpress Admin"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthService struct {
	logger     *zap.Logger
	username   string
	password   string
	totpSecret string
	ttl        time.Duration
	now        func() time.Time

	mu       sync.Mutex
	sessions map[string]time.Time
}

func NewAuthService(cfg *config.AuthConfig, logger *zap.Logger) *AuthService {
	ttl, err := cfg.SessionTTLDuration()
	if err != nil || ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &AuthService{
		logger:     logger,
		username:   cfg.Username,
		password:   cfg.Password,
		totpSecret: cfg.TOTPSecret,
		ttl:        ttl,
		now:        time.Now,
		sessions:   make(map[string]time.Time),
	}
}

// GenerateSecret creates a new TOTP key and returns its secret and provisioning URL.
func GenerateSecret(accountName string) (secret, url string, err error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      totpIssuer,
		AccountName: accountName,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	return key.Secret(), key.URL(), nil
}

// Login checks the admin credentials and, when a TOTP secret is configured,
// the one-time code. It returns a new session token and its expiry.
func (a *AuthService) Login(username, password, code string) (string, time.Time, error) {
	if a.password == "" {
		a.logger.Warn("Login attempted but no admin password is configured")
		return "", time.Time{}, ErrInvalidCredentials
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.password)) == 1
	if !userOK || !passOK {
		a.logger.Warn("Login failed", zap.String("username", username))
		return "", time.Time{}, ErrInvalidCredentials
	}

	if a.totpSecret != "" && !a.ValidateToken(code) {
		return "", time.Time{}, ErrInvalidCredentials
	}

	token, expires := a.CreateSession()
	a.logger.Info("Login successful", zap.String("username", username))
	return token, expires, nil
}

func (a *AuthService) ValidateToken(code string) bool {
	valid := totp.Validate(strings.TrimSpace(code), a.totpSecret)
	if valid {
		a.logger.Info("TOTP token validation successful")
	} else {
		a.logger.Warn("TOTP token validation failed")
	}
	return valid
}

func (a *AuthService) CreateSession() (string, time.Time) {
	token := uuid.NewString()
	expires := a.now().Add(a.ttl)

	a.mu.Lock()
	a.sessions[token] = expires
	a.mu.Unlock()

	return token, expires
}

// ValidateSession reports whether token names a live session. Expired
// sessions are dropped.
func (a *AuthService) ValidateSession(token string) bool {
	if token == "" {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	expires, ok := a.sessions[token]
	if !ok {
		return false
	}
	if !a.now().Before(expires) {
		delete(a.sessions, token)
		return false
	}
	return true
}

func (a *AuthService) Logout(token string) {
	a.mu.Lock()
	delete(a.sessions, token)
	a.mu.Unlock()
}

func (a *AuthService) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !a.ValidateSession(SessionToken(c)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

// SessionToken reads the session token from the auth cookie or a bearer header.
func SessionToken(c *gin.Context) string {
	if token, err := c.Cookie(AuthCookieName); err == nil && token != "" {
		return token
	}
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}
