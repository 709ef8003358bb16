package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ifuryst/affpress/internal/models"
	"github.com/ifuryst/affpress/internal/service"
	"github.com/ifuryst/affpress/pkg/util"
)

const maxListLimit = 500

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Code     string `json:"code"`
}

type generateRequest struct {
	Topic string `json:"topic"`
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	token, expires, err := s.Auth.Login(req.Username, req.Password, req.Code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	maxAge := int(time.Until(expires).Seconds())
	secure := s.Config.Server.CertFile != ""
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(service.AuthCookieName, token, maxAge, "/", "", secure, true)
	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": expires.Unix()})
}

func (s *Server) handleLogout(c *gin.Context) {
	s.Auth.Logout(service.SessionToken(c))
	c.SetCookie(service.AuthCookieName, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

func (s *Server) handleGenerate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	topic := req.Topic
	if topic == "" {
		topic = c.Query("topic")
	}

	result, err := s.Control.TriggerOnce(c.Request.Context(), topic)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case errors.Is(err, service.ErrGenerationUnavailable):
		c.JSON(http.StatusServiceUnavailable, result)
	default:
		c.JSON(http.StatusInternalServerError, result)
	}
}

func (s *Server) handleListContent(c *gin.Context) {
	var opts service.ListOptions
	for _, raw := range util.ParseList(c.Query("status")) {
		status := models.ContentStatus(raw)
		if status != models.StatusDraft && !status.Terminal() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown status " + raw})
			return
		}
		opts.Statuses = append(opts.Statuses, status)
	}

	opts.Limit = 50
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		opts.Limit = min(limit, maxListLimit)
	}

	items, err := s.Control.ListContent(c.Request.Context(), opts)
	if err != nil {
		s.Logger.Error("Failed to list content", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list content"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "count": len(items)})
}

func (s *Server) handleGetContent(c *gin.Context) {
	item, err := s.Control.GetContent(c.Request.Context(), c.Param("id"))
	if errors.Is(err, service.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Content not found"})
		return
	}
	if err != nil {
		s.Logger.Error("Failed to get content", zap.String("id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get content"})
		return
	}

	c.JSON(http.StatusOK, item)
}

func (s *Server) handleStartScheduler(c *gin.Context) {
	err := s.Control.StartScheduler()
	if errors.Is(err, service.ErrAlreadyRunning) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.Logger.Error("Failed to start scheduler", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start scheduler"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "started"})
}

func (s *Server) handleStopScheduler(c *gin.Context) {
	s.Control.StopScheduler()
	c.JSON(http.StatusOK, gin.H{"status": "stopped"})
}

func (s *Server) handleStatus(c *gin.Context) {
	status, err := s.Control.Status(c.Request.Context())
	if err != nil {
		s.Logger.Error("Failed to get status", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get status"})
		return
	}

	c.JSON(http.StatusOK, status)
}

func (s *Server) handleExportEarnings(c *gin.Context) {
	var buf bytes.Buffer
	if err := s.Control.ExportEarnings(c.Request.Context(), &buf); err != nil {
		s.Logger.Error("Failed to export earnings", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to export earnings"})
		return
	}

	c.Header("Content-Disposition", `attachment; filename="earnings.csv"`)
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
