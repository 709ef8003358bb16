package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ifuryst/affpress/internal/config"
	"github.com/ifuryst/affpress/internal/service"
)

type Server struct {
	Config *config.Config
	DB     *gorm.DB
	Router *gin.Engine
	Logger *zap.Logger
	Server *http.Server

	// Services
	Control *service.ControlService
	Auth    *service.AuthService
}

func NewServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	config.ApplyDefaults(cfg)

	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	// Initialize database
	db, err := service.NewDatabase(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	control, err := service.NewControlService(cfg, db, logger)
	if err != nil {
		_ = service.CloseDatabase(db)
		return nil, fmt.Errorf("failed to initialize control service: %w", err)
	}
	auth := service.NewAuthService(&cfg.Auth, logger)

	// Create router
	router := gin.New()

	// Create server
	srv := &Server{
		Config:  cfg,
		DB:      db,
		Router:  router,
		Logger:  logger,
		Control: control,
		Auth:    auth,
	}

	// Setup middleware and routes
	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.Router.Use(gin.Recovery())

	// Logger middleware
	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	// Security headers
	s.Router.Use(securityHeaders())
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "no-referrer")
		c.Header("Permissions-Policy", "geolocation=(), camera=(), microphone=()")
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'; base-uri 'none'")
		if c.Request.TLS != nil || strings.EqualFold(strings.TrimSpace(c.GetHeader("X-Forwarded-Proto")), "https") {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

func (s *Server) setupRoutes() {
	// Health check
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	// API routes
	api := s.Router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", s.handleLogin)
			auth.POST("/logout", s.handleLogout)
		}

		protected := api.Group("", s.Auth.AuthMiddleware())
		{
			content := protected.Group("/content")
			{
				content.POST("/generate", s.handleGenerate)
				content.GET("", s.handleListContent)
				content.GET("/:id", s.handleGetContent)
			}

			scheduler := protected.Group("/scheduler")
			{
				scheduler.POST("/start", s.handleStartScheduler)
				scheduler.POST("/stop", s.handleStopScheduler)
			}

			protected.GET("/status", s.handleStatus)
			protected.GET("/earnings.csv", s.handleExportEarnings)
		}
	}
}

func (s *Server) Start(ctx context.Context) error {
	// Start scheduler
	if err := s.Control.Run(ctx); err != nil {
		return fmt.Errorf("failed to start control service: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:    addr,
		Handler: s.Router,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	var err error
	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		err = s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	} else {
		err = s.Server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Stop scheduler first
	if err := s.Control.Shutdown(shutdownCtx); err != nil {
		s.Logger.Warn("Scheduler did not stop in time", zap.Error(err))
	}

	if s.Server != nil {
		if err := s.Server.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	return service.CloseDatabase(s.DB)
}
