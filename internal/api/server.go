package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/trialiq-server/internal/auth"
	"github.com/trialiq-server/internal/domain"
	"github.com/trialiq-server/internal/locale"
	"github.com/trialiq-server/internal/middleware"
	"github.com/trialiq-server/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

const shutdownTimeout = 30 * time.Second

// Dependencies are the collaborators the HTTP server routes requests to.
type Dependencies struct {
	Logger     *logrus.Logger
	Intake     *service.IntakeService
	Dashboard  *service.DashboardService
	Gate       *auth.Gate
	Translator domain.Translator
	Locales    *locale.Resolver
}

// Server represents the HTTP server
type Server struct {
	config *domain.Config
	deps   Dependencies
	log    *logrus.Logger
	router *gin.Engine
	server *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(cfg *domain.Config, deps Dependencies) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS("*"))
	router.Use(middleware.AuditLogger())
	router.Use(middleware.RateLimit(cfg.RateLimit, deps.Logger))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	s := &Server{
		config: cfg,
		deps:   deps,
		log:    deps.Logger,
		router: router,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is cancelled and then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.config.Server
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.log.Info("Shutting down HTTP server")
	return s.server.Shutdown(shutdownCtx)
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/trials", s.handleListTrials)
		v1.GET("/questions", s.handleListQuestions)
		v1.POST("/match", s.handleMatch)

		sessions := v1.Group("/sessions")
		sessions.POST("", s.handleStartSession)
		sessions.GET("/:id", s.handleGetSession)
		sessions.POST("/:id/advance", s.handleAdvance)
		sessions.POST("/:id/back", s.handleBack)
		sessions.POST("/:id/reset", s.handleReset)
		sessions.PUT("/:id/consent", s.handleConsent)
		sessions.PUT("/:id/personal-info", s.handlePersonalInfo)
		sessions.PUT("/:id/locale", s.handleChangeLocale)
		sessions.PUT("/:id/answers/:key", s.handleAnswer)
		sessions.DELETE("/:id/answers/:key", s.handleClearAnswer)

		perMinute := s.config.Admin.LoginPerMinute
		if perMinute < 1 {
			perMinute = 5
		}
		loginLimiter := middleware.NewRateLimiter(float64(perMinute)/60, perMinute, s.log)
		v1.POST("/admin/login", loginLimiter.Middleware(), s.handleAdminLogin)

		admin := v1.Group("/admin", auth.RequireAdmin(s.deps.Gate))
		admin.GET("/submissions", s.handleAdminSubmissions)
		admin.GET("/summary", s.handleAdminSummary)
		admin.GET("/export", s.handleAdminExport)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"locales":   s.deps.Locales.Supported(),
		"trials":    len(s.deps.Intake.Trials()),
	})
}
