package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mailmaster/internal/api/controllers"
	"mailmaster/internal/api/middleware"
	"mailmaster/internal/api/registry"
	"mailmaster/internal/config"
	"mailmaster/internal/db"
	"mailmaster/internal/utils"
	"mailmaster/internal/utils/logger"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

// Server is the HTTP API.
type Server struct {
	echo     *echo.Echo
	config   *config.Config
	db       *gorm.DB
	redis    *utils.RedisClient
	services registry.Services
	logger   *logger.Logger
}

// NewServer builds the echo instance with middleware and routes. redis may
// be nil, in which case rate limits are kept in memory.
func NewServer(cfg *config.Config, conn *gorm.DB, redis *utils.RedisClient, svc registry.Services, log *logger.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = controllers.NewValidator()
	e.HTTPErrorHandler = controllers.ErrorHandler(log)

	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log.Named("http")))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	e.Use(echomw.BodyLimit("2M"))
	e.Use(middleware.RateLimiter(middleware.CreateDefaultRateLimitConfig(redis, cfg.RateLimit, log.Named("ratelimit"))))

	s := &Server{
		echo:     e,
		config:   cfg,
		db:       conn,
		redis:    redis,
		services: svc,
		logger:   log,
	}
	s.registerRoutes()
	return s
}

// Echo exposes the router, mainly for tests.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	s.logger.Success("API server listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// healthCheck reports the state of the database and Redis.
// @Summary Health check
// @Tags platform
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (s *Server) healthCheck(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{"database": "ok", "redis": "ok"}
	status := http.StatusOK

	if s.db == nil {
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	} else if err := db.Ping(ctx, s.db); err != nil {
		s.logger.Warn("health: database ping failed: %v", err)
		checks["database"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if s.redis == nil {
		checks["redis"] = "disabled"
	} else if err := s.redis.HealthCheck(ctx); err != nil {
		s.logger.Warn("health: redis ping failed: %v", err)
		checks["redis"] = "unavailable"
		status = http.StatusServiceUnavailable
	}

	state := "healthy"
	if status != http.StatusOK {
		state = "unhealthy"
	}
	return c.JSON(status, map[string]interface{}{
		"status":    state,
		"checks":    checks,
		"timestamp": time.Now().UTC(),
	})
}
