package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

type Options struct {
	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int
}

// Server is the JSON API used by the web portal.
type Server struct {
	echo   *echo.Echo
	logger *zap.Logger
}

func NewServer(opts Options, h *Handler, logger *zap.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(RequestLogger(logger))

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/v1")
	if opts.RateLimitRPS > 0 {
		api.Use(NewRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst).Middleware())
	}
	if opts.JWTSecret != "" {
		api.Use(JWTMiddleware([]byte(opts.JWTSecret)))
	} else {
		logger.Warn("JWT_SECRET is empty, API authentication disabled")
	}
	h.RegisterRoutes(api)

	return &Server{echo: e, logger: logger}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start blocks until the server stops. A graceful shutdown is not an error.
func (s *Server) Start(addr string) error {
	s.logger.Info("HTTP API listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
