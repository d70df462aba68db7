// Package http provides the hearth REST API.
package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/hearth/internal/home"
	"github.com/fyrsmithlabs/hearth/internal/logging"
)

// HomeService is the set of household operations served over HTTP.
type HomeService interface {
	Status(ctx context.Context, family string) (home.Status, error)
	Toggle(ctx context.Context, family, device string) (home.Status, error)
	SetMode(ctx context.Context, family, mode string) (home.Status, error)
	ReportClimate(ctx context.Context, family string, temperature, humidity float64) (home.Status, error)
	ListItems(ctx context.Context, family, query string) ([]home.Item, error)
	LowStockItems(ctx context.Context, family string, threshold float64) ([]home.Item, error)
	AddItem(ctx context.Context, family string, in home.ItemInput) (home.Item, error)
	UpdateItem(ctx context.Context, family, id string, patch home.ItemPatch) (home.Item, error)
	DeleteItem(ctx context.Context, family, id string) error
	ListNotes(ctx context.Context, family string) ([]home.Note, error)
	AddNote(ctx context.Context, family, content string) (home.Note, error)
	DeleteNote(ctx context.Context, family, id string) error
}

// Pinger reports whether a backing dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server provides HTTP endpoints for hearthd.
type Server struct {
	echo    *echo.Echo
	home    HomeService
	pinger  Pinger
	logger  *logging.Logger
	config  *Config
	metrics *HTTPMetrics
}

// Config holds HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	Version         string

	// Gatherer backs GET /metrics (default: prometheus.DefaultGatherer)
	Gatherer prometheus.Gatherer
}

// Option configures optional server dependencies.
type Option func(*Server)

// WithPinger makes /health report the store's reachability.
func WithPinger(p Pinger) Option {
	return func(s *Server) { s.pinger = p }
}

// WithHTTPMetrics overrides the OTEL request metrics.
func WithHTTPMetrics(m *HTTPMetrics) Option {
	return func(s *Server) { s.metrics = m }
}

// NewServer creates a new HTTP server.
func NewServer(svc HomeService, logger *logging.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if svc == nil {
		return nil, errors.New("home service cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host:            "0.0.0.0",
			Port:            8000,
			ShutdownTimeout: 10 * time.Second,
		}
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		home:   svc,
		logger: logger.Named("http"),
		config: cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = NewHTTPMetrics(s.logger)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError
	s.echo = e

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
	}))
	e.Use(s.requestContext)
	e.Use(s.requestLogger)
	e.Use(s.metrics.MetricsMiddleware())

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.config.Gatherer, promhttp.HandlerOpts{})))

	api := s.echo.Group("/api", s.requireFamily)
	api.GET("/status", s.handleStatus)
	api.POST("/toggle", s.handleToggle)
	api.POST("/mode", s.handleMode)
	api.POST("/climate", s.handleClimate)

	api.GET("/items", s.handleListItems)
	api.GET("/items/low", s.handleLowStock)
	api.POST("/items", s.handleAddItem)
	api.PATCH("/items/:id", s.handleUpdateItem)
	api.DELETE("/items/:id", s.handleDeleteItem)

	api.GET("/notes", s.handleListNotes)
	api.POST("/notes", s.handleAddNote)
	api.DELETE("/notes/:id", s.handleDeleteNote)
}

// requestContext carries the request ID and a route-tagged logger on the
// request context. Handlers and handleError log through that logger.
func (s *Server) requestContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
			ctx = logging.WithRequestID(ctx, id)
		}
		ctx = logging.WithLogger(ctx, s.logger.With(zap.String("route", normalizePath(c.Path()))))
		c.SetRequest(c.Request().WithContext(ctx))
		return next(c)
	}
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
			err = nil
		}

		ctx := c.Request().Context()
		fields := []zap.Field{
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Int("status", c.Response().Status),
			zap.Duration("duration", time.Since(start)),
		}
		if c.Response().Status >= http.StatusInternalServerError {
			s.logger.Warn(ctx, "http request", fields...)
		} else {
			s.logger.Info(ctx, "http request", fields...)
		}
		return err
	}
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Addr returns the bound listener address once Start is listening.
func (s *Server) Addr() net.Addr {
	return s.echo.ListenerAddr()
}

// Start starts the HTTP server and blocks until ctx is cancelled, then
// shuts down gracefully within the configured timeout.
//
// Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))
	s.logger.Info(ctx, "starting http server", zap.String("addr", addr))

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server start: %w", err)
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		timeout := s.config.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := s.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return http.ErrServerClosed
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
