package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/ppiankov/bsdetector/internal/content"
	"github.com/ppiankov/bsdetector/internal/llm"
	"github.com/ppiankov/bsdetector/internal/model"
	"github.com/ppiankov/bsdetector/internal/worker"
)

const (
	maxBodySize     = "1M"
	shutdownTimeout = 10 * time.Second
	limiterIdle     = 5 * time.Minute
	limiterSweep    = 3 * time.Minute
)

// Analyzer makes one provider call
type Analyzer interface {
	Analyze(ctx context.Context, req llm.Request) (*model.AnalysisResult, error)
}

// Options configures a Server
type Options struct {
	Analyzer   Analyzer
	Normalizer *content.Normalizer
	Catalog    model.Catalog
	Limiter    *worker.Limiter // per client IP; nil disables limiting
	Version    string
	Logger     *log.Logger
}

// Server is the HTTP analyze proxy
type Server struct {
	echo       *echo.Echo
	analyzer   Analyzer
	normalizer *content.Normalizer
	catalog    model.Catalog
	limiter    *worker.Limiter
	version    string
	logger     *log.Logger
}

// New creates the server and registers its routes
func New(opts Options) *Server {
	if opts.Normalizer == nil {
		opts.Normalizer = content.NewNormalizer(0)
	}
	if opts.Catalog == nil {
		opts.Catalog = model.DefaultCatalog()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	s := &Server{
		echo:       echo.New(),
		analyzer:   opts.Analyzer,
		normalizer: opts.Normalizer,
		catalog:    opts.Catalog,
		limiter:    opts.Limiter,
		version:    opts.Version,
		logger:     opts.Logger,
	}

	e := s.echo
	e.HideBanner = true
	e.HidePort = true

	// request bodies carry API keys and are never logged
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogError:    true,
		LogMethod:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error == nil {
				s.logger.Info("request completed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"remote_ip", v.RemoteIP,
					"latency_ms", v.Latency.Milliseconds())
			} else {
				s.logger.Error("request failed",
					"method", v.Method,
					"uri", v.URI,
					"status", v.Status,
					"remote_ip", v.RemoteIP,
					"latency_ms", v.Latency.Milliseconds(),
					"error", v.Error.Error())
			}
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(maxBodySize))

	e.GET("/healthz", s.handleHealth)

	api := e.Group("/api")
	if s.limiter != nil {
		api.Use(RateLimit(s.limiter))
	}
	api.POST("/analyze", s.handleAnalyze)
	api.GET("/models", s.handleModels)

	return s
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	if s.limiter != nil {
		go s.limiter.Janitor(ctx, limiterSweep, limiterIdle)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting analyze server", "address", addr)
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
