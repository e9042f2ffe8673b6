// Package httpserver assembles the gin engine and serves the API.
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/janhq/reno-server/docs/swagger"
	"github.com/janhq/reno-server/internal/config"
	"github.com/janhq/reno-server/internal/infrastructure/auth"
	"github.com/janhq/reno-server/internal/infrastructure/logger"
	"github.com/janhq/reno-server/internal/interfaces/httpserver/middleware"
	v1 "github.com/janhq/reno-server/internal/interfaces/httpserver/routes/v1"
)

// ReadinessCheck is one dependency probed by /readyz.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// Options carry the optional collaborators of the server.
type Options struct {
	Auth     *auth.Validator
	Requests middleware.RequestRecorder
	Gatherer prometheus.Gatherer
	Checks   []ReadinessCheck
}

type HTTPServer struct {
	engine  *gin.Engine
	v1Route *v1.V1Route
	config  *config.Config
	opts    Options
	log     zerolog.Logger
}

func NewHTTPServer(v1Route *v1.V1Route, cfg *config.Config, opts Options, log zerolog.Logger) *HTTPServer {
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	server := &HTTPServer{
		engine:  gin.New(),
		v1Route: v1Route,
		config:  cfg,
		opts:    opts,
		log:     log.With().Str("component", "http-server").Logger(),
	}

	server.engine.Use(gin.Recovery())
	server.engine.Use(middleware.RequestID())
	if cfg.EnableTracing {
		server.engine.Use(middleware.Tracing(cfg.ServiceName))
	}
	server.engine.Use(middleware.Logging(server.log, logger.NewRedactor(logger.RedactLevel(cfg.LogUserContent), cfg.LogHashSalt)))
	if opts.Requests != nil {
		server.engine.Use(middleware.Metrics(opts.Requests))
	}

	server.engine.GET("/", server.root)
	server.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	server.engine.GET("/readyz", server.readyz)
	server.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	server.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	if cfg.UploadsDir != "" {
		server.engine.Static("/uploads", cfg.UploadsDir)
	}

	api := server.engine.Group("/")
	api.Use(opts.Auth.Middleware())
	v1Route.RegisterRouter(api)
	return server
}

// Handler exposes the engine for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx ends, then drains in-flight requests.
func (s *HTTPServer) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", srv.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	s.log.Info().Msg("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}

// root godoc
// @Summary Service information
// @Tags Server API
// @Produce json
// @Success 200 {object} map[string]string
// @Router / [get]
func (s *HTTPServer) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service":     s.config.ServiceName,
		"environment": s.config.Environment,
		"docs":        "/swagger/index.html",
	})
}

// readyz godoc
// @Summary Readiness check endpoint
// @Description Probes the database and other dependencies. Returns 503 when any probe fails.
// @Tags Server API
// @Produce json
// @Success 200 {object} map[string]any
// @Failure 503 {object} map[string]any
// @Router /readyz [get]
func (s *HTTPServer) readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.opts.Checks))
	for _, check := range s.opts.Checks {
		if err := check.Check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[check.Name] = err.Error()
			s.log.Warn().Err(err).Str("check", check.Name).Msg("readiness check failed")
			continue
		}
		checks[check.Name] = "ok"
	}
	state := "ready"
	if status != http.StatusOK {
		state = "not_ready"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}
