// Package httpapi exposes the backend's JSON REST API over echo:
// per-address profile documents, wallet sign-in, ledger export presigning
// and Prometheus metrics.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/yieldvault/internal/logging"
	"github.com/dmitrijs2005/yieldvault/internal/server/models"
	"github.com/dmitrijs2005/yieldvault/internal/server/services"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Profiles is the storage-facing side of the profile endpoints.
type Profiles interface {
	Get(ctx context.Context, kind, address string) (*models.Record, error)
	Save(ctx context.Context, kind, address string, data json.RawMessage) (*models.Record, error)
	Delete(ctx context.Context, kind, address string) error
}

// Authenticator issues sign-in challenges and session tokens.
type Authenticator interface {
	IssueNonce(ctx context.Context, address string) (string, error)
	Login(ctx context.Context, address, signature string) (string, error)
	Authenticate(token string) (string, error)
}

// Exporter presigns ledger export uploads.
type Exporter interface {
	PresignUpload(ctx context.Context, address string) (*services.Export, error)
}

type Server struct {
	address  string
	e        *echo.Echo
	logger   logging.Logger
	profiles Profiles
	auth     Authenticator
	exports  Exporter
	registry *prometheus.Registry
}

const shutdownTimeout = 5 * time.Second

func NewServer(address string, l logging.Logger, profiles Profiles, auth Authenticator, exports Exporter) *Server {
	s := &Server{
		address:  address,
		e:        echo.New(),
		logger:   l.With("module", "http_server"),
		profiles: profiles,
		auth:     auth,
		exports:  exports,
		registry: prometheus.NewRegistry(),
	}
	s.e.HideBanner = true
	s.e.HidePort = true

	s.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := newMetrics(s.registry)

	s.e.Use(middleware.Recover())
	s.e.Use(middleware.CORS())
	s.e.Use(m.middleware)
	s.e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Debug(c.Request().Context(), "request",
				"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency)
			return nil
		},
	}))

	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.e.Group("/api")

	for _, kind := range models.Kinds {
		api.GET("/"+kind, s.getProfile(kind))
		api.POST("/"+kind, s.saveProfile(kind))
		api.DELETE("/"+kind, s.deleteProfile(kind))
	}

	api.GET("/auth/nonce", s.nonce)
	api.POST("/auth/login", s.login)
	api.POST("/exports", s.createExport, s.requireSession)

	s.e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.e }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", s.address)
		if err := s.e.Start(s.address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return s.e.Shutdown(sctx)
}
