// Package api exposes the service over REST.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jlynch25/eventreg/auth"
	"github.com/jlynch25/eventreg/service"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

// Options toggles the optional middleware.
type Options struct {
	// ServiceName names the spans produced by the tracing middleware.
	// Tracing is off when empty.
	ServiceName string
	// Metrics serves Prometheus metrics on /metrics. Only one server per
	// process may enable it.
	Metrics bool
}

// Server is the REST front of the service.
type Server struct {
	svc      *service.Service
	verifier *auth.Verifier
	ping     func(context.Context) error
	log      *zap.Logger
	engine   *gin.Engine
}

// NewServer wires the routes. ping backs the /healthz endpoint.
func NewServer(svc *service.Service, verifier *auth.Verifier, ping func(context.Context) error, log *zap.Logger, opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		svc:      svc,
		verifier: verifier,
		ping:     ping,
		log:      log,
		engine:   gin.New(),
	}

	if opts.ServiceName != "" {
		s.engine.Use(otelgin.Middleware(opts.ServiceName))
	}
	s.engine.Use(requestLogger(log), gin.Recovery())
	if opts.Metrics {
		ginprometheus.NewPrometheus("eventreg").Use(s.engine)
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.Health)

	api := s.engine.Group("/api")
	authed := requireUser(s.verifier)

	api.POST("/users", s.CreateUser)
	api.GET("/users/me", authed, s.Me)

	api.GET("/events", s.ListEvents)
	api.POST("/events", authed, s.CreateEvent)
	api.POST("/events/register", authed, s.Register)
	api.GET("/events/registered", authed, s.RegisteredEvents)
	api.GET("/events/:id", s.GetEvent)
}

// Handler returns the HTTP handler, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then drains in-flight requests
// for at most shutdownTimeout.
func (s *Server) Run(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.log.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
