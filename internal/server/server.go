// Package server exposes the estimation engine over HTTP. The API mirrors
// the CLI flow: post shipment records, get the batch result back.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/rshade/freightfocus/internal/engine"
	"github.com/rshade/freightfocus/internal/resolve"
)

const (
	// DefaultAddr is the listen address used when Options.Addr is empty.
	DefaultAddr = ":8080"

	// DefaultShutdownGrace bounds how long in-flight requests get to finish
	// once shutdown starts.
	DefaultShutdownGrace = 10 * time.Second

	// readHeaderTimeout guards against slow-header connections holding
	// sockets open.
	readHeaderTimeout = 5 * time.Second
)

// Estimator is the engine surface the API depends on.
type Estimator interface {
	EstimateBatch(ctx context.Context, shipments []engine.Shipment) (*engine.BatchResult, error)
}

// LocationResolver is the lookup surface behind the resolve debug endpoint.
type LocationResolver interface {
	Resolve(ctx context.Context, identifier string) resolve.Resolution
}

// Options configure the HTTP server.
type Options struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string

	// ShutdownGrace overrides DefaultShutdownGrace when positive.
	ShutdownGrace time.Duration
}

// Server wires the engine and resolver behind a gin router.
type Server struct {
	estimator Estimator
	resolver  LocationResolver
	logger    zerolog.Logger
	opts      Options
}

// New builds a Server around an estimator and a resolver.
func New(estimator Estimator, resolver LocationResolver, logger zerolog.Logger, opts Options) *Server {
	if opts.Addr == "" {
		opts.Addr = DefaultAddr
	}
	if opts.ShutdownGrace <= 0 {
		opts.ShutdownGrace = DefaultShutdownGrace
	}
	return &Server{
		estimator: estimator,
		resolver:  resolver,
		logger:    logger,
		opts:      opts,
	}
}

// Router assembles the gin engine with middleware and routes. Exposed so
// tests can drive the API through httptest without a listener.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), RequestLogger(s.logger))

	router.GET("/healthz", s.handleHealthz)

	v1 := router.Group("/v1")
	v1.POST("/estimates", s.handleEstimates)
	v1.POST("/locations/resolve", s.handleResolveLocation)

	return router
}

// Run serves until ctx is cancelled, then drains in-flight requests within
// the shutdown grace period.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().
			Str("component", "server").
			Str("addr", s.opts.Addr).
			Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().
		Str("component", "server").
		Msg("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownGrace)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return <-errCh
}
