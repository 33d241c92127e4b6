package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	"github.com/smallbiznis/launchpad/internal/config"
)

// HTTPServer serves the API with the timeouts and shutdown grace configured
// for this deployment.
type HTTPServer struct {
	srv           *http.Server
	shutdownGrace time.Duration
}

// NewHTTPServer builds the server around the router. Read, write and idle
// timeouts come from configuration so a slow client cannot pin a connection
// indefinitely.
func NewHTTPServer(router *gin.Engine, cfg config.Config) *HTTPServer {
	router.HandleMethodNotAllowed = true
	router.ForwardedByClientIP = true

	grace := cfg.ShutdownGrace
	if grace <= 0 {
		grace = 10 * time.Second
	}

	return &HTTPServer{
		srv: &http.Server{
			Addr:         ":" + cfg.HTTPPort,
			Handler:      router,
			ReadTimeout:  cfg.HTTPReadTimeout,
			WriteTimeout: cfg.HTTPWriteTimeout,
			IdleTimeout:  cfg.HTTPIdleTimeout,
		},
		shutdownGrace: grace,
	}
}

// Addr reports the configured listen address.
func (s *HTTPServer) Addr() string {
	return s.srv.Addr
}

// Run serves until ctx is done, then drains in-flight requests within the
// configured grace period.
func (s *HTTPServer) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownGrace)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}
