package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Trimbex/distributed-web-crawler/internal/logging"
)

// Server wraps a gin.Engine with lifecycle management: standard middleware,
// health/metrics endpoints, and graceful shutdown on SIGINT/SIGTERM.
type Server struct {
	router *gin.Engine
	server *http.Server
	logger logging.Logger
	config *Config
}

// NewServer builds a Server with standard middleware applied, then calls
// setupRoutes to let the caller register its own handlers.
func NewServer(cfg *Config, log logging.Logger, setupRoutes func(*gin.Engine)) *Server {
	cfg.SetDefaults()

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RecoveryMiddleware(log))
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": cfg.ServiceName,
			"version": cfg.ServiceVersion,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if setupRoutes != nil {
		setupRoutes(router)
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{router: router, server: httpServer, logger: log, config: cfg}
}

// Router exposes the underlying engine for additional route registration.
func (s *Server) Router() *gin.Engine { return s.router }

// Run starts the server and blocks until ctx is cancelled or a termination
// signal arrives, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting http server",
			logging.String("addr", s.server.Addr),
			logging.String("service", s.config.ServiceName),
		)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
			return
		}
		errCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		s.logger.Info("shutdown signal received", logging.String("signal", sig.String()))
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down http server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("http server stopped gracefully")
	return nil
}
