// Package server implements the guardian HTTP status server.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dwsmith1983/guardian/internal/server/handlers"
)

// Server is the guardian HTTP status server.
type Server struct {
	store  handlers.Store
	logger *slog.Logger
	router *gin.Engine
	addr   string
	srv    *http.Server
}

// New creates a new HTTP server over the latest-report store.
func New(addr string, store handlers.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		store:  store,
		logger: logger,
		addr:   addr,
	}

	r := gin.New()
	r.Use(RequestID())
	r.Use(AccessLog(logger))
	r.Use(gin.Recovery())

	s.router = r
	s.registerRoutes(r)
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the router for embedding or tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves HTTP requests until Stop is called.
func (s *Server) Start() error {
	s.logger.Info("status server listening", "addr", s.addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop gracefully shuts down the server. A Start after Stop returns
// immediately.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
